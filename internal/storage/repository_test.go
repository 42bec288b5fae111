package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeRepo is a minimal Repository implementation for tests.
type fakeRepo struct {
	closed bool
}

func (f *fakeRepo) Dialect() Dialect {
	return nil
}

func (f *fakeRepo) Begin(ctx context.Context) (Tx, error) {
	return nil, errors.New("not supported")
}

func (f *fakeRepo) Exec(ctx context.Context, _ string) error {
	return nil
}

func (f *fakeRepo) Close() {
	f.closed = true
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if repo == nil {
		t.Fatalf("New returned nil repo")
	}

	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, ListKinds())
	}
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error
// without retrying.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist", MaxRetries: 5})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if !strings.Contains(err.Error(), `unsupported kind "does-not-exist"`) {
		t.Fatalf("error = %q", err)
	}
}

// TestRegister_Override verifies that re-registering a kind overrides the
// previous factory (useful for tests and dynamic wiring).
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return &fakeRepo{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return &fakeRepo{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: kind}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 { // only the second factory should have been used
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

// TestListKinds_Snapshot checks that ListKinds returns a copy.
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", func(ctx context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil })

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	a[0] = "mutated"

	b := ListKinds()
	if reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

// TestNew_FactoryErrorWithoutRetries shows factory errors bubble up after a
// single attempt when MaxRetries is zero.
func TestNew_FactoryErrorWithoutRetries(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")
	var calls int32

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		atomic.AddInt32(&calls, 1)
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("factory calls = %d, want 1", n)
	}
}

func TestNew_StopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	kind := "canceled"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, errors.New("unreachable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(ctx, Config{Kind: kind, MaxRetries: 100})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
