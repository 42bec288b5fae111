// Package storage contains the storage-agnostic contracts of the pipeline and
// the components built purely on top of them: the staging merger, the batched
// fact writer, the song catalog and the DDL helpers.
//
// Concrete backends (postgres, sqlite, mssql, mysql) live in subpackages and register
// a Factory for their kind at init time. Callers obtain a Repository through
// New and never import a backend directly; see storage/all.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoRows is returned by Row.Scan when a query matched nothing. Backends map
// their driver-specific sentinel onto it.
var ErrNoRows = errors.New("storage: no rows in result set")

// Repository is an open connection (pool) to one database.
type Repository interface {
	// Dialect renders backend-specific SQL from the schema object.
	Dialect() Dialect

	// Begin starts a transaction. All per-file work runs inside one.
	Begin(ctx context.Context) (Tx, error)

	// Exec runs a standalone statement outside any transaction (DDL).
	Exec(ctx context.Context, sql string) error

	Close()
}

// Tx is a database transaction. Implementations are not safe for concurrent
// use.
type Tx interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// QueryRow runs a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// CopyFrom bulk-writes rows (aligned to columns) into table using the
	// backend's fastest primitive and returns the number of rows written.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Row is a single query result.
type Row interface {
	Scan(dest ...any) error
}

// Config carries everything a backend factory needs to open a Repository.
type Config struct {
	Kind string
	DSN  string

	// ConnectTimeout bounds every single connection attempt. Zero means no
	// per-attempt timeout.
	ConnectTimeout time.Duration

	// MaxRetries is the number of additional connection attempts after the
	// first one fails.
	MaxRetries int

	// Logger receives retry notifications. Nil disables them.
	Logger *zap.Logger
}

// Factory opens a Repository for a registered kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind. Backends call it from
// their init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered backend kinds in sorted order.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lookup(kind string) (Factory, error) {
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", kind, ListKinds())
	}
	return f, nil
}
