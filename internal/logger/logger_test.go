package logger

import (
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	prod, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if prod.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("production logger must not log debug")
	}

	dev, err := New(Config{Debug: true})
	if err != nil {
		t.Fatalf("New(debug): %v", err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug logger must log debug")
	}
}

func TestNewWithSentryClient(t *testing.T) {
	t.Parallel()

	// An empty DSN gives a client that drops events instead of sending them.
	client, err := sentry.NewClient(sentry.ClientOptions{})
	if err != nil {
		t.Fatalf("sentry client: %v", err)
	}
	l, err := New(Config{SentryClient: client, Tags: map[string]string{"job": "songplays"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.sentry != client {
		t.Fatal("sentry client not kept")
	}
	l.Error("forwarded")
	l.Close(10 * time.Millisecond)
}

func TestNewBadDSN(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{SentryDSN: "::not a dsn"}); err == nil {
		t.Fatal("malformed DSN must fail")
	}
}
