// Package logger builds the process zap logger, optionally forwarding
// error-level entries to Sentry.
package logger

import (
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration.
type Config struct {
	Debug     bool
	SentryDSN string
	// SentryClient overrides the client built from SentryDSN (tests).
	SentryClient *sentry.Client
	Tags         map[string]string
}

// Logger is a zap logger plus the Sentry client it reports to, if any.
type Logger struct {
	*zap.Logger
	sentry *sentry.Client
}

// New builds a production JSON logger, or a development console logger at
// debug level when cfg.Debug is set.
func New(cfg Config) (*Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Debug {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := zc.Build()
	if err != nil {
		return nil, err
	}

	client := cfg.SentryClient
	if client == nil && cfg.SentryDSN != "" {
		client, err = sentry.NewClient(sentry.ClientOptions{Dsn: cfg.SentryDSN, Debug: cfg.Debug})
		if err != nil {
			return nil, err
		}
	}
	if client == nil {
		return &Logger{Logger: base}, nil
	}

	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   zapcore.InfoLevel,
		Tags:              cfg.Tags,
	}, zapsentry.NewSentryClientFromClient(client))
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zapsentry.AttachCoreToLogger(core, base), sentry: client}, nil
}

// Close syncs the logger and flushes pending Sentry events.
func (l *Logger) Close(timeout time.Duration) {
	_ = l.Sync()
	if l.sentry != nil {
		l.sentry.Flush(timeout)
	}
}
