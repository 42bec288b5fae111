package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// New opens a Repository of cfg.Kind. Connection attempts are retried with
// exponential backoff up to cfg.MaxRetries times; an unknown kind fails
// immediately.
func New(ctx context.Context, cfg Config) (Repository, error) {
	factory, err := lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	attempt := func() (Repository, error) {
		actx := ctx
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		repo, err := factory(actx, cfg)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return repo, err
	}

	var b backoff.BackOff = backoff.NewExponentialBackOff()
	if cfg.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(cfg.MaxRetries))
	}
	b = backoff.WithContext(b, ctx)

	return backoff.RetryNotifyWithData(attempt, b, func(err error, next time.Duration) {
		log.Warn("storage connect failed, retrying",
			zap.String("kind", cfg.Kind),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})
}
