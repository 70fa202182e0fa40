// Package retry runs provider calls with bounded exponential backoff.
// Only transient failures are retried; everything else returns immediately.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config bounds the retries of a single provider call.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retrying.
	MaxRetries uint64
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration
}

// DefaultConfig returns the retry settings used for single-address providers.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      1,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
	}
}

func (c Config) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		exp.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		exp.MaxInterval = c.MaxInterval
	}
	// The number of retries bounds the call, not wall time.
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, c.MaxRetries), ctx)
}

// Do calls fn until it succeeds, returns a non-transient error, the retry
// budget is spent, or ctx is done. The last error is returned unwrapped.
func Do[T any](
	ctx context.Context,
	cfg Config,
	log *slog.Logger,
	operation string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var result T

	op := func() error {
		val, err := fn(ctx)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = val
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.WarnContext(ctx, "Retrying provider call", "operation", operation, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, cfg.backOff(ctx), notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
