package utils

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the default retry configuration, used for
// idempotent reads against external services. Order-mutating calls must opt
// in explicitly; they are only retried when idempotent at the exchange.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

func (cfg RetryConfig) schedule() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    cfg.InitialDelay,
		Max:    cfg.MaxDelay,
		Factor: cfg.BackoffFactor,
		Jitter: true,
	}
}

// Retry executes a function with exponential backoff retry.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	b := cfg.schedule()

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == cfg.MaxAttempts-1 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Duration()):
			}
		} else {
			return nil
		}
	}

	return lastErr
}

// RetryWithResult executes a function with exponential backoff retry and returns a result.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	b := cfg.schedule()

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err != nil {
			lastErr = err

			if attempt == cfg.MaxAttempts-1 {
				break
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(b.Duration()):
			}
		} else {
			return result, nil
		}
	}

	return zero, lastErr
}

// WithTimeout runs fn under a deadline derived from ctx. Used to bound every
// external call so one slow dependency cannot stall a whole monitoring cycle.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
