package connector

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// retryPolicy builds the 50ms -> 200ms -> 800ms exponential backoff named in
// spec.md §4.1: up to 3 retries (4 attempts in all), bounded so it never
// waits past the caller's deadline.
func retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0 // fixed intervals, no jitter
	b.InitialInterval = 50 * time.Millisecond
	b.Multiplier = 4
	b.MaxInterval = 800 * time.Millisecond
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not elapsed time

	return backoff.WithContext(backoff.WithMaxRetries(b, 3), ctx)
}

// withRetry runs op, retrying transient failures per retryPolicy. Non-transient
// errors (including those already tagged apperr) propagate immediately.
func withRetry(ctx context.Context, op func() error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		zap.L().Warn("retrying transient connector error",
			zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, retryPolicy(ctx))
}
