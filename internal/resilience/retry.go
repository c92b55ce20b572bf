package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Strob0t/taskboard/internal/port/database"
)

// Retry re-runs idempotent operations with exponential backoff.
type Retry struct {
	maxAttempts     uint
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewRetry returns a Retry that makes at most maxAttempts calls.
// maxAttempts of 1 disables retrying.
func NewRetry(maxAttempts uint, initial, maxInterval time.Duration) *Retry {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	return &Retry{
		maxAttempts:     maxAttempts,
		initialInterval: initial,
		maxInterval:     maxInterval,
	}
}

// Do runs fn until it succeeds, returns a permanent error, the attempts are
// used up, or ctx is done. Errors for which retryable returns false stop
// immediately and are returned unchanged.
func Do[T any](ctx context.Context, r *Retry, retryable func(error) bool, fn func() (T, error)) (T, error) {
	if r == nil || r.maxAttempts <= 1 {
		return fn()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.maxAttempts))
}

// Transient reports whether err is worth retrying against storage.
// Open circuits, context errors and the store's permanent errors (bad
// cursors, undecodable records, rejected requests) are not.
func Transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCircuitOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		database.Permanent(err):
		return false
	}
	return true
}
