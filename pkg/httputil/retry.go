package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an error as transient. [Retry] only repeats
// operations that fail with an error wrapping this type.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times, doubling delay after each failed
// attempt. Errors not wrapped with [RetryableError] are returned immediately,
// as is ctx.Err() when ctx ends during a backoff. After the last attempt the
// returned error is the one from fn, still wrapped.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
				delay *= 2
			}
		}
	}
	return lastErr
}

// IsRetryable reports whether err wraps a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
