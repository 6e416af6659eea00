package httputil

import (
	"context"
	"errors"
	"time"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Coded fetch errors are classified by [errs.IsRetryable] and need no
// wrapping; use this type for other transient failures.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times with exponential backoff.
// It retries errors wrapped with [RetryableError] and coded errors that
// [errs.IsRetryable] accepts (transport failures, 5xx and 429 responses);
// other errors are returned immediately. The delay doubles after each failed
// attempt. Returns the last error if all attempts fail, or ctx.Err() if
// cancelled while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff is a convenience wrapper around [Retry] with sensible
// defaults: 3 attempts with 1 second initial delay (doubling each retry).
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

// RetryValue is [Retry] for functions that return a value.
func RetryValue[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var out T
	err := Retry(ctx, attempts, delay, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError)) || errs.IsRetryable(err)
}
