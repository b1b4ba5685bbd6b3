package httpx

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds a caller-side retry loop. The HTTP client itself never
// retries; callers opt in per operation with Retry.
type RetryPolicy struct {
	// MaxAttempts counts the initial call plus retries. Zero means DefaultRetryPolicy's value.
	MaxAttempts uint64

	// InitialInterval is the first backoff delay; doubles (with jitter) up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times with exponential backoff and jitter.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     4,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
}

// Retry runs op until it succeeds, the policy is exhausted, the context ends,
// or retryable reports an error as permanent. A nil retryable retries every
// failure. Returns the last error observed.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, op func() error) error {
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if policy.InitialInterval == 0 {
		policy.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if policy.MaxInterval == 0 {
		policy.MaxInterval = DefaultRetryPolicy.MaxInterval
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by attempts and context, not wall clock

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, policy.MaxAttempts-1), ctx))
}
