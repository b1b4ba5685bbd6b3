package httpx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func fastPolicy(attempts uint64) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), fastPolicy(4), nil, func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), fastPolicy(3), nil, func() error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorStopsEarly(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent")
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestRetry_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryPolicy{MaxAttempts: 10, InitialInterval: time.Hour}, nil, func() error {
		calls++
		cancel()
		return errTransient
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestRetry_ZeroPolicyUsesDefaults(t *testing.T) {
	t.Parallel()

	err := Retry(context.Background(), RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, nil, func() error {
		return nil
	})
	require.NoError(t, err)
}
