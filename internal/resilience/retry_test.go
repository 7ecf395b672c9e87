package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff() Backoff {
	return Backoff{Attempts: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond, Name: "test"}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastBackoff(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestRetry_SuccessAfterTransient(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastBackoff(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &StatusError{StatusCode: 503}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastBackoff(), func(context.Context) (int, error) {
		calls++
		return 0, &StatusError{StatusCode: 500}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_NonTransientStopsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastBackoff(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("malformed")
	})
	require.EqualError(t, err, "malformed")
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	b := Backoff{Attempts: 5, Initial: time.Second, Max: time.Second}
	_, err := Retry(ctx, b, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &StatusError{StatusCode: 503}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_DelayCapped(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond}.normalized()
	assert.Equal(t, 100*time.Millisecond, b.delay(0))
	assert.Equal(t, 200*time.Millisecond, b.delay(1))
	assert.Equal(t, 300*time.Millisecond, b.delay(5))
}
