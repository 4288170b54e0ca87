package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDelay_ExponentialAndCapped(t *testing.T) {
	cfg := RateLimitConfig()

	assert.Equal(t, 1500*time.Millisecond, Delay(cfg, 1))
	assert.Equal(t, 3*time.Second, Delay(cfg, 2))
	assert.Equal(t, 6*time.Second, Delay(cfg, 3))
	assert.Equal(t, 30*time.Second, Delay(cfg, 10))
	assert.Equal(t, Delay(cfg, 1), Delay(cfg, 0))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	d, ok := RetryAfter("2", now)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	d, ok = RetryAfter(now.Add(5*time.Second).Format(http.TimeFormat), now)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	_, ok = RetryAfter("", now)
	assert.False(t, ok)
	_, ok = RetryAfter("soon", now)
	assert.False(t, ok)
	_, ok = RetryAfter("-1", now)
	assert.False(t, ok)
}

func TestWithBackoff_SucceedsAfterFailures(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	calls := 0
	err := WithBackoff(context.Background(), cfg, zap.NewNop(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_Exhausted(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	err := WithBackoff(context.Background(), cfg, zap.NewNop(), "op", func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op failed after 2 attempts")
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
