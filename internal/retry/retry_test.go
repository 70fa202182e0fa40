package retry_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/UnknownOlympus/meridian/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries uint64) retry.Config {
	return retry.Config{MaxRetries: retries, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestDo(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		val, err := retry.Do(ctx, fastConfig(3), logger, "test", func(context.Context) (int, error) {
			calls++
			return 42, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 42, val)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient error is retried", func(t *testing.T) {
		calls := 0
		val, err := retry.Do(ctx, fastConfig(3), logger, "test", func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", retry.NewTransientError(errors.New("busy"), http.StatusServiceUnavailable)
			}
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", val)
		assert.Equal(t, 3, calls)
	})

	t.Run("retry budget is bounded", func(t *testing.T) {
		calls := 0
		_, err := retry.Do(ctx, fastConfig(2), logger, "test", func(context.Context) (int, error) {
			calls++
			return 0, retry.NewTransientError(assert.AnError, http.StatusTooManyRequests)
		})

		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 3, calls, "first attempt plus two retries")
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		_, err := retry.Do(ctx, fastConfig(5), logger, "test", func(context.Context) (int, error) {
			calls++
			return 0, assert.AnError
		})

		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero retries", func(t *testing.T) {
		calls := 0
		_, err := retry.Do(ctx, fastConfig(0), logger, "test", func(context.Context) (int, error) {
			calls++
			return 0, retry.NewTransientError(assert.AnError, 0)
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestIsTransient(t *testing.T) {
	assert.False(t, retry.IsTransient(nil))
	assert.False(t, retry.IsTransient(assert.AnError))
	assert.True(t, retry.IsTransient(retry.NewTransientError(assert.AnError, 503)))
	assert.True(t, retry.IsTransient(errors.New("read tcp: i/o timeout")))
	assert.True(t, retry.IsTransient(errors.New("write: connection reset by peer")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, retry.IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 402, 403, 404} {
		assert.False(t, retry.IsTransientHTTPStatus(code), code)
	}
}
