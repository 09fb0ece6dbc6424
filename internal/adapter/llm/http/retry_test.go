package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpilot/reviewpilot/internal/config"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetryWithBackoffSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &Error{Type: ErrTypeServiceUnavailable, Retryable: true}
		}
		return nil
	}, fastRetryConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	authErr := &Error{Type: ErrTypeAuthentication, Retryable: false}
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return authErr
	}, fastRetryConfig())

	assert.Equal(t, 1, attempts)
	assert.True(t, errors.Is(err, authErr))
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return &Error{Type: ErrTypeServiceUnavailable, Retryable: true}
	}, fastRetryConfig())

	require.Error(t, err)
	// Initial attempt plus MaxRetries retries.
	assert.Equal(t, 4, attempts)
}

func TestRetryWithBackoffRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		t.Fatal("operation must not run after cancellation")
		return nil
	}, fastRetryConfig())

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetryWithBackoffPlainErrorsAreNotRetried(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("not a typed error")
	}, fastRetryConfig())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExponentialBackoffBounds(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}

	for attempt := 0; attempt < 10; attempt++ {
		d := ExponentialBackoff(attempt, cfg)
		assert.GreaterOrEqual(t, d, time.Duration(0), "attempt %d", attempt)
		assert.LessOrEqual(t, d, cfg.MaxBackoff, "attempt %d", attempt)
	}

	// Early attempts stay near the initial backoff despite jitter.
	d := ExponentialBackoff(0, cfg)
	assert.GreaterOrEqual(t, d, 75*time.Millisecond)
	assert.LessOrEqual(t, d, 125*time.Millisecond)
}

func TestParseTimeout(t *testing.T) {
	def := 30 * time.Second
	assert.Equal(t, 5*time.Second, ParseTimeout("5s", def))
	assert.Equal(t, def, ParseTimeout("", def))
	assert.Equal(t, def, ParseTimeout("not-a-duration", def))
	assert.Equal(t, def, ParseTimeout("-5s", def))
}

func TestFromHTTPConfig(t *testing.T) {
	rc := FromHTTPConfig(config.HTTPConfig{
		MaxRetries:        5,
		InitialBackoff:    "500ms",
		MaxBackoff:        "10s",
		BackoffMultiplier: 3.0,
	})
	assert.Equal(t, 5, rc.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, rc.InitialBackoff)
	assert.Equal(t, 10*time.Second, rc.MaxBackoff)
	assert.Equal(t, 3.0, rc.Multiplier)

	// Zero config falls back to defaults.
	defaults := FromHTTPConfig(config.HTTPConfig{})
	assert.Equal(t, DefaultRetryConfig(), defaults)
}
