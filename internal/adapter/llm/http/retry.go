package http

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/reviewpilot/reviewpilot/internal/config"
)

// RetryConfig holds configuration for transport-level retry logic.
//
// Note this retry loop covers transient transport failures only (the
// GitHub API). The model fallback controller owns its own retry policy
// and calls the Gemini client without transport retries, so a rate limit
// is surfaced to it on the first failure.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     32 * time.Second,
		Multiplier:     2.0,
	}
}

// FromHTTPConfig builds a RetryConfig from the shared HTTP configuration,
// falling back to defaults for missing or malformed values.
func FromHTTPConfig(cfg config.HTTPConfig) RetryConfig {
	rc := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		rc.MaxRetries = cfg.MaxRetries
	}
	rc.InitialBackoff = parseDuration(cfg.InitialBackoff, rc.InitialBackoff)
	rc.MaxBackoff = parseDuration(cfg.MaxBackoff, rc.MaxBackoff)
	if cfg.BackoffMultiplier > 0 {
		rc.Multiplier = cfg.BackoffMultiplier
	}
	return rc
}

// ParseTimeout parses the configured timeout, falling back to defaultVal.
// Negative durations are rejected (they would panic in http.Client).
func ParseTimeout(configured string, defaultVal time.Duration) time.Duration {
	return parseDuration(configured, defaultVal)
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			return d
		}
	}
	return defaultVal
}

// ExponentialBackoff calculates wait time with jitter.
// Formula: min(initial * multiplier^attempt, maxBackoff) ± 25% jitter
func ExponentialBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	jitterRange := 0.25 * backoff
	result := backoff + (rand.Float64()*2*jitterRange - jitterRange)

	if result > float64(config.MaxBackoff) {
		result = float64(config.MaxBackoff)
	}
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}

// ShouldRetry determines if an error is retryable at the transport level.
func ShouldRetry(err error) bool {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	return false
}

// Operation is a function that can be retried.
type Operation func(ctx context.Context) error

// RetryWithBackoff executes an operation with exponential backoff retry logic.
func RetryWithBackoff(ctx context.Context, operation Operation, config RetryConfig) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ShouldRetry(err) {
			return err
		}
		if attempt >= config.MaxRetries {
			return err
		}

		select {
		case <-time.After(ExponentialBackoff(attempt, config)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
