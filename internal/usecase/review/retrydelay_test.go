package review

import (
	"testing"
	"time"
)

func TestParseRetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected time.Duration
		found    bool
	}{
		{
			name:     "retry in N seconds",
			message:  "Rate limit exceeded. Retry in 7 seconds.",
			expected: 7 * time.Second,
			found:    true,
		},
		{
			name:     "retry after N seconds",
			message:  "quota exhausted, retry after 30 seconds",
			expected: 30 * time.Second,
			found:    true,
		},
		{
			name:     "wait N seconds",
			message:  "please wait 12 seconds and try again",
			expected: 12 * time.Second,
			found:    true,
		},
		{
			name:     "singular second",
			message:  "retry in 1 second",
			expected: 1 * time.Second,
			found:    true,
		},
		{
			name:     "fractional seconds",
			message:  "retry in 2.5 seconds",
			expected: 2500 * time.Millisecond,
			found:    true,
		},
		{
			name:     "seconds before retry",
			message:  "allow 45 seconds before retrying",
			expected: 45 * time.Second,
			found:    true,
		},
		{
			name:     "structured retryDelay field",
			message:  `RESOURCE_EXHAUSTED: quota exceeded {"retryDelay": "19s"}`,
			expected: 19 * time.Second,
			found:    true,
		},
		{
			name:     "bare 429 marker",
			message:  "429 Too Many Requests",
			expected: DefaultRetryDelay,
			found:    true,
		},
		{
			name:     "bare resource exhausted marker",
			message:  "RESOURCE_EXHAUSTED: resource exhausted for this project",
			expected: DefaultRetryDelay,
			found:    true,
		},
		{
			name:    "rate limit without any delay hint",
			message: "too many requests, slow down",
			found:   false,
		},
		{
			name:    "unrelated message",
			message: "internal server error",
			found:   false,
		},
		{
			name:    "empty message",
			message: "",
			found:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, found := ParseRetryDelay(tt.message)
			if found != tt.found {
				t.Fatalf("ParseRetryDelay(%q) found = %v, want %v", tt.message, found, tt.found)
			}
			if found && delay != tt.expected {
				t.Errorf("ParseRetryDelay(%q) = %v, want %v", tt.message, delay, tt.expected)
			}
		})
	}
}

func TestParseRetryDelayIsCaseInsensitive(t *testing.T) {
	delay, found := ParseRetryDelay("RETRY IN 9 SECONDS")
	if !found {
		t.Fatal("expected a delay to be found")
	}
	if delay != 9*time.Second {
		t.Errorf("got %v, want 9s", delay)
	}
}

func TestParseRetryDelayPrefersNumericOverMarker(t *testing.T) {
	// A message carrying both a bare marker and a numeric delay uses the
	// numeric value.
	delay, found := ParseRetryDelay("429: rate limit hit, retry in 20 seconds")
	if !found {
		t.Fatal("expected a delay to be found")
	}
	if delay != 20*time.Second {
		t.Errorf("got %v, want 20s", delay)
	}
}

func TestParseRetryDelayBareRateLimitMarkers(t *testing.T) {
	// A plain rate-limit status with no duration still earns the default
	// wait, so the controller gives the model one backed-off retry
	// instead of abandoning it immediately.
	for _, message := range []string{
		"429 Too Many Requests",
		"RESOURCE_EXHAUSTED: resource exhausted",
	} {
		delay, found := ParseRetryDelay(message)
		if !found {
			t.Errorf("ParseRetryDelay(%q) found nothing, want default delay", message)
			continue
		}
		if delay != DefaultRetryDelay {
			t.Errorf("ParseRetryDelay(%q) = %v, want %v", message, delay, DefaultRetryDelay)
		}
	}
}
