package http

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Logger provides structured logging for outbound API calls.
type Logger interface {
	// LogRequest logs an outgoing API request (API key redacted)
	LogRequest(ctx context.Context, req RequestLog)

	// LogResponse logs an API response with timing and token info
	LogResponse(ctx context.Context, resp ResponseLog)

	// LogError logs an API error
	LogError(ctx context.Context, err ErrorLog)
}

// RequestLog contains request information for logging.
type RequestLog struct {
	Provider    string
	Model       string
	Timestamp   time.Time
	PromptChars int
	APIKey      string // redacted to last 4 chars before output
}

// ResponseLog contains response information for logging.
type ResponseLog struct {
	Provider     string
	Model        string
	Timestamp    time.Time
	Duration     time.Duration
	TokensIn     int
	TokensOut    int
	StatusCode   int
	FinishReason string
	Preview      string // truncated response text, debug output only
}

// ErrorLog contains error information for logging.
type ErrorLog struct {
	Provider   string
	Model      string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	ErrorType  ErrorType
	StatusCode int
	Retryable  bool
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// DefaultLogger writes call logs through the standard logger.
type DefaultLogger struct {
	level      LogLevel
	redactKeys bool
}

// NewDefaultLogger creates a logger with the specified verbosity.
func NewDefaultLogger(level LogLevel, redactKeys bool) *DefaultLogger {
	return &DefaultLogger{level: level, redactKeys: redactKeys}
}

// LogRequest logs an API request.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}
	log.Printf("[DEBUG] %s/%s: request sent (prompt=%d chars, key=%s)",
		req.Provider, req.Model, req.PromptChars, l.RedactAPIKey(req.APIKey))
}

// LogResponse logs an API response.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}
	log.Printf("[INFO] %s/%s: response received (duration=%.1fs, tokens=%d/%d, finish=%s)",
		resp.Provider, resp.Model, resp.Duration.Seconds(),
		resp.TokensIn, resp.TokensOut, resp.FinishReason)
	if l.level <= LogLevelDebug && resp.Preview != "" {
		log.Printf("[DEBUG] %s/%s: response text: %s", resp.Provider, resp.Model, resp.Preview)
	}
}

// LogError logs an API error.
func (l *DefaultLogger) LogError(ctx context.Context, errLog ErrorLog) {
	retryableStr := "non-retryable"
	if errLog.Retryable {
		retryableStr = "retryable"
	}
	log.Printf("[ERROR] %s/%s: API call failed (status=%d, %s): %v",
		errLog.Provider, errLog.Model, errLog.StatusCode, retryableStr, errLog.Error)
}

// RedactAPIKey shows only the last 4 characters of an API key.
func (l *DefaultLogger) RedactAPIKey(key string) string {
	if !l.redactKeys {
		return key
	}
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", key[len(key)-4:])
}
