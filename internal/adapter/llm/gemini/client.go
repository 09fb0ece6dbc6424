// Package gemini is the HTTP adapter for the Google Gemini generateContent
// API. The model identifier is supplied per call so a single client can
// serve the whole fallback candidate list.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	llmhttp "github.com/reviewpilot/reviewpilot/internal/adapter/llm/http"
	"github.com/reviewpilot/reviewpilot/internal/config"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 60 * time.Second
)

// Client is an HTTP client for the Gemini generateContent endpoint.
//
// It deliberately performs no retries: failure handling, including
// rate-limit backoff, is owned by the fallback controller, which needs to
// see every failure to decide between retrying a model and advancing to
// the next one.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client

	logger llmhttp.Logger
}

// NewClient creates a Gemini client using the shared HTTP configuration.
func NewClient(apiKey string, httpCfg config.HTTPConfig) *Client {
	timeout := llmhttp.ParseTimeout(httpCfg.Timeout, defaultTimeout)
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetLogger sets the call logger for this client.
func (c *Client) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

// GenerateOptions carries the generation parameters for one call.
type GenerateOptions struct {
	MaxOutputTokens int
	Temperature     float64
}

// Generate sends the prompt to the named model and returns the generated
// text. Errors are typed *llmhttp.Error where the failure was an API
// response, so callers can classify without string matching.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	startTime := time.Now()

	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    providerName,
			Model:       model,
			Timestamp:   startTime,
			PromptChars: len(prompt),
			APIKey:      c.apiKey,
		})
	}

	reqBody := GenerateContentRequest{
		Contents: []Content{
			{Parts: []Part{{Text: prompt}}},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxOutputTokens,
			CandidateCount:  1,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		callErr := &llmhttp.Error{
			Type:      llmhttp.ErrTypeTimeout,
			Message:   llmhttp.RedactURLSecrets(err.Error()),
			Retryable: true,
			Provider:  providerName,
		}
		c.logError(ctx, model, startTime, callErr)
		return "", callErr
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := c.mapErrorResponse(resp.StatusCode, bodyBytes)
		c.logError(ctx, model, startTime, apiErr)
		return "", apiErr
	}

	var genResp GenerateContentResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := genResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", &llmhttp.Error{
			Type:      llmhttp.ErrTypeContentFiltered,
			Message:   "content blocked by safety filters",
			Retryable: false,
			Provider:  providerName,
		}
	}

	var textParts []string
	for _, part := range candidate.Content.Parts {
		textParts = append(textParts, part.Text)
	}
	text := strings.Join(textParts, "")

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:     providerName,
			Model:        model,
			Timestamp:    time.Now(),
			Duration:     time.Since(startTime),
			TokensIn:     genResp.UsageMetadata.PromptTokenCount,
			TokensOut:    genResp.UsageMetadata.CandidatesTokenCount,
			StatusCode:   resp.StatusCode,
			FinishReason: candidate.FinishReason,
			Preview:      llmhttp.TruncateForLogging(text),
		})
	}

	return text, nil
}

func (c *Client) logError(ctx context.Context, model string, start time.Time, err error) {
	if c.logger == nil {
		return
	}
	var httpErr *llmhttp.Error
	if !errors.As(err, &httpErr) {
		return
	}
	c.logger.LogError(ctx, llmhttp.ErrorLog{
		Provider:   providerName,
		Model:      model,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
		Error:      err,
		ErrorType:  httpErr.Type,
		StatusCode: httpErr.StatusCode,
		Retryable:  httpErr.Retryable,
	})
}

// mapErrorResponse maps HTTP status codes to typed errors. The upstream
// message is preserved verbatim: the fallback controller parses it for a
// suggested retry delay.
func (c *Client) mapErrorResponse(statusCode int, body []byte) *llmhttp.Error {
	message := fmt.Sprintf("HTTP %d", statusCode)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		if errResp.Error.Status != "" {
			message = errResp.Error.Status + ": " + message
		}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeAuthentication,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	case http.StatusTooManyRequests:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeRateLimit,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Provider:   providerName,
		}
	case http.StatusNotFound:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeModelNotFound,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	case http.StatusBadRequest:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeInvalidRequest,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeServiceUnavailable,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Provider:   providerName,
		}
	default:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	}
}
