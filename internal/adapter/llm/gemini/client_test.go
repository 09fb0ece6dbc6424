package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpilot/reviewpilot/internal/adapter/llm/gemini"
	llmhttp "github.com/reviewpilot/reviewpilot/internal/adapter/llm/http"
	"github.com/reviewpilot/reviewpilot/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *gemini.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gemini.NewClient("test-key", config.HTTPConfig{Timeout: "5s"})
	client.SetBaseURL(server.URL)
	return client
}

func successResponse(text string) gemini.GenerateContentResponse {
	return gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{
			{
				Content:      gemini.Content{Parts: []gemini.Part{{Text: text}}, Role: "model"},
				FinishReason: "STOP",
			},
		},
		UsageMetadata: gemini.UsageMetadata{PromptTokenCount: 100, CandidatesTokenCount: 50},
	}
}

func TestGenerateSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req gemini.GenerateContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "review this", req.Contents[0].Parts[0].Text)
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, 2048, req.GenerationConfig.MaxOutputTokens)
		assert.InDelta(t, 0.2, req.GenerationConfig.Temperature, 0.001)

		json.NewEncoder(w).Encode(successResponse("the review text"))
	}))

	text, err := client.Generate(context.Background(), "gemini-2.5-pro", "review this",
		gemini.GenerateOptions{MaxOutputTokens: 2048, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "the review text", text)
}

func TestGenerateJoinsMultipleParts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := successResponse("")
		resp.Candidates[0].Content.Parts = []gemini.Part{{Text: "first "}, {Text: "second"}}
		json.NewEncoder(w).Encode(resp)
	}))

	text, err := client.Generate(context.Background(), "gemini-2.5-flash", "p", gemini.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "first second", text)
}

func TestGenerateRateLimitPreservesMessage(t *testing.T) {
	// The 429 body carries the provider's retry hint; the error message
	// must keep it verbatim so the fallback controller can parse a delay.
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(gemini.ErrorResponse{
			Error: gemini.ErrorDetail{
				Code:    429,
				Message: "Quota exceeded. Please retry in 27 seconds.",
				Status:  "RESOURCE_EXHAUSTED",
			},
		})
	}))

	_, err := client.Generate(context.Background(), "gemini-2.5-pro", "p", gemini.GenerateOptions{})
	require.Error(t, err)

	// The client itself never retries.
	assert.Equal(t, 1, attempts)

	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeRateLimit, httpErr.Type)
	assert.True(t, httpErr.Retryable)
	assert.Contains(t, httpErr.Message, "RESOURCE_EXHAUSTED")
	assert.Contains(t, httpErr.Message, "retry in 27 seconds")
}

func TestGenerateAuthenticationFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(gemini.ErrorResponse{
			Error: gemini.ErrorDetail{Code: 403, Message: "API key not valid", Status: "PERMISSION_DENIED"},
		})
	}))

	_, err := client.Generate(context.Background(), "gemini-2.5-pro", "p", gemini.GenerateOptions{})
	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeAuthentication, httpErr.Type)
	assert.False(t, httpErr.Retryable)
}

func TestGenerateModelNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(gemini.ErrorResponse{
			Error: gemini.ErrorDetail{Code: 404, Message: "model not found", Status: "NOT_FOUND"},
		})
	}))

	_, err := client.Generate(context.Background(), "gemini-nonexistent", "p", gemini.GenerateOptions{})
	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeModelNotFound, httpErr.Type)
}

func TestGenerateSafetyBlock(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := successResponse("")
		resp.Candidates[0].FinishReason = "SAFETY"
		json.NewEncoder(w).Encode(resp)
	}))

	_, err := client.Generate(context.Background(), "gemini-2.5-pro", "p", gemini.GenerateOptions{})
	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeContentFiltered, httpErr.Type)
	assert.False(t, httpErr.Retryable)
}

func TestGenerateEmptyCandidates(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gemini.GenerateContentResponse{})
	}))

	_, err := client.Generate(context.Background(), "gemini-2.5-pro", "p", gemini.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

type recordingLogger struct {
	responses []llmhttp.ResponseLog
}

func (l *recordingLogger) LogRequest(ctx context.Context, req llmhttp.RequestLog) {}

func (l *recordingLogger) LogResponse(ctx context.Context, resp llmhttp.ResponseLog) {
	l.responses = append(l.responses, resp)
}

func (l *recordingLogger) LogError(ctx context.Context, errLog llmhttp.ErrorLog) {}

func TestGenerateLogsTruncatedPreview(t *testing.T) {
	longText := strings.Repeat("x", llmhttp.MaxLoggedResponseLength+50)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(successResponse(longText))
	}))
	logger := &recordingLogger{}
	client.SetLogger(logger)

	text, err := client.Generate(context.Background(), "gemini-2.5-pro", "p", gemini.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, longText, text)

	require.Len(t, logger.responses, 1)
	preview := logger.responses[0].Preview
	assert.Less(t, len(preview), len(longText))
	assert.True(t, strings.HasPrefix(preview, strings.Repeat("x", llmhttp.MaxLoggedResponseLength)))
	assert.Contains(t, preview, "truncated")
}

func TestGenerateNonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream exploded"))
	}))

	_, err := client.Generate(context.Background(), "gemini-2.5-pro", "p", gemini.GenerateOptions{})
	var httpErr *llmhttp.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, llmhttp.ErrTypeServiceUnavailable, httpErr.Type)
	assert.Contains(t, httpErr.Message, "HTTP 503")
}
