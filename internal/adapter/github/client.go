// Package github is the HTTP adapter for the GitHub REST API: it fetches
// pull-request metadata and file listings, and posts the review comment.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	llmhttp "github.com/reviewpilot/reviewpilot/internal/adapter/llm/http"
	"github.com/reviewpilot/reviewpilot/internal/config"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second

	// filesPerPage is the maximum page size the files endpoint allows.
	filesPerPage = 100
)

// Client is an HTTP client for the GitHub REST API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  llmhttp.RetryConfig
}

// NewClient creates a GitHub API client with the given token.
// The token should be a personal access token or GITHUB_TOKEN from Actions.
func NewClient(token string, httpCfg config.HTTPConfig) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: llmhttp.ParseTimeout(httpCfg.Timeout, defaultTimeout)},
		retryConf:  llmhttp.FromHTTPConfig(httpCfg),
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetMaxRetries sets the maximum number of transport retry attempts.
func (c *Client) SetMaxRetries(maxRetries int) {
	c.retryConf.MaxRetries = maxRetries
}

// SetInitialBackoff sets the initial backoff duration for retries.
func (c *Client) SetInitialBackoff(backoff time.Duration) {
	c.retryConf.InitialBackoff = backoff
}

// GetPullRequest fetches the metadata for one pull request.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)

	var pr PullRequest
	if err := c.getJSON(ctx, url, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ListPullRequestFiles returns the complete changed-file listing for a
// pull request, following pagination in upstream order.
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]PullRequestFile, error) {
	var files []PullRequestFile

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			c.baseURL, owner, repo, number, filesPerPage, page)

		var pageFiles []PullRequestFile
		if err := c.getJSON(ctx, url, &pageFiles); err != nil {
			return nil, err
		}
		files = append(files, pageFiles...)

		if len(pageFiles) < filesPerPage {
			return files, nil
		}
	}
}

// CreateIssueComment appends one comment to the pull request's discussion
// thread. This is the single write the pipeline performs.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*CommentResponse, error) {
	jsonData, err := json.Marshal(CreateCommentRequest{Body: body})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, owner, repo, number)

	var resp *http.Response
	err = llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Provider:  providerName,
			}
		}
		c.setHeaders(req)

		var callErr error
		resp, callErr = c.httpClient.Do(req) //nolint:bodyclose // closed below or in error path
		if callErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Provider:  providerName,
			}
		}
		if resp.StatusCode >= 400 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return MapHTTPError(resp.StatusCode, bodyBytes)
		}
		return nil
	}, c.retryConf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var comment CommentResponse
	if err := json.NewDecoder(resp.Body).Decode(&comment); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &comment, nil
}

// getJSON performs a GET with transport retries and decodes the response.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	var resp *http.Response
	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Provider:  providerName,
			}
		}
		c.setHeaders(req)

		var callErr error
		resp, callErr = c.httpClient.Do(req) //nolint:bodyclose // closed below or in error path
		if callErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Provider:  providerName,
			}
		}
		if resp.StatusCode >= 400 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return MapHTTPError(resp.StatusCode, bodyBytes)
		}
		return nil
	}, c.retryConf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}
