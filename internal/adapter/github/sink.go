package github

import (
	"context"
	"fmt"
)

// CommentSink adapts the API client to the publish.CommentSink port.
type CommentSink struct {
	client *Client
	owner  string
	repo   string
}

// NewCommentSink builds a CommentSink for "owner/name".
func NewCommentSink(client *Client, repository string) (*CommentSink, error) {
	owner, repo, err := SplitRepository(repository)
	if err != nil {
		return nil, err
	}
	return &CommentSink{client: client, owner: owner, repo: repo}, nil
}

// CreateComment posts the comment and returns its URL.
func (s *CommentSink) CreateComment(ctx context.Context, changeSetNumber int, body string) (string, error) {
	resp, err := s.client.CreateIssueComment(ctx, s.owner, s.repo, changeSetNumber, body)
	if err != nil {
		return "", fmt.Errorf("post comment on #%d: %w", changeSetNumber, err)
	}
	return resp.HTMLURL, nil
}
