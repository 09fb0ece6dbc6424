package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/reviewpilot/reviewpilot/internal/domain"
)

// Source adapts the API client to the fetch.Source port for one pull
// request.
type Source struct {
	client *Client
	owner  string
	repo   string
	number int
}

// NewSource builds a Source for "owner/name" and a pull request number.
func NewSource(client *Client, repository string, number int) (*Source, error) {
	owner, repo, err := SplitRepository(repository)
	if err != nil {
		return nil, err
	}
	return &Source{client: client, owner: owner, repo: repo, number: number}, nil
}

// SplitRepository parses an "owner/name" identifier.
func SplitRepository(repository string) (owner, repo string, err error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/name", repository)
	}
	return parts[0], parts[1], nil
}

// FetchChangeSet retrieves the pull request's metadata and file listing.
// File order follows the API's listing order.
func (s *Source) FetchChangeSet(ctx context.Context) (domain.ChangeSet, error) {
	pr, err := s.client.GetPullRequest(ctx, s.owner, s.repo, s.number)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("fetch pull request %d: %w", s.number, err)
	}

	apiFiles, err := s.client.ListPullRequestFiles(ctx, s.owner, s.repo, s.number)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("list files for pull request %d: %w", s.number, err)
	}

	files := make([]domain.FileDiff, 0, len(apiFiles))
	for _, f := range apiFiles {
		files = append(files, domain.FileDiff{
			Path:    f.Filename,
			Status:  f.Status,
			Patch:   f.Patch,
			Changes: f.Changes,
		})
	}

	return domain.ChangeSet{
		Number:      pr.Number,
		Title:       pr.Title,
		Description: pr.Body,
		HeadSHA:     pr.Head.SHA,
		Files:       files,
	}, nil
}
