package github

// GitHub REST API types for the pull-request and issue-comment endpoints.
// See: https://docs.github.com/en/rest/pulls/pulls
//      https://docs.github.com/en/rest/issues/comments

// PullRequest is the subset of GET /repos/{owner}/{repo}/pulls/{number}
// the pipeline needs.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Head   Ref    `json:"head"`
}

// Ref identifies one side of a pull request.
type Ref struct {
	SHA string `json:"sha"`
	Ref string `json:"ref"`
}

// PullRequestFile is one entry of GET /repos/{owner}/{repo}/pulls/{number}/files.
type PullRequestFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"` // added, modified, removed, renamed, ...
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`

	// Patch is omitted by the API for binary files and very large diffs.
	Patch string `json:"patch"`
}

// CreateCommentRequest is the body for POST /repos/{owner}/{repo}/issues/{number}/comments.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CommentResponse is the created issue comment.
type CommentResponse struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
}

// ErrorResponse represents an error response from the GitHub API.
type ErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
