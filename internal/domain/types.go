// Package domain holds the core types shared across the review pipeline.
package domain

// File statuses as reported by the change-set source.
const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusRemoved  = "removed"
	FileStatusRenamed  = "renamed"
)

// ChangeSet is a snapshot of one pull/merge request: its metadata and the
// filtered per-file patches. It is built once per run and never mutated.
type ChangeSet struct {
	Number      int
	Title       string
	Description string
	HeadSHA     string
	Files       []FileDiff
}

// HasReviewableContent reports whether any file carries patch text.
// A ChangeSet where every file was filtered out is still valid; the
// pipeline treats it as "nothing to review" and exits cleanly.
func (c ChangeSet) HasReviewableContent() bool {
	for _, f := range c.Files {
		if f.Patch != "" {
			return true
		}
	}
	return false
}

// FileDiff captures the change for a single file within a change set.
type FileDiff struct {
	Path string

	// Status is one of the FileStatus constants.
	Status string

	// Patch is the unified diff text. Empty when the source could not
	// provide one (binary file, pure rename, diff too large upstream).
	Patch string

	// Changes is the changed-line count reported by the source.
	Changes int

	// Truncated marks a patch that was cut at the configured byte limit.
	Truncated bool
}

// ReviewResult is the accepted review text plus the model that produced it.
type ReviewResult struct {
	Text  string
	Model string
}
