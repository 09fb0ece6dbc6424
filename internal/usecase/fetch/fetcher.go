// Package fetch turns a raw change set from a source into the filtered,
// size-bounded change set the review pipeline works on.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/reviewpilot/reviewpilot/internal/domain"
)

// ErrMissingCredentials indicates required source credentials or
// identifiers are absent. Pre-flight, fatal.
var ErrMissingCredentials = errors.New("missing source credentials")

// ErrSourceUnavailable indicates the change-set source could not deliver
// the change set (API failure, unknown change-set number). Fatal.
var ErrSourceUnavailable = errors.New("change-set source unavailable")

// TruncationMarker is appended to any patch cut at the size limit.
const TruncationMarker = "\n... [patch truncated]"

// Source delivers the raw, unfiltered change set.
type Source interface {
	FetchChangeSet(ctx context.Context) (domain.ChangeSet, error)
}

// Options controls the filtering policy.
type Options struct {
	// Extensions lists reviewable file suffixes.
	Extensions []string

	// ExcludedPaths lists substrings that disqualify a path.
	ExcludedPaths []string

	// MaxPatchBytes truncates longer patches; zero disables truncation.
	MaxPatchBytes int
}

// Fetcher retrieves and filters one change set.
type Fetcher struct {
	source Source
	opts   Options
}

// NewFetcher constructs a Fetcher over the given source.
func NewFetcher(source Source, opts Options) *Fetcher {
	return &Fetcher{source: source, opts: opts}
}

// Fetch returns the filtered change set. A change set where every file
// was filtered out is returned as-is, not as an error: the caller decides
// that nothing needs reviewing.
func (f *Fetcher) Fetch(ctx context.Context) (domain.ChangeSet, error) {
	cs, err := f.source.FetchChangeSet(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			return domain.ChangeSet{}, err
		}
		return domain.ChangeSet{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	cs.Files = f.filterFiles(cs.Files)
	return cs, nil
}

// filterFiles applies the filtering policy per file, in fetch order:
// removed files, excluded paths and non-reviewable extensions are
// dropped; files without patch text are skipped with a logged reason;
// oversized patches are truncated, never rejected.
func (f *Fetcher) filterFiles(files []domain.FileDiff) []domain.FileDiff {
	kept := make([]domain.FileDiff, 0, len(files))
	for _, fd := range files {
		if fd.Status == domain.FileStatusRemoved {
			continue
		}
		if f.isExcluded(fd.Path) {
			continue
		}
		if !f.hasReviewableExtension(fd.Path) {
			continue
		}
		if fd.Patch == "" {
			log.Printf("warning: no patch available for %s (binary file, rename, or diff too large), skipping", fd.Path)
			continue
		}
		if f.opts.MaxPatchBytes > 0 && len(fd.Patch) > f.opts.MaxPatchBytes {
			log.Printf("warning: patch for %s exceeds %d bytes, truncating", fd.Path, f.opts.MaxPatchBytes)
			fd.Patch = fd.Patch[:f.opts.MaxPatchBytes] + TruncationMarker
			fd.Truncated = true
		}
		kept = append(kept, fd)
	}
	return kept
}

func (f *Fetcher) isExcluded(path string) bool {
	for _, fragment := range f.opts.ExcludedPaths {
		if fragment != "" && strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

func (f *Fetcher) hasReviewableExtension(path string) bool {
	for _, ext := range f.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
