// Package publish formats the accepted review and delivers it through
// the comment sink, exactly once per run.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/reviewpilot/reviewpilot/internal/domain"
)

// ErrPublish indicates the sink rejected the write after a review was
// generated. Terminal, and distinct from generation failures so
// operators can tell "generated but not delivered" apart from "nothing
// generated".
var ErrPublish = errors.New("failed to publish review")

// CommentSink appends one comment to a change set's discussion thread.
type CommentSink interface {
	CreateComment(ctx context.Context, changeSetNumber int, body string) (string, error)
}

var titleCaser = cases.Title(language.English)

// FormatComment builds the single comment body: heading, review text,
// and an attribution footer naming the model that produced it.
func FormatComment(result domain.ReviewResult) string {
	family := titleCaser.String(modelFamily(result.Model))
	return fmt.Sprintf("## 🛡️ Architect Review\n\n%s\n\n---\n*Generated by %s model `%s`*",
		result.Text, family, result.Model)
}

// modelFamily extracts the provider family from a model identifier,
// e.g. "gemini-2.5-pro" → "gemini".
func modelFamily(model string) string {
	if idx := strings.IndexAny(model, "-:/"); idx > 0 {
		return model[:idx]
	}
	return model
}

// Poster publishes the review through a comment sink.
type Poster struct {
	sink CommentSink
}

// NewPoster constructs a Poster.
func NewPoster(sink CommentSink) *Poster {
	return &Poster{sink: sink}
}

// Publish formats and submits the review comment. It performs no retry:
// the transport below owns transient retries, and a rejected write is
// terminal for the run.
func (p *Poster) Publish(ctx context.Context, cs domain.ChangeSet, result domain.ReviewResult) (string, error) {
	body := FormatComment(result)

	url, err := p.sink.CreateComment(ctx, cs.Number, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublish, err)
	}
	if url != "" {
		log.Printf("review comment posted: %s", url)
	}
	return url, nil
}

// WriterSink writes the comment body to a writer instead of a hosting
// API. Used by the local review mode.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink constructs a WriterSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// CreateComment implements CommentSink.
func (s *WriterSink) CreateComment(ctx context.Context, changeSetNumber int, body string) (string, error) {
	if _, err := fmt.Fprintln(s.w, body); err != nil {
		return "", err
	}
	return "", nil
}
