// Package review contains the review pipeline: prompt assembly, the
// model fallback controller, and the run orchestrator.
package review

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/reviewpilot/reviewpilot/internal/domain"
)

// ErrPolicyUnavailable indicates the review policy text could not be
// loaded. Fatal to the run.
var ErrPolicyUnavailable = errors.New("review policy unavailable")

// descriptionPlaceholder stands in for an empty change-set description so
// the prompt structure stays stable.
const descriptionPlaceholder = "No description provided."

// Request is the fully assembled payload for one model attempt.
type Request struct {
	Prompt string
}

// LoadPolicy reads the review policy text from the given path.
func LoadPolicy(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPolicyUnavailable, err)
	}
	return string(data), nil
}

// AssemblePrompt merges the policy text with the change-set context and
// the concatenated per-file diff blocks. It is pure and deterministic:
// the same policy and change set always produce byte-identical output.
func AssemblePrompt(policy string, cs domain.ChangeSet) Request {
	description := cs.Description
	if strings.TrimSpace(description) == "" {
		description = descriptionPlaceholder
	}

	blocks := make([]string, 0, len(cs.Files))
	for _, f := range cs.Files {
		if f.Patch == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("### File: %s\n```diff\n%s\n```", f.Path, f.Patch))
	}

	var sb strings.Builder
	sb.WriteString("## Change Set\n\n")
	sb.WriteString("Title: " + cs.Title + "\n\n")
	sb.WriteString("Description: " + description + "\n\n")
	sb.WriteString(policy)
	sb.WriteString("\n\n<code_diff>\n")
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString("\n</code_diff>")

	return Request{Prompt: sb.String()}
}
