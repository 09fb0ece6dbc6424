// Package git is the local change-set source backed by go-git. It lets a
// review run against base..HEAD (optionally the working tree) before a
// pull request exists.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/reviewpilot/reviewpilot/internal/domain"
)

// Engine produces change sets from a local repository.
type Engine struct {
	repoDir string
}

// NewEngine constructs a Git engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

// ChangeSet builds a change set from baseRef to HEAD. With
// includeUncommitted the working tree is diffed against baseRef instead,
// picking up staged and unstaged changes.
func (e *Engine) ChangeSet(ctx context.Context, baseRef string, includeUncommitted bool) (domain.ChangeSet, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("resolve base ref: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("resolve HEAD commit: %w", err)
	}

	var files []domain.FileDiff
	if includeUncommitted {
		files, err = diffWithWorkingTree(ctx, e.repoDir, baseRef)
		if err != nil {
			return domain.ChangeSet{}, err
		}
	} else {
		patch, patchErr := baseCommit.Patch(headCommit)
		if patchErr != nil {
			return domain.ChangeSet{}, fmt.Errorf("compute patch: %w", patchErr)
		}
		files = make([]domain.FileDiff, 0, len(patch.FilePatches()))
		for _, fp := range patch.FilePatches() {
			files = append(files, toFileDiff(fp))
		}
	}

	branch := head.Name().Short()
	return domain.ChangeSet{
		Title:       fmt.Sprintf("Local changes on %s (base %s)", branch, baseRef),
		Description: headCommit.Message,
		HeadSHA:     headCommit.Hash.String(),
		Files:       files,
	}, nil
}

// CurrentBranch returns the name of the checked-out branch.
func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

func toFileDiff(fp formatdiff.FilePatch) domain.FileDiff {
	path, status := diffPathAndStatus(fp)

	patchText := ""
	if !fp.IsBinary() {
		if encoded, err := encodeFilePatch(fp); err == nil {
			patchText = encoded
		}
	}
	// Binary patches mirror the hosting API behavior: no patch text, the
	// fetcher skips the file with a logged reason.
	if isBinaryPatch(patchText) {
		patchText = ""
	}

	return domain.FileDiff{
		Path:    path,
		Status:  status,
		Patch:   patchText,
		Changes: countChangedLines(patchText),
	}
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

// diffPathAndStatus returns the path and status for a file patch. Renames
// report the new path.
func diffPathAndStatus(fp formatdiff.FilePatch) (path, status string) {
	from, to := fp.Files()

	switch {
	case from == nil && to != nil:
		return to.Path(), domain.FileStatusAdded
	case from != nil && to == nil:
		return from.Path(), domain.FileStatusRemoved
	case from != nil && to != nil:
		if from.Path() != to.Path() {
			return to.Path(), domain.FileStatusRenamed
		}
		return to.Path(), domain.FileStatusModified
	default:
		return "", domain.FileStatusModified
	}
}

// isBinaryPatch checks if a patch represents a binary file. Git marks
// these with "Binary files ... differ" or "GIT binary patch".
func isBinaryPatch(patchText string) bool {
	return strings.Contains(patchText, "Binary files") ||
		strings.Contains(patchText, "GIT binary patch")
}

// countChangedLines approximates the hosting API's per-file change count.
func countChangedLines(patchText string) int {
	count := 0
	for _, line := range strings.Split(patchText, "\n") {
		if len(line) == 0 {
			continue
		}
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if line[0] == '+' || line[0] == '-' {
			count++
		}
	}
	return count
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// singlePatch adapts one FilePatch to the Patch interface the unified
// encoder expects.
type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}

func diffWithWorkingTree(ctx context.Context, repoDir, baseRef string) ([]domain.FileDiff, error) {
	statusOut, err := runGitCommand(ctx, repoDir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}

	trimmed := strings.TrimRight(statusOut, "\r\n")
	if trimmed == "" {
		return []domain.FileDiff{}, nil
	}

	lines := strings.Split(trimmed, "\n")
	diffs := make([]domain.FileDiff, 0, len(lines))
	for _, line := range lines {
		if len(line) < 3 {
			continue
		}
		path := extractPath(line)
		patchOut, err := runGitCommand(ctx, repoDir, "diff", baseRef, "--", path)
		if err != nil {
			return nil, fmt.Errorf("git diff %s: %w", path, err)
		}
		if isBinaryPatch(patchOut) {
			patchOut = ""
		}
		diffs = append(diffs, domain.FileDiff{
			Path:    path,
			Status:  mapGitStatus(selectStatusChar(line)),
			Patch:   patchOut,
			Changes: countChangedLines(patchOut),
		})
	}
	return diffs, nil
}

func runGitCommand(ctx context.Context, repoDir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoDir}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %v: %w", args, ctx.Err())
		}
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git %v: %w", args, err)
	}
	return stdout.String(), nil
}

func selectStatusChar(line string) rune {
	first := rune(line[0])
	second := rune(line[1])
	switch {
	case second != ' ':
		return second
	case first != ' ':
		return first
	default:
		return 'M'
	}
}

// extractPath extracts the current path from a git status line. Renames
// show "R  old -> new"; the new path wins.
func extractPath(line string) string {
	pathPart := strings.TrimSpace(line[3:])
	if idx := strings.Index(pathPart, " -> "); idx >= 0 {
		return strings.TrimSpace(pathPart[idx+4:])
	}
	return pathPart
}

func mapGitStatus(status rune) string {
	switch status {
	case 'A', '?':
		return domain.FileStatusAdded
	case 'D':
		return domain.FileStatusRemoved
	case 'R':
		return domain.FileStatusRenamed
	default:
		return domain.FileStatusModified
	}
}
