package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpilot/reviewpilot/internal/domain"
)

func TestCurrentBranch(t *testing.T) {
	dir := t.TempDir()
	repo, err := goGit.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &goGit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	engine := NewEngine(dir)
	branch, err := engine.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestCurrentBranchOutsideRepo(t *testing.T) {
	engine := NewEngine(t.TempDir())
	_, err := engine.CurrentBranch(context.Background())
	assert.Error(t, err)
}

func TestMapGitStatus(t *testing.T) {
	tests := []struct {
		status rune
		want   string
	}{
		{'A', domain.FileStatusAdded},
		{'?', domain.FileStatusAdded},
		{'D', domain.FileStatusRemoved},
		{'R', domain.FileStatusRenamed},
		{'M', domain.FileStatusModified},
		{'U', domain.FileStatusModified},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapGitStatus(tt.status), "status %q", tt.status)
	}
}

func TestSelectStatusChar(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{" M file.go", 'M'},  // unstaged modification
		{"M  file.go", 'M'},  // staged modification
		{"?? new.go", '?'},   // untracked
		{"R  a -> b", 'R'},   // staged rename (second char is space)
		{"   weird", 'M'},    // neither set, default modified
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, selectStatusChar(tt.line), "line %q", tt.line)
	}
}

func TestExtractPath(t *testing.T) {
	assert.Equal(t, "main.go", extractPath(" M main.go"))
	assert.Equal(t, "pkg/new.go", extractPath("R  pkg/old.go -> pkg/new.go"))
	assert.Equal(t, "spaced name.go", extractPath("?? spaced name.go"))
}

func TestIsBinaryPatch(t *testing.T) {
	assert.True(t, isBinaryPatch("Binary files a/img.png and b/img.png differ"))
	assert.True(t, isBinaryPatch("GIT binary patch\nliteral 128"))
	assert.False(t, isBinaryPatch("--- a/main.go\n+++ b/main.go\n+added"))
	assert.False(t, isBinaryPatch(""))
}

func TestCountChangedLines(t *testing.T) {
	patch := `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 package main
-func old() {}
+func new() {}
+func extra() {}
`
	// One removal, two additions; headers do not count.
	assert.Equal(t, 3, countChangedLines(patch))
	assert.Equal(t, 0, countChangedLines(""))
}
