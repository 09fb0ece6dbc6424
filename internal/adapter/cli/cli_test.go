package cli_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reviewpilot/reviewpilot/internal/adapter/cli"
	"github.com/reviewpilot/reviewpilot/internal/usecase/review"
)

func execute(t *testing.T, deps cli.Dependencies, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	deps.Args = cli.Arguments{OutWriter: &out, ErrWriter: &out}
	root := cli.NewRootCommand(deps)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, cli.Dependencies{Version: "v1.2.3"}, "--version")
	if !errors.Is(err, cli.ErrVersionRequested) {
		t.Fatalf("expected ErrVersionRequested, got %v", err)
	}
	if !strings.Contains(out, "v1.2.3") {
		t.Errorf("version not printed: %q", out)
	}
}

func TestReviewPRInvokesRunner(t *testing.T) {
	var got cli.PRReviewRequest
	deps := cli.Dependencies{
		ReviewPR: func(ctx context.Context, req cli.PRReviewRequest) (review.Result, error) {
			got = req
			return review.Result{}, nil
		},
	}

	_, err := execute(t, deps, "review", "pr", "--pr", "42", "--model", "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if got.Number != 42 {
		t.Errorf("Number = %d, want 42", got.Number)
	}
	if got.ModelOverride != "gemini-2.5-pro" {
		t.Errorf("ModelOverride = %q", got.ModelOverride)
	}
}

func TestReviewPRNumberFromEnv(t *testing.T) {
	t.Setenv("PR_NUMBER", "7")

	var got cli.PRReviewRequest
	deps := cli.Dependencies{
		ReviewPR: func(ctx context.Context, req cli.PRReviewRequest) (review.Result, error) {
			got = req
			return review.Result{}, nil
		},
	}

	if _, err := execute(t, deps, "review", "pr"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if got.Number != 7 {
		t.Errorf("Number = %d, want 7 from PR_NUMBER", got.Number)
	}
}

func TestReviewPRMissingNumber(t *testing.T) {
	t.Setenv("PR_NUMBER", "")

	deps := cli.Dependencies{
		ReviewPR: func(ctx context.Context, req cli.PRReviewRequest) (review.Result, error) {
			t.Fatal("runner must not be called without a PR number")
			return review.Result{}, nil
		},
	}

	_, err := execute(t, deps, "review", "pr")
	if err == nil {
		t.Fatal("expected an error for a missing PR number")
	}
}

func TestReviewPRInvalidEnvNumber(t *testing.T) {
	t.Setenv("PR_NUMBER", "not-a-number")

	deps := cli.Dependencies{
		ReviewPR: func(ctx context.Context, req cli.PRReviewRequest) (review.Result, error) {
			return review.Result{}, nil
		},
	}

	_, err := execute(t, deps, "review", "pr")
	if err == nil || !strings.Contains(err.Error(), "invalid PR_NUMBER") {
		t.Fatalf("expected invalid PR_NUMBER error, got %v", err)
	}
}

func TestReviewPRRunnerErrorPropagates(t *testing.T) {
	boom := errors.New("pipeline failed")
	deps := cli.Dependencies{
		ReviewPR: func(ctx context.Context, req cli.PRReviewRequest) (review.Result, error) {
			return review.Result{}, boom
		},
	}

	_, err := execute(t, deps, "review", "pr", "--pr", "1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error to propagate, got %v", err)
	}
}

func TestReviewLocalInvokesRunner(t *testing.T) {
	var got cli.LocalReviewRequest
	deps := cli.Dependencies{
		ReviewLocal: func(ctx context.Context, req cli.LocalReviewRequest) (review.Result, error) {
			got = req
			return review.Result{}, nil
		},
	}

	_, err := execute(t, deps, "review", "local", "--base", "develop", "--uncommitted")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if got.BaseRef != "develop" {
		t.Errorf("BaseRef = %q, want develop", got.BaseRef)
	}
	if !got.IncludeUncommitted {
		t.Error("IncludeUncommitted not set")
	}
}

func TestReviewLocalDefaultBase(t *testing.T) {
	var got cli.LocalReviewRequest
	deps := cli.Dependencies{
		ReviewLocal: func(ctx context.Context, req cli.LocalReviewRequest) (review.Result, error) {
			got = req
			return review.Result{}, nil
		},
	}

	if _, err := execute(t, deps, "review", "local"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if got.BaseRef != "main" {
		t.Errorf("BaseRef = %q, want main", got.BaseRef)
	}
}
