// Package cli defines the cobra command tree for the rp binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reviewpilot/reviewpilot/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// PRReviewRequest carries the arguments for reviewing a hosted pull request.
type PRReviewRequest struct {
	Number        int
	ModelOverride string
}

// LocalReviewRequest carries the arguments for reviewing local changes.
type LocalReviewRequest struct {
	BaseRef            string
	IncludeUncommitted bool
	ModelOverride      string
}

// PRReviewRunner executes the pipeline against a pull request.
type PRReviewRunner func(ctx context.Context, req PRReviewRequest) (review.Result, error)

// LocalReviewRunner executes the pipeline against the local repository.
type LocalReviewRunner func(ctx context.Context, req LocalReviewRequest) (review.Result, error)

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	ReviewPR    PRReviewRunner
	ReviewLocal LocalReviewRunner
	Args        Arguments
	Version     string
}

// NewRootCommand constructs the root cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "rp",
		Short: "Automated LLM pull request reviewer",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Run a review",
	}
	reviewCmd.AddCommand(prCommand(deps.ReviewPR))
	reviewCmd.AddCommand(localCommand(deps.ReviewLocal))
	root.AddCommand(reviewCmd)

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func prCommand(runner PRReviewRunner) *cobra.Command {
	var prNumber int
	var model string

	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Review a pull request and post the result as a comment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runner == nil {
				return errors.New("pull request review is not configured")
			}

			number := prNumber
			if number == 0 {
				// GitHub Actions jobs pass the number through the
				// environment rather than flags.
				if env := os.Getenv("PR_NUMBER"); env != "" {
					parsed, err := strconv.Atoi(env)
					if err != nil {
						return fmt.Errorf("invalid PR_NUMBER %q: %w", env, err)
					}
					number = parsed
				}
			}
			if number <= 0 {
				return errors.New("pull request number required (use --pr or set PR_NUMBER)")
			}

			result, err := runner(cmd.Context(), PRReviewRequest{
				Number:        number,
				ModelOverride: model,
			})
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().IntVar(&prNumber, "pr", 0, "Pull request number to review")
	cmd.Flags().StringVar(&model, "model", "", "Model to try first, ahead of the fallback list")
	return cmd
}

func localCommand(runner LocalReviewRunner) *cobra.Command {
	var baseRef string
	var includeUncommitted bool
	var model string

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Review local changes against a base ref and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runner == nil {
				return errors.New("local review is not configured")
			}

			result, err := runner(cmd.Context(), LocalReviewRequest{
				BaseRef:            baseRef,
				IncludeUncommitted: includeUncommitted,
				ModelOverride:      model,
			})
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "main", "Base ref to diff against")
	cmd.Flags().BoolVar(&includeUncommitted, "uncommitted", false, "Include uncommitted working tree changes")
	cmd.Flags().StringVar(&model, "model", "", "Model to try first, ahead of the fallback list")
	return cmd
}

// printSummary writes a short human summary. Only shown on a terminal;
// in CI the structured log lines already tell the story.
func printSummary(w io.Writer, result review.Result) {
	if !review.IsOutputTerminal() {
		return
	}
	if result.Skipped {
		_, _ = fmt.Fprintln(w, "No reviewable changes; nothing to do.")
		return
	}
	_, _ = fmt.Fprintf(w, "Review generated by %s.\n", result.Review.Model)
	if result.CommentURL != "" {
		_, _ = fmt.Fprintf(w, "Posted: %s\n", result.CommentURL)
	}
}
