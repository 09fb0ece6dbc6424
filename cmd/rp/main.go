package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/reviewpilot/reviewpilot/internal/adapter/cli"
	gitadapter "github.com/reviewpilot/reviewpilot/internal/adapter/git"
	githubadapter "github.com/reviewpilot/reviewpilot/internal/adapter/github"
	"github.com/reviewpilot/reviewpilot/internal/adapter/llm"
	"github.com/reviewpilot/reviewpilot/internal/adapter/llm/gemini"
	llmhttp "github.com/reviewpilot/reviewpilot/internal/adapter/llm/http"
	"github.com/reviewpilot/reviewpilot/internal/adapter/store/sqlite"
	"github.com/reviewpilot/reviewpilot/internal/config"
	"github.com/reviewpilot/reviewpilot/internal/domain"
	"github.com/reviewpilot/reviewpilot/internal/usecase/fetch"
	"github.com/reviewpilot/reviewpilot/internal/usecase/publish"
	"github.com/reviewpilot/reviewpilot/internal/usecase/review"
	"github.com/reviewpilot/reviewpilot/internal/version"
)

func main() {
	if err := run(); err != nil {
		// Redact API keys from URLs in error messages before logging
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "rp",
		EnvPrefix:   "RP",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	root := cli.NewRootCommand(cli.Dependencies{
		ReviewPR:    prRunner(cfg),
		ReviewLocal: localRunner(cfg),
		Version:     version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// prRunner wires the pull-request pipeline: hosted source, hosted comment
// sink, run history when enabled.
func prRunner(cfg config.Config) cli.PRReviewRunner {
	return func(ctx context.Context, req cli.PRReviewRequest) (review.Result, error) {
		if cfg.GitHub.Token == "" {
			return review.Result{}, fmt.Errorf("%w: GITHUB_TOKEN is not set", fetch.ErrMissingCredentials)
		}
		if cfg.GitHub.Repository == "" {
			return review.Result{}, fmt.Errorf("%w: repository not set (use github.repository or REPO_NAME)", fetch.ErrMissingCredentials)
		}
		if cfg.Gemini.APIKey == "" {
			return review.Result{}, fmt.Errorf("%w: GEMINI_API_KEY is not set", fetch.ErrMissingCredentials)
		}

		ghClient := githubadapter.NewClient(cfg.GitHub.Token, cfg.HTTP)

		source, err := githubadapter.NewSource(ghClient, cfg.GitHub.Repository, req.Number)
		if err != nil {
			return review.Result{}, err
		}
		sink, err := githubadapter.NewCommentSink(ghClient, cfg.GitHub.Repository)
		if err != nil {
			return review.Result{}, err
		}

		history := buildHistory(cfg.Store)
		if history != nil {
			defer history.Close()
		}

		orchestrator := buildOrchestrator(cfg, source, sink, history, req.ModelOverride)
		return orchestrator.Run(ctx)
	}
}

// localRunner wires the local pipeline: git working tree as source, stdout
// as sink. No history, no hosted credentials required.
func localRunner(cfg config.Config) cli.LocalReviewRunner {
	return func(ctx context.Context, req cli.LocalReviewRequest) (review.Result, error) {
		if cfg.Gemini.APIKey == "" {
			return review.Result{}, fmt.Errorf("%w: GEMINI_API_KEY is not set", fetch.ErrMissingCredentials)
		}

		repoDir := cfg.Git.RepositoryDir
		if repoDir == "" {
			repoDir = "."
		}
		engine := gitadapter.NewEngine(repoDir)
		if branch, branchErr := engine.CurrentBranch(ctx); branchErr == nil &&
			branch == req.BaseRef && !req.IncludeUncommitted {
			log.Printf("warning: current branch %q is the base ref; the diff will be empty unless --uncommitted is set", branch)
		}
		source := &localSource{engine: engine, baseRef: req.BaseRef, includeUncommitted: req.IncludeUncommitted}
		sink := publish.NewWriterSink(os.Stdout)

		orchestrator := buildOrchestrator(cfg, source, sink, nil, req.ModelOverride)
		return orchestrator.Run(ctx)
	}
}

// buildOrchestrator assembles the pipeline over the given source and
// sink. The override model, when unknown, is tried first.
func buildOrchestrator(cfg config.Config, source fetch.Source, sink publish.CommentSink, history review.HistoryStore, override string) *review.Orchestrator {
	if override == "" {
		override = cfg.Gemini.Model
	}

	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.HTTP)
	geminiClient.SetLogger(llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, true))

	controller := review.NewController(
		&geminiGenerator{client: geminiClient},
		review.GenerateOptions{
			MaxOutputTokens: cfg.Review.MaxOutputTokens,
			Temperature:     cfg.Review.Temperature,
		},
	)

	fetcher := fetch.NewFetcher(source, fetch.Options{
		Extensions:    cfg.Review.Extensions,
		ExcludedPaths: cfg.Review.ExcludedPaths,
		MaxPatchBytes: cfg.Review.MaxPatchBytes,
	})

	return review.NewOrchestrator(review.OrchestratorDeps{
		Fetcher:        fetcher,
		Controller:     controller,
		Publisher:      publish.NewPoster(sink),
		Candidates:     review.BuildCandidates(override),
		PolicyPath:     cfg.Review.PromptPath,
		EstimateTokens: llm.EstimateTokens,
		History:        history,
		Repository:     cfg.GitHub.Repository,
	})
}

// buildHistory opens the run-history store when enabled. Failures degrade
// to running without history, never abort the review.
func buildHistory(cfg config.StoreConfig) review.HistoryStore {
	if !cfg.Enabled {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		log.Printf("warning: failed to create store directory: %v", err)
		return nil
	}
	store, err := sqlite.NewStore(cfg.Path)
	if err != nil {
		log.Printf("warning: failed to initialize store: %v", err)
		return nil
	}
	return store
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rp"))
	}
	return paths
}

// geminiGenerator adapts the Gemini client to the review.Generator port.
type geminiGenerator struct {
	client *gemini.Client
}

func (g *geminiGenerator) Generate(ctx context.Context, model, prompt string, opts review.GenerateOptions) (string, error) {
	return g.client.Generate(ctx, model, prompt, gemini.GenerateOptions{
		MaxOutputTokens: opts.MaxOutputTokens,
		Temperature:     opts.Temperature,
	})
}

// localSource adapts the git engine to the fetch.Source port.
type localSource struct {
	engine             *gitadapter.Engine
	baseRef            string
	includeUncommitted bool
}

func (s *localSource) FetchChangeSet(ctx context.Context) (domain.ChangeSet, error) {
	return s.engine.ChangeSet(ctx, s.baseRef, s.includeUncommitted)
}

// Compile-time interface compliance checks
var _ review.Generator = (*geminiGenerator)(nil)
var _ fetch.Source = (*localSource)(nil)
var _ fetch.Source = (*githubadapter.Source)(nil)
var _ publish.CommentSink = (*githubadapter.CommentSink)(nil)
var _ review.HistoryStore = (*sqlite.Store)(nil)
