package review

import (
	"context"
	"log"

	"github.com/reviewpilot/reviewpilot/internal/domain"
)

// ChangeSetFetcher is the inbound port for the filtered change set.
type ChangeSetFetcher interface {
	Fetch(ctx context.Context) (domain.ChangeSet, error)
}

// Publisher delivers the accepted review exactly once and returns a
// location for it (a comment URL, or empty for local output).
type Publisher interface {
	Publish(ctx context.Context, cs domain.ChangeSet, result domain.ReviewResult) (string, error)
}

// Run outcomes recorded in the history store.
const (
	RunOutcomePublished     = "published"
	RunOutcomeSkipped       = "skipped"
	RunOutcomeFailed        = "failed"
	RunOutcomePublishFailed = "publish_failed"
)

// RunRecord is one line of run history.
type RunRecord struct {
	Repository string
	ChangeSet  int
	Model      string
	Outcome    string
	Detail     string
}

// HistoryStore persists run records. Best effort: failures are logged,
// never propagated.
type HistoryStore interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	Close() error
}

// TokenEstimator reports the approximate token count of a prompt.
type TokenEstimator func(text string) int

// OrchestratorDeps wires the orchestrator's collaborators.
type OrchestratorDeps struct {
	Fetcher        ChangeSetFetcher
	Controller     *Controller
	Publisher      Publisher
	Candidates     []string
	PolicyPath     string
	EstimateTokens TokenEstimator
	History        HistoryStore
	Repository     string
}

// Orchestrator runs one review pipeline invocation end to end. All state
// is local to a run and discarded at exit.
type Orchestrator struct {
	deps OrchestratorDeps
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Skipped is true when the change set had nothing reviewable; the
	// run succeeded without invoking the model provider or the sink.
	Skipped bool

	Review     domain.ReviewResult
	CommentURL string
}

// Run executes fetch → assemble → generate-with-fallback → publish.
// Nothing is ever published unless generation fully succeeded.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	policy, err := LoadPolicy(o.deps.PolicyPath)
	if err != nil {
		return Result{}, err
	}

	cs, err := o.deps.Fetcher.Fetch(ctx)
	if err != nil {
		o.record(ctx, cs, "", RunOutcomeFailed, err.Error())
		return Result{}, err
	}

	if !cs.HasReviewableContent() {
		log.Printf("no reviewable code changes found")
		o.record(ctx, cs, "", RunOutcomeSkipped, "")
		return Result{Skipped: true}, nil
	}

	req := AssemblePrompt(policy, cs)
	if o.deps.EstimateTokens != nil {
		log.Printf("assembled prompt: %d files, ~%d tokens", len(cs.Files), o.deps.EstimateTokens(req.Prompt))
	}

	result, err := o.deps.Controller.Run(ctx, req, o.deps.Candidates)
	if err != nil {
		o.record(ctx, cs, "", RunOutcomeFailed, err.Error())
		return Result{}, err
	}

	url, err := o.deps.Publisher.Publish(ctx, cs, result)
	if err != nil {
		// Generation succeeded but delivery did not; the record keeps
		// the two failure modes distinguishable for operators.
		o.record(ctx, cs, result.Model, RunOutcomePublishFailed, err.Error())
		return Result{}, err
	}

	o.record(ctx, cs, result.Model, RunOutcomePublished, url)
	return Result{Review: result, CommentURL: url}, nil
}

func (o *Orchestrator) record(ctx context.Context, cs domain.ChangeSet, model, outcome, detail string) {
	if o.deps.History == nil {
		return
	}
	rec := RunRecord{
		Repository: o.deps.Repository,
		ChangeSet:  cs.Number,
		Model:      model,
		Outcome:    outcome,
		Detail:     detail,
	}
	if err := o.deps.History.RecordRun(ctx, rec); err != nil {
		log.Printf("warning: failed to record run history: %v", err)
	}
}
