package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	llmhttp "github.com/reviewpilot/reviewpilot/internal/adapter/llm/http"
	"github.com/reviewpilot/reviewpilot/internal/domain"
)

// ErrAllModelsFailed indicates every candidate was exhausted. The wrapped
// cause is the most recent failure observed.
var ErrAllModelsFailed = errors.New("all model candidates failed")

// ErrFatalPrecondition indicates a failure that affects every candidate
// identically (bad credentials, revoked key); fallback is pointless.
var ErrFatalPrecondition = errors.New("fatal precondition")

// DefaultModelPriorities is the ordered fallback sequence tried when no
// override is supplied.
var DefaultModelPriorities = []string{
	"gemini-3-flash-preview",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.5-pro",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-2.0-pro",
}

// BuildCandidates returns the ordered, deduplicated candidate list for
// one run. An override model not already in the priority list is tried
// first; an override that is already present does not move.
func BuildCandidates(override string) []string {
	candidates := make([]string, 0, len(DefaultModelPriorities)+1)

	if override != "" && !contains(DefaultModelPriorities, override) {
		candidates = append(candidates, override)
	}
	for _, model := range DefaultModelPriorities {
		if !contains(candidates, model) {
			candidates = append(candidates, model)
		}
	}
	return candidates
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// FailureKind is the closed classification of a failed model attempt.
type FailureKind int

const (
	// FailureTransient covers anything not recognized below: advance to
	// the next candidate without retrying.
	FailureTransient FailureKind = iota

	// FailureRateLimited is eligible for one delayed retry on the same
	// candidate.
	FailureRateLimited

	// FailureFatal aborts the whole loop.
	FailureFatal
)

// rateLimitPhrases are matched case-insensitively against free-text
// provider errors when no typed status is available.
var rateLimitPhrases = []string{"429", "resource exhausted", "rate limit", "quota"}

// ClassifyFailure maps an attempt error onto the closed FailureKind set.
// The matching rules live here, apart from the controller's state
// machine, so they can be unit-tested and revised in isolation.
func ClassifyFailure(err error) FailureKind {
	var httpErr *llmhttp.Error
	if errors.As(err, &httpErr) {
		switch httpErr.Type {
		case llmhttp.ErrTypeRateLimit:
			return FailureRateLimited
		case llmhttp.ErrTypeAuthentication:
			return FailureFatal
		}
	}

	message := strings.ToLower(err.Error())
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(message, phrase) {
			return FailureRateLimited
		}
	}
	return FailureTransient
}

// GenerateOptions carries the generation parameters for every attempt.
type GenerateOptions struct {
	MaxOutputTokens int
	Temperature     float64
}

// Generator is the outbound port to the model provider. The model
// identifier varies per attempt; everything else is fixed for the run.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error)
}

// SleepFunc waits for the given duration or until the context is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// minRetryDelay is the threshold below which a parsed delay is not worth
// sleeping for; the controller advances to the next candidate instead.
const minRetryDelay = time.Second

// Controller is the model fallback state machine. It attempts candidates
// strictly in order, absorbs recoverable failures, and accepts at most
// one result per run.
type Controller struct {
	generator Generator
	opts      GenerateOptions
	sleep     SleepFunc
}

// NewController constructs a Controller over the given generator.
func NewController(generator Generator, opts GenerateOptions) *Controller {
	return &Controller{
		generator: generator,
		opts:      opts,
		sleep:     sleepWithContext,
	}
}

// SetSleep replaces the backoff sleep (for testing with a fake clock).
func (c *Controller) SetSleep(fn SleepFunc) {
	c.sleep = fn
}

// Run attempts review generation across the candidates in order.
//
// Per candidate: a success is accepted immediately and no further
// candidate is tried. A rate-limited failure with a usable parsed delay
// (> 1s) earns exactly one retry of the same candidate after sleeping;
// any other failure advances. A fatal failure aborts the loop. When the
// list is exhausted only the most recent failure is reported.
func (c *Controller) Run(ctx context.Context, req Request, candidates []string) (domain.ReviewResult, error) {
	if len(candidates) == 0 {
		return domain.ReviewResult{}, errors.New("no model candidates")
	}

	var lastErr error
	for i, model := range candidates {
		if i == 0 {
			log.Printf("analyzing with %s", model)
		} else {
			log.Printf("switching to fallback model %s", model)
		}

		text, err := c.generator.Generate(ctx, model, req.Prompt, c.opts)
		if err == nil {
			log.Printf("analysis succeeded with %s", model)
			return domain.ReviewResult{Text: text, Model: model}, nil
		}
		lastErr = err

		switch ClassifyFailure(err) {
		case FailureFatal:
			return domain.ReviewResult{}, fmt.Errorf("%w: %w", ErrFatalPrecondition, err)

		case FailureRateLimited:
			delay, ok := ParseRetryDelay(err.Error())
			if !ok || delay <= minRetryDelay {
				log.Printf("rate limited on %s with no usable delay, trying next model", model)
				continue
			}

			log.Printf("rate limited on %s, waiting %s before retrying once", model, delay)
			if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
				return domain.ReviewResult{}, sleepErr
			}

			text, err = c.generator.Generate(ctx, model, req.Prompt, c.opts)
			if err == nil {
				log.Printf("analysis succeeded with %s after retry", model)
				return domain.ReviewResult{Text: text, Model: model}, nil
			}
			lastErr = err
			if ClassifyFailure(err) == FailureFatal {
				return domain.ReviewResult{}, fmt.Errorf("%w: %w", ErrFatalPrecondition, err)
			}
			log.Printf("retry failed for %s, trying next model", model)

		default:
			log.Printf("model %s failed: %v, trying next model", model, llmhttp.RedactURLSecrets(err.Error()))
		}
	}

	return domain.ReviewResult{}, fmt.Errorf("%w: %w", ErrAllModelsFailed, lastErr)
}
