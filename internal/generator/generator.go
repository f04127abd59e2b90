// Package generator implements the Check Generator with Self-Improvement:
// it prompts an LLM to draft a Check for a Control against a sampled
// ResourceCollection, evaluates the draft, and retries with feedback when
// the draft is invalid, per spec.md §4.6.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/auditlog"
	"github.com/phrazzld/conmon/internal/check"
	"github.com/phrazzld/conmon/internal/conmonerr"
	"github.com/phrazzld/conmon/internal/connector"
	"github.com/phrazzld/conmon/internal/framework"
	"github.com/phrazzld/conmon/internal/llm"
	"github.com/phrazzld/conmon/internal/logutil"
	"github.com/phrazzld/conmon/internal/schema"
)

// DefaultMaxAttempts is the self-improvement loop's attempt ceiling, per
// §4.6 ("max_attempts is finite, default 2").
const DefaultMaxAttempts = 2

// DefaultSandboxTimeout is passed to check.Evaluate for each sample
// evaluation during generation.
const DefaultSandboxTimeout = 50 * time.Millisecond

// Result is the outcome of Generate: either a persistable Check with its
// final sample evaluation, or a failure after exhausting max_attempts.
type Result struct {
	Check      *check.Check
	Results    []check.CheckResult
	Attempts   int
	AllResults []check.CheckResult
}

// Generator drives the prompt -> LLM -> parse -> evaluate -> (retry)
// pipeline for one (control, provider, resource_model) task.
type Generator struct {
	LLMClient      llm.LLMClient
	Registry       *schema.Registry
	AuditLogger    auditlog.AuditLogger
	Logger         logutil.LoggerInterface
	Recorder       PromptRecorder
	MaxAttempts    int
	SandboxTimeout time.Duration
	CreatedBy      string
}

// New builds a Generator with the given collaborators, filling in
// defaults for MaxAttempts/SandboxTimeout/AuditLogger/Logger when left
// zero-valued.
func New(llmClient llm.LLMClient, reg *schema.Registry) *Generator {
	return &Generator{
		LLMClient:      llmClient,
		Registry:       reg,
		AuditLogger:    auditlog.NewNoOpAuditLogger(),
		Logger:         logutil.NewLogger(logutil.InfoLevel, nil, ""),
		Recorder:       NoOpPromptRecorder{},
		MaxAttempts:    DefaultMaxAttempts,
		SandboxTimeout: DefaultSandboxTimeout,
		CreatedBy:      "conmon-generator",
	}
}

// Generate runs the self-improvement loop of §4.6 for one control against
// one sampled resource collection of the given resource_model_name.
func (g *Generator) Generate(ctx context.Context, ctrl framework.Control, connType connector.Type, resourceModelName string, sample connector.ResourceCollection) (*Result, error) {
	ct, ok := g.Registry.Lookup(resourceModelName)
	if !ok {
		return nil, conmonerr.Newf(conmonerr.CategoryGenerator, "generator: unknown resource model %q", resourceModelName)
	}

	basePrompt := BuildCheckPrompt(ctrl, connType, ct, g.Registry)

	c, err := g.generateOnce(ctx, 0, basePrompt)
	if err != nil {
		return nil, err
	}
	g.stampAuditFields(c)

	results := c.Evaluate(ctx, g.Registry, sample.Resources, g.SandboxTimeout)
	allResults := append([]check.CheckResult(nil), results...)

	attempts := 0
	for check.Invalid(results) && attempts < g.MaxAttempts {
		attempts++
		feedbackPrompt := BuildFeedbackPrompt(basePrompt, allResults)

		c, err = g.generateOnce(ctx, attempts, feedbackPrompt)
		if err != nil {
			g.logAttempt(ctx, ctrl, attempts, "Failure", err)
			continue
		}
		g.stampAuditFields(c)

		results = c.Evaluate(ctx, g.Registry, sample.Resources, g.SandboxTimeout)
		allResults = append(allResults, results...)
		g.logAttempt(ctx, ctrl, attempts, "Retry", nil)
	}

	if check.Invalid(results) {
		_ = g.AuditLogger.LogOp(ctx, "GenerateCheck", "Failure",
			map[string]interface{}{"control": ctrl.ControlName, "resource_model": resourceModelName, "attempts": attempts},
			nil, fmt.Errorf("generator: check invalid after %d attempts", attempts))
		return nil, conmonerr.Newf(conmonerr.CategoryGenerator, "generator: control %s produced an invalid check after %d attempts", ctrl.ControlName, attempts)
	}

	_ = g.AuditLogger.LogOp(ctx, "GenerateCheck", "Success",
		map[string]interface{}{"control": ctrl.ControlName, "resource_model": resourceModelName, "attempts": attempts},
		map[string]interface{}{"check_id": c.ID.String()}, nil)

	return &Result{Check: c, Results: results, Attempts: attempts, AllResults: allResults}, nil
}

func (g *Generator) generateOnce(ctx context.Context, attempt int, prompt string) (*check.Check, error) {
	result, err := g.LLMClient.GenerateContent(ctx, prompt, nil)
	if err != nil {
		g.Recorder.RecordAttempt(ctx, attempt, prompt, "", err)
		return nil, conmonerr.Wrap(conmonerr.CategoryGenerator, fmt.Errorf("generator: LLM generation failed: %w", err))
	}
	c, err := ParseResponse(result.Content)
	if err != nil {
		g.Recorder.RecordAttempt(ctx, attempt, prompt, result.Content, err)
		return nil, conmonerr.Wrap(conmonerr.CategoryGenerator, err)
	}
	g.Recorder.RecordAttempt(ctx, attempt, prompt, result.Content, nil)
	return c, nil
}

func (g *Generator) stampAuditFields(c *check.Check) {
	c.ID = uuid.New()
	c.CreatedBy = g.CreatedBy
	c.UpdatedBy = g.CreatedBy
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
}

func (g *Generator) logAttempt(ctx context.Context, ctrl framework.Control, attempt int, status string, err error) {
	g.Logger.InfoContext(ctx, "Generator retry %d for control %s: %s", attempt, ctrl.ControlName, status)
	_ = g.AuditLogger.LogOp(ctx, "GenerateCheckAttempt", status,
		map[string]interface{}{"control": ctrl.ControlName, "attempt": attempt}, nil, err)
}
