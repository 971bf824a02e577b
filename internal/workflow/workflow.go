// Package workflow sequences the analysis pipeline: pre-checks, deterministic
// scoring, pattern retrieval, model orchestration, arbitration, and event
// publication.
package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openrisk-labs/kestrel/internal/arbiter"
	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/orchestrator"
	"github.com/openrisk-labs/kestrel/internal/precheck"
	"github.com/openrisk-labs/kestrel/internal/prompt"
	"github.com/openrisk-labs/kestrel/internal/rules"
	"github.com/openrisk-labs/kestrel/internal/scoring"
)

var tracer = otel.Tracer("kestrel-workflow")

// Controller runs the full analysis pipeline for one record.
type Controller struct {
	checker  *precheck.Checker
	overlay  *rules.Engine
	searcher domain.PatternSearcher
	prompts  *prompt.Builder
	orch     *orchestrator.Orchestrator
	sectors  map[domain.Sector]domain.SectorModelConfig
	bus      domain.EventBus
	topK     int
}

// Options wires the pipeline collaborators. Searcher, overlay and bus are
// optional; a nil collaborator disables its stage.
type Options struct {
	Checker  *precheck.Checker
	Overlay  *rules.Engine
	Searcher domain.PatternSearcher
	Prompts  *prompt.Builder
	Orch     *orchestrator.Orchestrator
	Sectors  map[domain.Sector]domain.SectorModelConfig
	Bus      domain.EventBus
	TopK     int
}

// New creates a Controller.
func New(opts Options) *Controller {
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Controller{
		checker:  opts.Checker,
		overlay:  opts.Overlay,
		searcher: opts.Searcher,
		prompts:  opts.Prompts,
		orch:     opts.Orch,
		sectors:  opts.Sectors,
		bus:      opts.Bus,
		topK:     topK,
	}
}

// Analysis is the pipeline output: the final score plus retrieval metadata.
type Analysis struct {
	Result          *domain.ScoreResult `json:"result"`
	SimilarPatterns int                 `json:"similarPatterns"`
}

// CompletedEvent is published on every finished analysis.
type CompletedEvent struct {
	Sector          domain.Sector    `json:"sector"`
	FraudScore      float64          `json:"fraudScore"`
	RiskLevel       domain.RiskLevel `json:"riskLevel"`
	ModelUsed       string           `json:"modelUsed"`
	Source          domain.Source    `json:"source"`
	SimilarPatterns int              `json:"similarPatterns"`
	Timestamp       int64            `json:"timestamp"`
}

// Analyze runs the pipeline. The only error conditions are context
// cancellation and a chat-only provider protocol failure; every other
// degradation falls through to the deterministic path.
func (c *Controller) Analyze(ctx context.Context, sector domain.Sector, rec domain.Record) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "workflow.analyze",
		trace.WithAttributes(attribute.String("sector", string(sector))))
	defer span.End()

	start := time.Now()

	// Pre-checks run before anything touches a model or the pattern store.
	pre := c.checker.Evaluate(sector, rec)
	if pre.ShortCircuit != nil {
		analysis := &Analysis{Result: pre.ShortCircuit}
		c.finish(ctx, span, sector, analysis, start)
		return analysis, nil
	}

	ragContext, patternCount := c.retrieveContext(ctx, sector, rec)

	deterministic := scoring.ScoreWithContext(sector, rec, ragContext)
	if c.overlay != nil && c.overlay.RulesCount() > 0 {
		adjusted, adjustments := c.overlay.Apply(ctx, sector, rec, deterministic)
		for _, adj := range adjustments {
			if adj.Reason != "" {
				slog.Warn("overlay rule error absorbed", "rule", adj.RuleID, "reason", adj.Reason)
			} else if adj.Delta != 0 {
				slog.Info("overlay rule applied", "rule", adj.RuleID, "delta", adj.Delta)
			}
		}
		deterministic = adjusted
	}

	model, err := c.invokeModels(ctx, sector, rec, ragContext, pre.CautionNote)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("model invocation failed, using deterministic path", "sector", sector, "error", err)
		model = nil
	}

	var final *domain.ScoreResult
	if model == nil {
		final = arbiter.Deterministic(sector, rec, deterministic, "Rule-Based Analysis")
		final.RiskFactors = []string{"All model candidates unavailable"}
	} else {
		final = arbiter.Arbitrate(sector, rec, deterministic, model)
	}

	analysis := &Analysis{Result: final, SimilarPatterns: patternCount}
	c.finish(ctx, span, sector, analysis, start)
	return analysis, nil
}

// retrieveContext queries the pattern library with the record serialized as
// the query text. Retrieval failures degrade to the empty-context marker.
func (c *Controller) retrieveContext(ctx context.Context, sector domain.Sector, rec domain.Record) (string, int) {
	if c.searcher == nil {
		return "", 0
	}

	queryText, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", 0
	}

	result, err := c.searcher.Query(ctx, sector, string(queryText), c.topK)
	if err != nil {
		slog.Warn("pattern retrieval failed", "sector", sector, "error", err)
		return "", 0
	}

	return result.Context, result.Count
}

// invokeModels routes to the two-stage pipeline for configured sectors and
// the single-stage candidate chain otherwise. A nil result means every
// candidate was exhausted.
func (c *Controller) invokeModels(ctx context.Context, sector domain.Sector, rec domain.Record, ragContext, cautionNote string) (*domain.ScoreResult, error) {
	cfg, ok := c.sectors[sector]
	if !ok || c.orch == nil {
		return nil, nil
	}

	singleStagePrompt := c.prompts.Build(sector, rec, ragContext, cautionNote)

	if cfg.TwoStage {
		return c.orch.TwoStage(ctx, cfg, rec, ragContext, singleStagePrompt)
	}

	out, err := c.orch.Invoke(ctx, cfg.Candidates(), singleStagePrompt, false)
	if err != nil || out == nil {
		return nil, err
	}
	return out.FraudResult(), nil
}

// finish records span attributes and publishes lifecycle events.
func (c *Controller) finish(ctx context.Context, span trace.Span, sector domain.Sector, analysis *Analysis, start time.Time) {
	result := analysis.Result

	span.SetAttributes(
		attribute.Float64("fraud_score", result.FraudScore),
		attribute.String("risk_level", string(result.RiskLevel)),
		attribute.String("source", string(result.Source)),
	)

	slog.Info("analysis complete",
		"sector", sector,
		"score", result.FraudScore,
		"risk_level", result.RiskLevel,
		"source", result.Source,
		"model", result.ModelUsed,
		"similar_patterns", analysis.SimilarPatterns,
		"duration", time.Since(start),
	)

	if c.bus == nil {
		return
	}

	event := CompletedEvent{
		Sector:          sector,
		FraudScore:      result.FraudScore,
		RiskLevel:       result.RiskLevel,
		ModelUsed:       result.ModelUsed,
		Source:          result.Source,
		SimilarPatterns: analysis.SimilarPatterns,
		Timestamp:       time.Now().UnixNano(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := c.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
		slog.Warn("failed to publish completion event", "error", err)
	}

	if result.RiskLevel == domain.RiskHigh || result.RiskLevel == domain.RiskCritical {
		if err := c.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Warn("failed to publish alert event", "error", err)
		}
	}
}
