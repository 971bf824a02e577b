package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/prompt"
)

// TwoStage runs the clinical-then-fraud pipeline: stage 1 validates medical
// coherence, stage 2 analyzes fraud patterns with the stage-1 verdict embedded
// in its prompt. Either stage failing drops to single-stage analysis over the
// sector's fallback chain using fallbackPrompt. Returns nil with no error when
// every path is exhausted.
func (o *Orchestrator) TwoStage(ctx context.Context, cfg domain.SectorModelConfig, rec domain.Record, ragContext, fallbackPrompt string) (*domain.ScoreResult, error) {
	slog.Info("starting two-stage pipeline",
		"stage1", cfg.Stage1.Model, "stage2", cfg.Stage2.Model)

	stage1Prompt := prompt.Stage1Clinical(rec, ragContext)
	stage1, err := o.invoke(ctx, []domain.ProviderCandidate{cfg.Stage1}, stage1Prompt, true, 0)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	if err != nil || stage1 == nil {
		slog.Warn("stage 1 failed, dropping to single-stage fallbacks", "model", cfg.Stage1.Model, "error", err)
		return o.fallbackSingleStage(ctx, cfg, fallbackPrompt)
	}

	clinical := stage1.Clinical
	clinicalReasoning := clinical.Reasoning
	if strings.TrimSpace(clinicalReasoning) == "" {
		clinicalReasoning = "Clinical validation completed."
	}
	slog.Info("stage 1 complete", "clinicalScore", clinical.Score, "flags", len(clinical.RiskFactors))

	stage2Prompt := prompt.Stage2Fraud(rec, ragContext, clinical.Score, clinicalReasoning, clinical.RiskFactors)
	stage2, err := o.invoke(ctx, []domain.ProviderCandidate{cfg.Stage2}, stage2Prompt, false, 0)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	if err != nil || stage2 == nil {
		slog.Warn("stage 2 failed, dropping to single-stage fallbacks", "model", cfg.Stage2.Model, "error", err)
		return o.fallbackSingleStage(ctx, cfg, fallbackPrompt)
	}

	fraud := stage2.Fraud
	slog.Info("stage 2 complete", "fraudScore", fraud.Score, "factors", len(fraud.RiskFactors))

	factors := make([]string, 0, len(clinical.RiskFactors)+len(fraud.RiskFactors))
	for _, f := range clinical.RiskFactors {
		factors = append(factors, "[Clinical] "+f)
	}
	for _, f := range fraud.RiskFactors {
		factors = append(factors, "[Fraud] "+f)
	}

	reasoning := fmt.Sprintf("**CLINICAL VALIDATION (Stage 1 - %s):**\n%s\n\n**FRAUD ANALYSIS (Stage 2 - %s):**\n%s",
		displayName(cfg.Stage1.Model), clinicalReasoning,
		displayName(cfg.Stage2.Model), fraud.Reasoning)

	clinicalScore := clinical.Score
	return &domain.ScoreResult{
		FraudScore:    fraud.Score,
		RiskLevel:     domain.RiskLevelFor(fraud.Score),
		RiskFactors:   factors,
		Reasoning:     reasoning,
		ModelUsed:     fmt.Sprintf("Two-Stage: %s → %s", displayName(cfg.Stage1.Model), displayName(cfg.Stage2.Model)),
		Source:        domain.SourceTwoStage,
		ClinicalScore: &clinicalScore,
	}, nil
}

// fallbackSingleStage runs the plain fraud prompt over the fallback chain
// only; the primary stage models already had their chance.
func (o *Orchestrator) fallbackSingleStage(ctx context.Context, cfg domain.SectorModelConfig, fallbackPrompt string) (*domain.ScoreResult, error) {
	out, err := o.invoke(ctx, cfg.Fallbacks, fallbackPrompt, false, 1)
	if err != nil || out == nil {
		return nil, err
	}
	return out.FraudResult(), nil
}

// FraudResult converts a fraud-shaped outcome to a model-sourced ScoreResult.
func (out *Outcome) FraudResult() *domain.ScoreResult {
	if out == nil || out.Fraud == nil {
		return nil
	}
	return &domain.ScoreResult{
		FraudScore:  out.Fraud.Score,
		RiskLevel:   domain.RiskLevelFor(out.Fraud.Score),
		RiskFactors: out.Fraud.RiskFactors,
		Reasoning:   out.Fraud.Reasoning,
		ModelUsed:   out.ModelUsed,
		Source:      domain.SourceModel,
	}
}
