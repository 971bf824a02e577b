// Package arbiter decides whether a model-produced fraud score can be
// trusted over the deterministic chain score, and generates the deterministic
// explanations used when the model verdict is rejected.
package arbiter

import (
	"fmt"
	"log/slog"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Accept runs the arbitration table for a sector: deterministic score vs
// model score, first matching rule wins. The returned reason is for
// structured logging only.
//
// Medical claims get wide latitude because the two-stage pipeline carries
// clinical context the deterministic chain cannot see; only an extreme
// disagreement overrides it.
func Accept(sector domain.Sector, deterministic, model float64) (bool, string) {
	diff := abs(model - deterministic)

	if sector == domain.SectorMedical {
		if deterministic > 75 && model < 25 {
			return false, fmt.Sprintf("deterministic critical (%.2f) vs model low (%.2f)", deterministic, model)
		}
		return true, fmt.Sprintf("trusting clinical pipeline (%.2f) over deterministic (%.2f)", model, deterministic)
	}

	switch {
	case deterministic < 10 && model > 85:
		return false, fmt.Sprintf("deterministic very low (%.2f) vs model critical (%.2f)", deterministic, model)
	case deterministic > 60 && model < 30:
		return false, fmt.Sprintf("deterministic high (%.2f) vs model low (%.2f)", deterministic, model)
	case deterministic < 10:
		return true, fmt.Sprintf("both scores low (%.2f vs %.2f)", deterministic, model)
	case deterministic < 30:
		if diff > 40 {
			return false, fmt.Sprintf("extreme discrepancy (%.2f points) when deterministic is low", diff)
		}
		return true, fmt.Sprintf("discrepancy (%.2f points) within low-score tolerance", diff)
	case diff > 20:
		return false, fmt.Sprintf("large discrepancy (%.2f points)", diff)
	case diff > 15 && domain.RiskLevelFor(deterministic) != domain.RiskLevelFor(model):
		return false, fmt.Sprintf("risk level mismatch (%s vs %s) with %.2f point difference",
			domain.RiskLevelFor(deterministic), domain.RiskLevelFor(model), diff)
	}
	return true, fmt.Sprintf("scores close (%.2f points)", diff)
}

// Arbitrate applies the decision table and returns the final result. A
// rejected or absent model result falls back to the deterministic score with
// a generated explanation.
func Arbitrate(sector domain.Sector, rec domain.Record, deterministic float64, model *domain.ScoreResult) *domain.ScoreResult {
	if model == nil {
		return Deterministic(sector, rec, deterministic, "Rule-Based Analysis")
	}

	ok, reason := Accept(sector, deterministic, model.FraudScore)
	if !ok {
		slog.Warn("model verdict rejected", "sector", sector, "reason", reason,
			"deterministic", deterministic, "model", model.FraudScore)
		return Deterministic(sector, rec, deterministic, "Rule-Based Analysis")
	}

	slog.Info("model verdict accepted", "sector", sector, "reason", reason)
	final := *model
	final.RiskLevel = domain.RiskLevelFor(final.FraudScore)
	return &final
}

// Deterministic builds a deterministic-sourced result with a generated
// explanation.
func Deterministic(sector domain.Sector, rec domain.Record, score float64, modelLabel string) *domain.ScoreResult {
	level := domain.RiskLevelFor(score)
	return &domain.ScoreResult{
		FraudScore: score,
		RiskLevel:  level,
		Reasoning:  BuildExplanation(sector, rec, score, level, modelLabel),
		ModelUsed:  modelLabel,
		Source:     domain.SourceDeterministic,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
