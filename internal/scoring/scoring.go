// Package scoring implements the deterministic per-sector fraud scoring
// chains. Each chain accumulates a running total from independently evaluated
// weighted factors; factors are additive and order-independent, and the total
// is clamped to [0,100]. No chain performs I/O.
package scoring

import (
	"math"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Score computes the deterministic fraud score for a record.
func Score(sector domain.Sector, record domain.Record) float64 {
	switch sector {
	case domain.SectorBanking:
		return Banking(record)
	case domain.SectorMedical:
		return Medical(record)
	case domain.SectorEcommerce:
		return Ecommerce(record)
	case domain.SectorSupplyChain:
		return SupplyChain(record)
	default:
		return 50.0
	}
}

var (
	legitimateContextKeywords = []string{"low risk", "legitimate", "normal", "standard", "established", "verified", "clean"}
	highRiskContextKeywords   = []string{"high risk", "fraud", "critical", "suspicious", "anomaly"}
	mediumRiskContextKeywords = []string{"medium risk", "warning", "unusual", "irregular"}
)

// ScoreWithContext computes the deterministic score, then conditionally
// rescales it using retrieved similar-pattern context. Legitimate-pattern
// keywords reduce an already-low score by 20%; risk keywords enhance a score
// only when the base is already above 30, preventing inflation of
// likely-legitimate cases. The result is rounded to one decimal.
func ScoreWithContext(sector domain.Sector, record domain.Record, context string) float64 {
	score := Score(sector, record)

	if context != "" && context != "No similar patterns found." {
		lower := strings.ToLower(context)
		switch {
		case containsAny(lower, legitimateContextKeywords) && score < 30:
			score = math.Max(0, score*0.8)
		case score > 30 && containsAny(lower, highRiskContextKeywords):
			score = math.Min(100, score*1.1)
		case score > 30 && containsAny(lower, mediumRiskContextKeywords):
			score = math.Min(100, score*1.05)
		}
	}

	return math.Round(score*10) / 10
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}
