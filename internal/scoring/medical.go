package scoring

import (
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Medical scores an insurance claim: claim amount, procedure count, provider
// history and verification, diagnosis consistency.
func Medical(r domain.Record) float64 {
	score := 0.0

	claimAmount := r.Float("claim_amount", 0)
	switch {
	case claimAmount > 100000:
		score += 35
	case claimAmount > 50000:
		score += 25
	case claimAmount > 20000:
		score += 15
	case claimAmount < 1000:
		score -= 5
	}

	procedures := r.StringList("procedures")
	if len(procedures) > 10 {
		score += 30
	} else if len(procedures) > 5 {
		score += 20
	}

	providerHistory := r.LowerStr("provider_history")
	if providerHistory == "" {
		providerHistory = "clean"
	}
	if strings.Contains(providerHistory, "flagged") || strings.Contains(providerHistory, "suspended") {
		score += 45
	} else if strings.Contains(providerHistory, "clean") || strings.Contains(providerHistory, "verified") {
		score -= 5
	}

	if r.Bool("diagnosis_mismatch", false) {
		score += 40
	}

	if !r.Bool("provider_verified", true) {
		score += 25
	}

	return clamp(score)
}
