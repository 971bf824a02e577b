package domain

// RiskLevel classifies a fraud score into one of four fixed buckets.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevelFor maps a fraud score to its risk level. Every stage re-derives
// the level from the score through this function; a level reported by a model
// is never trusted verbatim.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score < 30:
		return RiskLow
	case score < 60:
		return RiskMedium
	case score < 85:
		return RiskHigh
	}
	return RiskCritical
}

// Source identifies which stage produced the final score.
type Source string

const (
	SourcePrecheck      Source = "precheck"
	SourceDeterministic Source = "deterministic"
	SourceModel         Source = "model"
	SourceTwoStage      Source = "two_stage"
)

// ScoreResult is the unit produced by every pipeline stage and the final
// artifact returned to the caller.
type ScoreResult struct {
	FraudScore  float64   `json:"fraudScore"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	RiskFactors []string  `json:"riskFactors,omitempty"`
	Reasoning   string    `json:"reasoning"`
	ModelUsed   string    `json:"modelUsed"`
	Source      Source    `json:"source"`

	// ClinicalScore carries the stage-1 legitimacy sub-score for two-stage
	// results; nil otherwise.
	ClinicalScore *float64 `json:"clinicalScore,omitempty"`
}

// Clamp bounds a score to [0,100].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
