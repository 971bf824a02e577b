package orchestrator

import (
	"strings"
	"testing"
)

func TestParseFraudLabeledScore(t *testing.T) {
	text := `FRAUD_SCORE: 72
RISK_LEVEL: HIGH
RISK_FACTORS: unverified KYC, new account, high velocity
REASONING: The transaction combines an unverified account with unusually high velocity. The account was opened recently and has already moved large sums. These indicators together point to a coordinated fraud attempt.`

	got := ParseFraud(text)
	if got.Score != 72 {
		t.Errorf("Score = %v, want 72", got.Score)
	}
	if got.Degraded {
		t.Error("should not be degraded")
	}
	want := []string{"unverified KYC", "new account", "high velocity"}
	if len(got.RiskFactors) != len(want) {
		t.Fatalf("RiskFactors = %v, want %v", got.RiskFactors, want)
	}
	for i, f := range want {
		if got.RiskFactors[i] != f {
			t.Errorf("factor[%d] = %q, want %q", i, got.RiskFactors[i], f)
		}
	}
	if strings.Contains(got.Reasoning, "FRAUD_SCORE") || strings.Contains(got.Reasoning, "RISK_FACTORS") {
		t.Errorf("labels leaked into reasoning: %q", got.Reasoning)
	}
}

func TestParseFraudFencedJSON(t *testing.T) {
	text := "Here is my analysis:\n```json\n{\"fraud_score\": 42, \"risk_level\": \"MEDIUM\"}\n```"
	if got := ParseFraud(text); got.Score != 42 || got.Degraded {
		t.Errorf("got %+v, want score 42 not degraded", got)
	}
}

func TestParseFraudClampsOutOfRange(t *testing.T) {
	if got := ParseFraud("FRAUD_SCORE: 137"); got.Score != 100 {
		t.Errorf("Score = %v, want 100", got.Score)
	}
}

func TestParseFraudPercentFallback(t *testing.T) {
	if got := ParseFraud("I estimate this is 85% likely to be fraudulent based on the indicators."); got.Score != 85 {
		t.Errorf("Score = %v, want 85", got.Score)
	}
}

func TestParseFraudNoScoreDegrades(t *testing.T) {
	got := ParseFraud("The model refused to answer.")
	if got.Score != 50 {
		t.Errorf("Score = %v, want neutral 50", got.Score)
	}
	if !got.Degraded {
		t.Error("expected degraded flag")
	}
	if len(got.RiskFactors) != 1 || got.RiskFactors[0] != "Analysis pending" {
		t.Errorf("RiskFactors = %v", got.RiskFactors)
	}
}

func TestParseClinicalJSON(t *testing.T) {
	text := `{"clinical_legitimacy_score": 35, "reasoning": "Procedures incompatible with diagnosis.", "risk_factors": ["diagnosis mismatch"]}`
	got := ParseClinical(text)
	if got.Score != 35 {
		t.Errorf("Score = %v, want 35", got.Score)
	}
	if got.Reasoning != "Procedures incompatible with diagnosis." {
		t.Errorf("Reasoning = %q", got.Reasoning)
	}
	if len(got.RiskFactors) != 1 || got.RiskFactors[0] != "diagnosis mismatch" {
		t.Errorf("RiskFactors = %v", got.RiskFactors)
	}
}

func TestParseClinicalKeywordInference(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"strongly coherent", "The treatment plan is highly appropriate and fully coherent for this diagnosis and patient presentation overall.", 85},
		{"plainly coherent", "The procedures are appropriate and match standard care pathways for this diagnosis in every material respect.", 75},
		{"strongly concerning", "This combination is very concerning and incompatible with the recorded diagnosis and patient history.", 15},
		{"insufficient info", "There is insufficient information to evaluate the clinical picture from the claim as submitted.", 25},
		{"neutral", "The claim was reviewed by the panel.", 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseClinical(tt.text); got.Score != tt.want {
				t.Errorf("Score = %v, want %v", got.Score, tt.want)
			}
		})
	}
}

func TestCleanReasoningStripsCode(t *testing.T) {
	in := "The transaction is highly suspicious due to offshore routing and rapid layering. Code: ```python\nx = 1\n```"
	got := CleanReasoning(in)
	if strings.Contains(got, "```") || strings.Contains(got, "x = 1") {
		t.Errorf("code leaked: %q", got)
	}
	if !strings.HasPrefix(got, "The transaction is highly suspicious") {
		t.Errorf("prose prefix lost: %q", got)
	}
}

func TestCleanReasoningAllCodeFallsBack(t *testing.T) {
	if got := CleanReasoning("import os\nprint(score)"); got != fallbackReasoning {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestCleanReasoningShortTextFallsBack(t *testing.T) {
	if got := CleanReasoning("Looks fine."); got != fallbackReasoning {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestTruncateReasoningSentenceBoundary(t *testing.T) {
	long := strings.Repeat("This transaction shows a clear pattern of layered transfers through offshore accounts. ", 20)
	got := truncateReasoning(long)
	if len(got) > maxReasoningLen {
		t.Errorf("len = %d, want <= %d", len(got), maxReasoningLen)
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("should end at a sentence boundary: %q", got[len(got)-20:])
	}
}
