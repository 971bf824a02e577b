package orchestrator

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// maxReasoningLen bounds the cleaned reasoning text; truncation happens at the
// last complete sentence inside the limit.
const maxReasoningLen = 1200

// FraudParse is the structured result extracted from a fraud-analysis
// response. Degraded marks responses where no score could be extracted and
// the neutral default was used.
type FraudParse struct {
	Score       float64
	RiskFactors []string
	Reasoning   string
	Degraded    bool
}

// ClinicalParse is the structured result of a stage-1 clinical legitimacy
// response.
type ClinicalParse struct {
	Score       float64
	Reasoning   string
	RiskFactors []string
}

var (
	fraudJSONPatterns = []*regexp.Regexp{
		regexp.MustCompile("(?is)```json\\s*(\\{.*?\"fraud_score\".*?\\})\\s*```"),
		regexp.MustCompile("(?is)```\\s*(\\{.*?\"fraud_score\".*?\\})\\s*```"),
		regexp.MustCompile(`(?is)(\{.*?"fraud_score".*?\})`),
	}
	fraudScoreLabelRe = regexp.MustCompile(`(?i)FRAUD[_\s]SCORE["']?\s*:\s*(\d+)`)
	percentRe         = regexp.MustCompile(`(\d+)\s*%`)
	scorePatternRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)["']?score["']?\s*:\s*(\d+)`),
		regexp.MustCompile(`(?i)score\s+of\s+(\d+)`),
		regexp.MustCompile(`(?i)score\s+(\d+)`),
	}
	riskFactorsRe = regexp.MustCompile(`(?i)RISK[_\s]FACTORS:\s*([^\n]+)`)
	reasoningRe   = regexp.MustCompile(`(?is)REASONING:\s*(.+)`)
)

// ParseFraud extracts a fraud score, risk factors and cleaned reasoning from
// heterogeneous model output. Preference order: embedded JSON payload, a
// labeled FRAUD_SCORE field, the first in-range percentage, loose score
// patterns, then the neutral default of 50 with the degraded flag set. The
// score is always clamped to [0,100].
func ParseFraud(text string) *FraudParse {
	score, found := extractFraudScore(text)
	if !found {
		slog.Warn("could not extract fraud score from model response, using neutral default")
	}

	factors := []string{"Analysis pending"}
	if m := riskFactorsRe.FindStringSubmatch(text); m != nil {
		factors = splitFactors(m[1])
	}

	reasoning := text
	if m := reasoningRe.FindStringSubmatch(text); m != nil {
		reasoning = strings.TrimSpace(m[1])
	}
	reasoning = truncateReasoning(CleanReasoning(reasoning))

	return &FraudParse{
		Score:       domain.Clamp(score),
		RiskFactors: factors,
		Reasoning:   reasoning,
		Degraded:    !found,
	}
}

func extractFraudScore(text string) (float64, bool) {
	for _, re := range fraudJSONPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var payload struct {
			FraudScore *float64 `json:"fraud_score"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &payload); err == nil && payload.FraudScore != nil {
			return *payload.FraudScore, true
		}
	}

	if m := fraudScoreLabelRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return float64(v), true
		}
	}

	for _, m := range percentRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil && v >= 0 && v <= 100 {
			return float64(v), true
		}
	}

	for _, re := range scorePatternRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v >= 0 && v <= 100 {
				return float64(v), true
			}
		}
	}

	return 50, false
}

var (
	clinicalJSONRe   = regexp.MustCompile(`(?s)\{[^}]*"clinical_legitimacy_score"[^}]*\}`)
	clinicalScoreRe  = regexp.MustCompile(`(?i)clinical[_\s]legitimacy[_\s]score["']?\s*:\s*(\d+)`)
	clinicalPctRe    = regexp.MustCompile(`(?i)(\d+)\s*(?:%|out of 100|/100)`)
	reasoningFieldRe = regexp.MustCompile(`(?is)["']?reasoning["']?\s*:\s*["'](.+?)["']`)
	factorsFieldRe   = regexp.MustCompile(`(?i)["']?risk[_\s]factors["']?\s*:\s*\[([^\]]+)\]`)
)

// ParseClinical extracts the legitimacy sub-score from a stage-1 response:
// JSON payload first, then a labeled field, then a percentage, then keyword
// inference over the prose, defaulting to the neutral 50.
func ParseClinical(text string) *ClinicalParse {
	if m := clinicalJSONRe.FindString(text); m != "" {
		var payload struct {
			Score       *float64 `json:"clinical_legitimacy_score"`
			Reasoning   string   `json:"reasoning"`
			RiskFactors []string `json:"risk_factors"`
		}
		if err := json.Unmarshal([]byte(m), &payload); err == nil && payload.Score != nil {
			reasoning := payload.Reasoning
			if reasoning == "" {
				reasoning = text
			}
			return &ClinicalParse{
				Score:       domain.Clamp(*payload.Score),
				Reasoning:   reasoning,
				RiskFactors: payload.RiskFactors,
			}
		}
	}

	score := 0.0
	if m := clinicalScoreRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.Atoi(m[1])
		score = float64(v)
	} else if m := clinicalPctRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.Atoi(m[1])
		score = float64(v)
	} else {
		score = inferClinicalScore(text)
	}

	reasoning := text
	if m := reasoningFieldRe.FindStringSubmatch(text); m != nil {
		reasoning = strings.TrimSpace(m[1])
	}

	var factors []string
	if m := factorsFieldRe.FindStringSubmatch(text); m != nil {
		factors = splitFactors(strings.NewReplacer(`"`, "", `'`, "").Replace(m[1]))
	}

	return &ClinicalParse{
		Score:       domain.Clamp(score),
		Reasoning:   CleanReasoning(reasoning),
		RiskFactors: factors,
	}
}

// inferClinicalScore estimates a legitimacy score from sentiment keywords when
// the response carries no numeric score at all.
func inferClinicalScore(text string) float64 {
	lower := strings.ToLower(text)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("appropriate", "coherent", "standard", "normal", "typical", "reasonable"):
		if has("highly", "very", "completely", "fully") {
			return 85
		}
		if has("somewhat", "mostly", "generally") {
			return 70
		}
		return 75
	case has("inappropriate", "incompatible", "unusual", "concerning", "red flag"):
		if has("highly", "very", "completely", "definitely") {
			return 15
		}
		if has("somewhat", "possibly", "potentially") {
			return 40
		}
		return 30
	case has("insufficient", "limited", "unclear", "unknown", "impossible"):
		return 25
	}
	return 50
}

func splitFactors(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.Trim(p, ` "'`); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	scoreStmtRe   = regexp.MustCompile(`(?i)FRAUD[_\s]SCORE:\s*\d+`)
	levelStmtRe   = regexp.MustCompile(`(?i)RISK[_\s]LEVEL:\s*(?:LOW|MEDIUM|HIGH|CRITICAL)`)
	factorsStmtRe = regexp.MustCompile(`(?i)RISK[_\s]FACTORS:\s*[^\n]*`)
	codeMarkerRe  = regexp.MustCompile("(?i)\\bCode:\\s*```|```python|```javascript|import\\s+\\w+|def\\s+\\w+\\(")
	codePrefixRe  = regexp.MustCompile("(?i)^([^`#]+?)(?:\\s*Code:|```|import|def|class)")
	shellPipeRe   = regexp.MustCompile(`\s*\|\s*\w+\s+['"].*?['"]`)
	sedExprRe     = regexp.MustCompile(`['"]s/.*?/.*?/[gi]*['"]`)
	fencedRe      = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`[^`]+`")
	importStmtRe  = regexp.MustCompile(`(?:import|from)\s+\w+.*`)
	defStmtRe     = regexp.MustCompile(`def\s+\w+\(.*?\):`)
	hashCommentRe = regexp.MustCompile(`#\s*\w+.*`)
	trailQuoteRe  = regexp.MustCompile(`["']$`)
	trailParenRe  = regexp.MustCompile(`\s*\)\s*$`)
	spacesRe      = regexp.MustCompile(`\s+`)
	labelRe       = regexp.MustCompile(`(?i)\b(?:Example|Reasoning|Analysis):\s*`)
)

const fallbackReasoning = "The record exhibits fraud risk based on the amounts, entity age, and geographic factors provided."

// CleanReasoning strips non-prose artifacts (code fences, shell fragments,
// import statements) from reasoning text. Responses dominated by code collapse
// to a generic explanation rather than leaking artifacts to the caller.
func CleanReasoning(text string) string {
	text = scoreStmtRe.ReplaceAllString(text, "")
	text = levelStmtRe.ReplaceAllString(text, "")
	text = factorsStmtRe.ReplaceAllString(text, "")

	if codeMarkerRe.MatchString(text) {
		if m := codePrefixRe.FindStringSubmatch(text); m != nil {
			text = strings.TrimSpace(m[1])
		} else {
			return fallbackReasoning
		}
	}

	text = shellPipeRe.ReplaceAllString(text, "")
	text = sedExprRe.ReplaceAllString(text, "")
	text = fencedRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = importStmtRe.ReplaceAllString(text, "")
	text = defStmtRe.ReplaceAllString(text, "")
	text = hashCommentRe.ReplaceAllString(text, "")
	text = trailQuoteRe.ReplaceAllString(text, "")
	text = trailParenRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))
	text = labelRe.ReplaceAllString(text, "")

	if len(text) < 50 {
		return fallbackReasoning
	}

	if !strings.ContainsAny(text[len(text)-1:], ".!?") && len(text) > 100 {
		text += "."
	}
	return text
}

// truncateReasoning cuts overlong reasoning at the last complete sentence
// within maxReasoningLen, never mid-sentence.
func truncateReasoning(text string) string {
	if len(text) > maxReasoningLen {
		head := text[:maxReasoningLen]
		if last := lastSentenceEnd(head); last > 150 {
			text = head[:last+1]
		} else {
			text = head
		}
	}

	// Drop a dangling clause left by a truncated final sentence.
	trimmed := strings.TrimRight(text, " ")
	for _, suffix := range []string{" is", " are", " was", " were", " has", " have", " the"} {
		if strings.HasSuffix(trimmed, suffix) && len(text) > 10 {
			if prev := lastSentenceEnd(text[:len(text)-10]); prev > 150 {
				return text[:prev+1]
			}
			break
		}
	}
	return text
}

func lastSentenceEnd(s string) int {
	best := -1
	for _, p := range []string{".", "!", "?"} {
		if idx := strings.LastIndex(s, p); idx > best {
			best = idx
		}
	}
	return best
}
