// Package precheck runs the deterministic short-circuit checks that execute
// before any model call: sanctioned-jurisdiction detection and extreme-value
// detection. Both checks are pure; the first to trigger wins.
package precheck

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Checker evaluates the pre-model checks for a record.
type Checker struct {
	sanctioned []string
}

// New creates a Checker with the given sanctioned/high-risk jurisdiction list.
// Matching is case-insensitive substring matching against the sector's
// location fields.
func New(sanctioned []string) *Checker {
	lowered := make([]string, len(sanctioned))
	for i, s := range sanctioned {
		lowered[i] = strings.ToLower(s)
	}
	return &Checker{sanctioned: lowered}
}

// Result is the outcome of the pre-checks. ShortCircuit is non-nil when the
// pipeline must skip model invocation entirely. CautionNote is set when a
// jurisdiction match alone was found: the pipeline proceeds to modeling but
// embeds the note in the prompt.
type Result struct {
	ShortCircuit *domain.ScoreResult
	CautionNote  string
}

// Evaluate runs the jurisdiction check, then the extreme-value check.
func (c *Checker) Evaluate(sector domain.Sector, record domain.Record) Result {
	if res, note := c.jurisdictionCheck(sector, record); res != nil {
		return Result{ShortCircuit: res}
	} else if note != "" {
		if res := extremeValueCheck(sector, record); res != nil {
			return Result{ShortCircuit: res}
		}
		return Result{CautionNote: note}
	}
	return Result{ShortCircuit: extremeValueCheck(sector, record)}
}

// jurisdictionCheck scans the sector's location fields for sanctioned or
// high-risk jurisdictions. A match plus at least one secondary red flag
// short-circuits; a lone match yields a caution note instead.
func (c *Checker) jurisdictionCheck(sector domain.Sector, record domain.Record) (*domain.ScoreResult, string) {
	countries := c.matchJurisdictions(sector, record)
	if len(countries) == 0 {
		return nil, ""
	}

	factors := []string{fmt.Sprintf("High-risk jurisdictions: %s", strings.Join(countries, ", "))}
	flags := len(countries)

	ip := record.LowerStr("ip_address")
	if strings.Contains(ip, "vpn") || strings.Contains(ip, "tor") || strings.Contains(ip, "proxy") {
		flags++
		factors = append(factors, "Anonymizing network indicator in IP address")
	}

	if field := sector.VerificationField(); field != "" && !record.Bool(field, false) {
		flags++
		factors = append(factors, fmt.Sprintf("Missing verification (%s)", field))
	}

	if field := sector.AgeField(); field != "" && record.Int(field, 365) < 30 {
		flags++
		factors = append(factors, fmt.Sprintf("New entity (%s < 30 days)", field))
	}

	if sector == domain.SectorBanking && record.Float("amount", 0) > 50000 {
		flags++
		factors = append(factors, "Large transaction from high-risk region")
	}

	if flags < 2 {
		note := fmt.Sprintf("CAUTION: record references high-risk jurisdiction(s) %s; apply enhanced scrutiny.",
			strings.Join(countries, ", "))
		return nil, note
	}

	extra := flags - 1
	score := domain.Clamp(75 + 5*float64(extra))
	slog.Warn("precheck short-circuit: jurisdiction match with red flags",
		"sector", sector, "flags", flags, "score", score)

	return &domain.ScoreResult{
		FraudScore:  score,
		RiskLevel:   domain.RiskLevelFor(score),
		RiskFactors: factors,
		Reasoning:   "Record involves a sanctioned or high-risk jurisdiction with multiple additional red flags. Enhanced due diligence required; model inference skipped.",
		ModelUsed:   "Pre-Check (Jurisdiction + Rule-Based)",
		Source:      domain.SourcePrecheck,
	}, ""
}

func (c *Checker) matchJurisdictions(sector domain.Sector, record domain.Record) []string {
	var found []string
	for _, field := range sector.LocationFields() {
		value := record.LowerStr(field)
		if value == "" {
			continue
		}
		for _, country := range c.sanctioned {
			if strings.Contains(value, country) {
				found = append(found, fmt.Sprintf("%s (field: %s)", titleCase(country), field))
				break
			}
		}
	}
	return found
}

// monetaryFields are checked for negative values in every sector.
var monetaryFields = []string{"amount", "claim_amount", "order_amount", "listed_price", "market_price", "price"}

// extremeValueCheck detects statistically implausible ratios and amounts.
// Tiers map to base scores 70-95; any negative monetary value forces at least
// 85. The check triggers when the base reaches 70.
func extremeValueCheck(sector domain.Sector, record domain.Record) *domain.ScoreResult {
	base := 0.0
	var factors []string

	bump := func(score float64, factor string) {
		if score > base {
			base = score
		}
		factors = append(factors, factor)
	}

	for _, field := range monetaryFields {
		if record.Has(field) && record.Float(field, 0) < 0 {
			bump(85, fmt.Sprintf("Negative monetary value in %s", field))
		}
	}

	switch sector {
	case domain.SectorEcommerce:
		listed := record.Float("listed_price", 0)
		market := record.Float("market_price", 0)
		if listed > 0 && market > 0 {
			switch ratio := listed / market; {
			case ratio > 10:
				bump(95, fmt.Sprintf("Extreme price markup: %.1fx market price", ratio))
			case ratio > 5:
				bump(85, fmt.Sprintf("Very high price markup: %.1fx market price", ratio))
			case ratio > 2:
				bump(70, fmt.Sprintf("High price markup: %.1fx market price", ratio))
			}
		}
		if record.Has("seller_rating") && record.Float("seller_rating", 5) < 2 {
			bump(75, fmt.Sprintf("Poor seller rating: %.1f/5.0", record.Float("seller_rating", 5)))
		}

	case domain.SectorBanking:
		amount := record.Float("amount", 0)
		age := record.Int("account_age_days", 365)
		switch {
		case amount > 1000000 && age < 30:
			bump(95, fmt.Sprintf("Very large transaction (%.0f) from account under 30 days old", amount))
		case amount > 10000000:
			bump(90, fmt.Sprintf("Exceptionally large transaction: %.0f", amount))
		case amount > 500000 && age < 90:
			bump(85, fmt.Sprintf("Large transaction (%.0f) from account under 90 days old", amount))
		}

	case domain.SectorMedical:
		claim := record.Float("claim_amount", 0)
		switch {
		case claim > 1000000:
			bump(95, fmt.Sprintf("Extreme claim amount: %.0f", claim))
		case claim > 500000:
			bump(85, fmt.Sprintf("Very large claim amount: %.0f", claim))
		}

	case domain.SectorSupplyChain:
		variance := record.Float("price_variance", 0)
		switch {
		case variance > 500:
			bump(90, fmt.Sprintf("Extreme price variance: %.0f%%", variance))
		case variance > 300:
			bump(80, fmt.Sprintf("Very high price variance: %.0f%%", variance))
		}
	}

	if base < 70 {
		return nil
	}

	score := domain.Clamp(base + 2*float64(len(factors)))
	slog.Warn("precheck short-circuit: extreme value pattern",
		"sector", sector, "base", base, "score", score)

	return &domain.ScoreResult{
		FraudScore:  score,
		RiskLevel:   domain.RiskLevelFor(score),
		RiskFactors: factors,
		Reasoning:   "Extreme fraud indicators detected before model analysis. Immediate review recommended.",
		ModelUsed:   "Pre-Check (Rule-Based)",
		Source:      domain.SourcePrecheck,
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
