package arbiter

import (
	"fmt"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// BuildExplanation renders the natural-language explanation for a
// deterministic verdict.
func BuildExplanation(sector domain.Sector, rec domain.Record, score float64, level domain.RiskLevel, modelLabel string) string {
	var body string
	switch sector {
	case domain.SectorBanking:
		body = explainBanking(rec)
	case domain.SectorMedical:
		body = explainMedical(rec)
	case domain.SectorEcommerce:
		body = explainEcommerce(rec)
	case domain.SectorSupplyChain:
		body = explainSupplyChain(rec)
	default:
		body = "Analysis complete."
	}
	return fmt.Sprintf("%s analysis identifies %s risk. %s", modelLabel, level, body)
}

func explainBanking(rec domain.Record) string {
	var factors []string

	if amount := rec.Float("amount", 0); amount > 10000 {
		factors = append(factors, fmt.Sprintf("unusually high transaction amount ($%.2f)", amount))
	}
	if location := rec.Str("location"); location != "" {
		factors = append(factors, "transaction from "+location)
	}
	if strings.Contains(rec.LowerStr("device"), "new") {
		factors = append(factors, "new or unrecognized device")
	}
	if t := rec.Str("time"); t != "" {
		factors = append(factors, "transaction at "+t)
	}
	if age := rec.Int("account_age_days", 365); age < 30 {
		factors = append(factors, fmt.Sprintf("account age only %d days", age))
	}

	if len(factors) > 0 {
		return "Red flags detected: " + strings.Join(factors, ", ") +
			". These indicators suggest potential fraudulent activity requiring further investigation."
	}
	return "Transaction appears legitimate with standard patterns. This analysis evaluated transaction amount, " +
		"account age, geographic location, device fingerprint, transaction timing, and KYC verification status."
}

func explainMedical(rec domain.Record) string {
	var factors []string

	if amount := rec.Float("claim_amount", 0); amount > 20000 {
		factors = append(factors, fmt.Sprintf("high claim amount ($%.2f)", amount))
	}
	if procedures := rec.StringList("procedures"); len(procedures) > 5 {
		factors = append(factors, fmt.Sprintf("%d procedures in single claim", len(procedures)))
	}
	if rec.Bool("diagnosis_mismatch", false) {
		factors = append(factors, "diagnosis-procedure mismatch detected")
	}
	if strings.Contains(rec.LowerStr("provider_history"), "flagged") {
		factors = append(factors, "provider has previous fraud flags")
	}

	if len(factors) > 0 {
		return "Suspicious indicators: " + strings.Join(factors, ", ") +
			". These indicators suggest potential billing fraud, upcoding, or unnecessary procedures."
	}
	return "Claim follows standard medical billing patterns. This analysis evaluated claim amount, procedure count, " +
		"provider history, diagnosis-procedure compatibility, and billing frequency."
}

func explainEcommerce(rec domain.Record) string {
	var factors, details []string

	if age := rec.Int("seller_age_days", 365); age < 30 {
		factors = append(factors, fmt.Sprintf("seller account only %d days old", age))
		details = append(details, "New seller accounts are statistically more likely to engage in fraudulent activities.")
	}

	price := rec.Float("price", 0)
	marketPrice := rec.Float("market_price", price)
	if marketPrice > 0 {
		priceDiff := (price - marketPrice) / marketPrice * 100
		if price < marketPrice*0.5 {
			factors = append(factors, fmt.Sprintf("price %.0f%% below market value", abs(priceDiff)))
			details = append(details, "Significant price deviation may indicate counterfeit goods or bait-and-switch schemes.")
		} else if price > marketPrice*1.5 {
			factors = append(factors, fmt.Sprintf("price %.0f%% above market value", priceDiff))
			details = append(details, "Unusually high pricing suggests potential price gouging.")
		}
	}

	if !rec.Has("reviews") || len(rec.StringList("reviews")) == 0 {
		factors = append(factors, "no customer reviews")
		details = append(details, "Lack of customer reviews prevents verification of seller reliability.")
	} else {
		negative := 0
		for _, review := range rec.StringList("reviews") {
			lower := strings.ToLower(review)
			for _, kw := range []string{"negative", "bad", "poor", "terrible", "scam", "fake", "fraud"} {
				if strings.Contains(lower, kw) {
					negative++
					break
				}
			}
		}
		if negative > 0 {
			factors = append(factors, fmt.Sprintf("%d negative review(s)", negative))
			details = append(details, "Negative feedback indicates potential quality issues or fraudulent behavior.")
		}
	}

	if shipping := rec.LowerStr("shipping_location"); shipping == "" || strings.Contains(shipping, "unknown") {
		factors = append(factors, "unclear shipping origin")
		details = append(details, "Unclear shipping origin raises concerns about product authenticity.")
	}

	if len(factors) > 0 {
		out := "Warning signs present: " + strings.Join(factors, ", ") + "."
		if len(details) > 0 {
			out += " " + strings.Join(details, " ")
		}
		return out
	}
	return "Listing appears legitimate with typical marketplace patterns. This analysis evaluated seller account " +
		"history, pricing consistency, customer feedback, and shipping transparency."
}

func explainSupplyChain(rec domain.Record) string {
	var factors []string

	if age := rec.Int("supplier_age_days", 365); age < 30 {
		factors = append(factors, fmt.Sprintf("new supplier (%d days)", age))
	}
	if rec.Str("payment_terms") == "ADVANCE" {
		factors = append(factors, "advance payment required")
	}
	if variance := abs(rec.Float("price_variance", 0)); variance > 20 {
		factors = append(factors, fmt.Sprintf("price variance %.1f%% from market", variance))
	}
	if issues := rec.Int("quality_issues", 0); issues > 0 {
		factors = append(factors, fmt.Sprintf("%d quality issues", issues))
	}
	if !rec.Bool("documentation_complete", true) {
		factors = append(factors, "incomplete documentation")
	}
	if !rec.Bool("regulatory_compliance", true) {
		factors = append(factors, "regulatory compliance issues")
	}
	if variance := rec.Float("delivery_variance", 0); variance > 20 {
		factors = append(factors, fmt.Sprintf("delivery variance %.1f%%", variance))
	}

	if len(factors) > 0 {
		return "Risk indicators found: " + strings.Join(factors, ", ") + "."
	}
	return "Supplier and order profile appear legitimate."
}
