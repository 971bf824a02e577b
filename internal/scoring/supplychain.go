package scoring

import (
	"math"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

var (
	kickbackIndicators = []string{"kickback", "personal relationship", "bribery", "above market"}

	criticalOrderFlags = []string{"kickback", "bribery", "corruption", "personal relationship", "conflict of interest", "under the table"}
	highRiskOrderFlags = []string{"ghost", "unverified", "no references", "no online presence", "suspicious", "fraud", "inferior quality", "overpriced"}
	mediumOrderFlags   = []string{"unusual", "irregular", "questionable", "concerning"}
	legitimateFlags    = []string{"established", "regular", "verified", "5-year", "history", "legitimate", "competitive pricing"}
)

// SupplyChain scores a procurement order: payment terms, supplier age, price
// and delivery variance, quality issues, documentation and order-text flags.
func SupplyChain(r domain.Record) float64 {
	score := 0.0

	switch strings.ToUpper(r.Str("payment_terms")) {
	case "ADVANCE":
		score += 40
	case "COD":
		score += 10
	}

	supplierAge := r.Int("supplier_age_days", 365)
	switch {
	case supplierAge < 1:
		score += 50
	case supplierAge < 7:
		score += 45
	case supplierAge < 30:
		score += 30
	case supplierAge < 90:
		score += 15
	case supplierAge >= 1095:
		score -= 10
	case supplierAge >= 730:
		score -= 5
	}

	priceVariance := math.Abs(r.Float("price_variance", 0))
	orderDetails := r.LowerStr("order_details")
	hasKickback := containsAny(orderDetails, kickbackIndicators)

	switch {
	case priceVariance > 40:
		score += pick(hasKickback, 40, 35)
	case priceVariance > 30:
		score += pick(hasKickback, 35, 30)
	case priceVariance > 20:
		score += 20
	case priceVariance > 10:
		score += 10
	case priceVariance < 5:
		score -= 5
	}

	qualityIssues := r.Int("quality_issues", 0)
	switch {
	case qualityIssues > 5:
		score += 35
	case qualityIssues > 2:
		score += pick(hasKickback, 30, 25)
	case qualityIssues > 0:
		score += pick(hasKickback, 20, 10)
	}

	docsComplete := r.Bool("documentation_complete", true)
	compliant := r.Bool("regulatory_compliance", true)
	if !docsComplete {
		score += 30
	}
	if !compliant {
		score += 35
	}
	if docsComplete && compliant {
		score -= 5
	}

	deliveryVariance := math.Abs(r.Float("delivery_variance", 0))
	switch {
	case deliveryVariance > 80:
		score += 25
	case deliveryVariance > 50:
		score += 20
	case deliveryVariance > 20:
		score += 10
	case deliveryVariance < 5:
		score -= 5
	}

	orderAmount := r.Float("order_amount", 0)
	if orderAmount > 100000 && supplierAge < 30 {
		score += 20
	} else if orderAmount > 200000 {
		score += 10
	}

	if containsAny(orderDetails, criticalOrderFlags) {
		score += 40
	}
	if containsAny(orderDetails, highRiskOrderFlags) {
		score += 25
	}
	if containsAny(orderDetails, mediumOrderFlags) {
		score += 15
	}
	if containsAny(orderDetails, legitimateFlags) && score < 30 {
		score -= 10
	}

	return clamp(score)
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
