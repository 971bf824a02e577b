package scoring

import (
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

var negativeReviewKeywords = []string{
	"bad", "scam", "fraud", "fake", "counterfeit", "poor", "terrible",
	"worst", "awful", "never received", "stolen", "illegal", "suspicious",
	"delays", "never arrived", "defective", "broken", "misleading",
}

var trustedShippingLocations = map[string]bool{
	"united states":  true,
	"canada":         true,
	"united kingdom": true,
	"germany":        true,
	"france":         true,
}

// Ecommerce scores a marketplace order: seller age, price plausibility,
// address consistency, payment method, reviews and listing quality.
func Ecommerce(r domain.Record) float64 {
	score := 0.0

	sellerAge := r.Int("seller_age_days", 365)
	switch {
	case sellerAge < 1:
		score += 45
	case sellerAge < 7:
		score += 40
	case sellerAge < 30:
		score += 25
	case sellerAge < 90:
		score += 10
	case sellerAge >= 730:
		score -= 10
	}

	price := r.Float("listed_price", 0)
	if price == 0 {
		price = r.Float("price", 0)
	}
	marketPrice := r.Float("market_price", price)
	if marketPrice > 0 && price > 0 {
		markupRatio := price / marketPrice
		switch {
		case markupRatio > 10:
			score += 60
		case markupRatio > 5:
			score += 45
		case markupRatio > 2:
			score += 30
		case price < marketPrice:
			discountPct := (marketPrice - price) / marketPrice * 100
			switch {
			case discountPct > 70:
				score += 50
			case discountPct > 50:
				score += 40
			case discountPct > 30:
				score += 25
			}
		case markupRatio >= 0.9 && markupRatio <= 1.1:
			score -= 5
		}
	}

	orderAmount := r.Float("amount", 0)
	if orderAmount == 0 {
		orderAmount = r.Float("order_amount", 0)
	}
	if price > 0 && orderAmount > price {
		switch ratio := orderAmount / price; {
		case ratio >= 10:
			score += 60
		case ratio >= 5:
			score += 45
		case ratio >= 2:
			score += 30
		}
	}

	shipping := r.LowerStr("shipping_address")
	billing := r.LowerStr("billing_address")
	if shipping != "" && billing != "" {
		if strings.ReplaceAll(shipping, " ", "") != strings.ReplaceAll(billing, " ", "") {
			score += 30
		} else if shipping == billing {
			score -= 5
		}
	}

	payment := r.LowerStr("payment_method")
	if containsAny(payment, []string{"crypto", "gift_card", "prepaid", "other"}) {
		score += 20
	} else if payment == "credit_card" || payment == "debit_card" {
		score -= 5
	}

	ip := r.LowerStr("ip_address")
	if strings.Contains(ip, "vpn") || strings.Contains(ip, "tor") || strings.Contains(ip, "proxy") {
		score += 25
	} else if strings.Contains(ip, "unknown") || ip == "" {
		score += 10
	}

	if r.Bool("email_verified", false) {
		score -= 5
	} else {
		score += 15
	}

	score += scoreReviews(r)

	if !r.Bool("seller_verified", false) && sellerAge < 30 {
		score += 15
	}

	shippingLoc := r.LowerStr("shipping_location")
	if strings.Contains(shippingLoc, "unknown") || shippingLoc == "" {
		score += 25
	} else if trustedShippingLocations[shippingLoc] {
		score -= 5
	}

	description := r.LowerStr("description")
	if description == "" {
		description = r.LowerStr("product_details")
	}
	if strings.Contains(description, "stock photo") || strings.Contains(description, "vague") || len(description) < 20 {
		score += 15
	} else if strings.Contains(description, "authentic") || strings.Contains(description, "verified") {
		score -= 5
	}

	return clamp(score)
}

func scoreReviews(r domain.Record) float64 {
	raw, ok := r["reviews"]
	if !ok || raw == nil {
		return 20 // no review history
	}

	if s, ok := raw.(string); ok {
		if s == "" || strings.EqualFold(s, "none") {
			return 20
		}
		lower := strings.ToLower(s)
		negatives := 0
		for _, kw := range negativeReviewKeywords {
			if strings.Contains(lower, kw) {
				negatives++
			}
		}
		if negatives > 0 {
			return min(40, float64(negatives)*10)
		}
		return 0
	}

	reviews := r.StringList("reviews")
	score := 0.0
	if len(reviews) == 0 {
		return 20
	}
	if len(reviews) < 5 {
		score += 10
	}

	negatives := 0
	for _, review := range reviews {
		if containsAny(strings.ToLower(review), negativeReviewKeywords) {
			negatives++
		}
	}
	if negatives > 0 {
		score += min(40, float64(negatives)*15)
	} else if allSuspiciouslyPerfect(reviews) {
		score += 30
	}
	return score
}

// allSuspiciouslyPerfect reports whether the first reviews are uniformly
// perfect, a pattern common in purchased review batches.
func allSuspiciouslyPerfect(reviews []string) bool {
	head := reviews
	if len(head) > 5 {
		head = head[:5]
	}
	for _, review := range head {
		lower := strings.ToLower(review)
		if !strings.Contains(lower, "excellent") && !strings.Contains(lower, "5") {
			return false
		}
	}
	return true
}
