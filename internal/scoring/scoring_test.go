package scoring

import (
	"testing"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// neutralBanking returns a record whose factors all contribute zero except the
// unverified-KYC penalty (+25), leaving headroom so individual factor deltas
// can be asserted in isolation without hitting the clamp.
func neutralBanking() domain.Record {
	return domain.Record{
		"amount":               2000.0,
		"location":             "germany",
		"ip_address":           "203.0.113.10",
		"transaction_type":     "wire",
		"time":                 "14:30",
		"account_age_days":     200,
		"transaction_velocity": 4,
		"kyc_verified":         false,
	}
}

func TestBankingFactors(t *testing.T) {
	base := Banking(neutralBanking()) // 25: unverified KYC only

	tests := []struct {
		name  string
		key   string
		value any
		delta float64
	}{
		{"large amount", "amount", 150000.0, 30},
		{"medium amount", "amount", 60000.0, 20},
		{"small amount discount", "amount", 500.0, -10},
		{"high-risk location", "location", "lagos, nigeria", 30},
		{"us location discount", "location", "united states", -5},
		{"tor exit node", "ip_address", "tor exit relay", 25},
		{"unknown ip", "ip_address", "unknown", 15},
		{"crypto transfer", "transaction_type", "crypto_exchange", 15},
		{"overnight hours", "time", "03:15", 15},
		{"late evening", "time", "23:05", 10},
		{"brand new account", "account_age_days", 0, 30},
		{"week-old account", "account_age_days", 5, 25},
		{"seasoned account", "account_age_days", 800, -15},
		{"high velocity", "transaction_velocity", 25, 25},
		{"idle account velocity", "transaction_velocity", 1, -5},
		{"previously flagged", "previous_flagged", true, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := neutralBanking()
			r[tt.key] = tt.value
			if got := Banking(r); got != base+tt.delta {
				t.Errorf("expected %v (base %v + %v), got %v", base+tt.delta, base, tt.delta, got)
			}
		})
	}
}

func TestBankingKYCSwing(t *testing.T) {
	r := neutralBanking()
	r["previous_flagged"] = true // ballast so the verified case stays above zero
	unverified := Banking(r)
	r["kyc_verified"] = true
	verified := Banking(r)
	if unverified-verified != 45 {
		t.Errorf("expected 45-point KYC swing, got %v", unverified-verified)
	}
}

func TestBankingWalletIndicators(t *testing.T) {
	base := Banking(neutralBanking())

	r := neutralBanking()
	r["sender_wallet"] = "0x0000000000000000000000000000000000000000"
	if got := Banking(r); got != base+40 {
		t.Errorf("zero-address wallet: expected %v, got %v", base+40, got)
	}

	r = neutralBanking()
	r["sender_wallet"] = "0xabc123"
	r["receiver_wallet"] = "tornado.cash router"
	if got := Banking(r); got != base+40 {
		t.Errorf("mixer destination: expected %v, got %v", base+40, got)
	}
}

func TestBankingClamp(t *testing.T) {
	hot := domain.Record{
		"amount":               500000.0,
		"location":             "nigeria",
		"ip_address":           "tor",
		"transaction_type":     "crypto",
		"time":                 "02:00",
		"account_age_days":     0,
		"transaction_velocity": 30,
		"kyc_verified":         false,
		"previous_flagged":     true,
		"sender_wallet":        "0x0000000000000000000000000000000000000000",
	}
	if got := Banking(hot); got != 100 {
		t.Errorf("expected clamp to 100, got %v", got)
	}

	legit := domain.Record{
		"amount":               200.0,
		"location":             "united states",
		"account_age_days":     1000,
		"transaction_velocity": 1,
		"kyc_verified":         true,
		"time":                 "14:00",
		"ip_address":           "198.51.100.7",
	}
	if got := Banking(legit); got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
}

func TestMedical(t *testing.T) {
	tests := []struct {
		name   string
		record domain.Record
		want   float64
	}{
		{
			"clean small claim",
			domain.Record{"claim_amount": 500.0, "provider_history": "clean"},
			0, // -5 amount, -5 history, clamped
		},
		{
			"large claim flagged provider",
			domain.Record{"claim_amount": 150000.0, "provider_history": "flagged"},
			80,
		},
		{
			"procedure stacking",
			domain.Record{
				"claim_amount": 5000.0,
				"procedures":   []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10", "p11"},
			},
			25, // +30 procedures, -5 default clean history
		},
		{
			"comma-separated procedures",
			domain.Record{"claim_amount": 5000.0, "procedures": "a,b,c,d,e,f"},
			15, // +20 procedures, -5 history
		},
		{
			"diagnosis mismatch unverified provider",
			domain.Record{"claim_amount": 30000.0, "diagnosis_mismatch": true, "provider_verified": false},
			75, // +15 amount, +40 mismatch, +25 unverified, -5 history
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Medical(tt.record); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEcommercePriceMarkup(t *testing.T) {
	// Raw non-price contribution: -5 payment, +10 unknown ip, +15 unverified
	// email, -5 shipping, -5 description = +10, keeping every case off the clamp.
	base := domain.Record{
		"seller_age_days":   365,
		"ip_address":        "unknown",
		"email_verified":    false,
		"reviews":           "great product, arrived on time",
		"shipping_location": "united states",
		"description":       "authentic brand-name product with full warranty",
		"payment_method":    "credit_card",
	}

	withPrices := func(listed, market float64) domain.Record {
		r := domain.Record{}
		for k, v := range base {
			r[k] = v
		}
		r["listed_price"] = listed
		r["market_price"] = market
		return r
	}

	baseline := Ecommerce(withPrices(100, 100)) // fair price earns -5

	tests := []struct {
		name   string
		listed float64
		market float64
		delta  float64
	}{
		{"extreme markup", 1200, 100, 60 + 5},
		{"high markup", 600, 100, 45 + 5},
		{"double market", 250, 100, 30 + 5},
		{"deep discount", 25, 100, 50 + 5},
		{"moderate discount", 60, 100, 25 + 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ecommerce(withPrices(tt.listed, tt.market))
			if got != baseline+tt.delta {
				t.Errorf("expected %v, got %v", baseline+tt.delta, got)
			}
		})
	}
}

func TestEcommerceReviews(t *testing.T) {
	tests := []struct {
		name    string
		reviews any
		want    float64
	}{
		{"empty reviews list", []string{}, 20},
		{"missing reviews", nil, 20},
		{"few reviews", []string{"good", "fine"}, 10},
		{"negative reviews", []string{"total scam", "never received", "ok"}, 10 + 30},
		{"uniform perfect reviews", []string{"excellent!", "excellent!!", "excellent A+"}, 10 + 30},
		{"negative review text", "this seller is a scam, items counterfeit", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := domain.Record{}
			if tt.reviews != nil {
				r["reviews"] = tt.reviews
			}
			if got := scoreReviews(r); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSupplyChain(t *testing.T) {
	tests := []struct {
		name   string
		record domain.Record
		want   float64
	}{
		{
			"established supplier clean order",
			domain.Record{
				"supplier_age_days":      1500,
				"price_variance":         2.0,
				"delivery_variance":      1.0,
				"documentation_complete": true,
				"regulatory_compliance":  true,
				"payment_terms":          "NET30",
				"order_details":          "established supplier with 5-year history, competitive pricing",
			},
			0,
		},
		{
			"advance payment ghost supplier",
			domain.Record{
				"supplier_age_days":      3,
				"payment_terms":          "ADVANCE",
				"price_variance":         45.0,
				"order_details":          "ghost company, no references, kickback arrangement suspected",
				"documentation_complete": false,
				"regulatory_compliance":  false,
				"quality_issues":         6,
			},
			100,
		},
		{
			"kickback raises variance weight",
			domain.Record{
				"supplier_age_days":      365,
				"price_variance":         35.0,
				"delivery_variance":      10.0,
				"documentation_complete": true,
				"regulatory_compliance":  true,
				"order_details":          "pricing above market, personal relationship with buyer",
			},
			70, // +35 variance at kickback weight, -5 docs credit, +40 critical flag
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SupplyChain(tt.record); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	r := domain.Record{
		"amount":           75000.0,
		"location":         "cayman islands",
		"account_age_days": 10,
		"kyc_verified":     false,
	}
	first := Score(domain.SectorBanking, r)
	for i := 0; i < 50; i++ {
		if got := Score(domain.SectorBanking, r); got != first {
			t.Fatalf("score not deterministic: %v vs %v", got, first)
		}
	}
}

func TestScoreWithContextRescaling(t *testing.T) {
	// 15 amount + 5 age + 25 unverified KYC = 45, safely above the enhancement floor.
	mid := domain.Record{
		"amount":               20000.0,
		"account_age_days":     60,
		"transaction_velocity": 4,
		"kyc_verified":         false,
		"time":                 "12:00",
		"ip_address":           "198.51.100.3",
		"location":             "germany",
	}
	midBase := Score(domain.SectorBanking, mid)
	if midBase <= 30 {
		t.Fatalf("fixture error: expected mid-range base score > 30, got %v", midBase)
	}

	t.Run("high-risk context enhances above 30", func(t *testing.T) {
		got := ScoreWithContext(domain.SectorBanking, mid, "Similar patterns: HIGH RISK wire fraud cluster")
		want := roundTenth(minf(100, midBase*1.1))
		if got != want {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("medium-risk context enhances by 5%", func(t *testing.T) {
		got := ScoreWithContext(domain.SectorBanking, mid, "warning: unusual settlement pattern")
		want := roundTenth(minf(100, midBase*1.05))
		if got != want {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("no rescale without context", func(t *testing.T) {
		if got := ScoreWithContext(domain.SectorBanking, mid, ""); got != roundTenth(midBase) {
			t.Errorf("expected %v, got %v", roundTenth(midBase), got)
		}
	})

	t.Run("sentinel context ignored", func(t *testing.T) {
		got := ScoreWithContext(domain.SectorBanking, mid, "No similar patterns found.")
		if got != roundTenth(midBase) {
			t.Errorf("expected %v, got %v", roundTenth(midBase), got)
		}
	})
}

func TestScoreWithContextLegitimateReduction(t *testing.T) {
	// Unverified KYC alone: base 25, inside (0,30).
	r := domain.Record{
		"amount":               3000.0,
		"location":             "germany",
		"account_age_days":     100,
		"transaction_velocity": 4,
		"kyc_verified":         false,
		"time":                 "11:00",
		"ip_address":           "198.51.100.3",
	}
	base := Score(domain.SectorBanking, r)
	if base >= 30 || base <= 0 {
		t.Fatalf("fixture error: expected base in (0,30), got %v", base)
	}

	got := ScoreWithContext(domain.SectorBanking, r, "similar transactions: low risk, established counterparties")
	want := roundTenth(base * 0.8)
	if got != want {
		t.Errorf("expected legitimate-context reduction to %v, got %v", want, got)
	}

	// Risk keywords must not inflate a low base score.
	unchanged := ScoreWithContext(domain.SectorBanking, r, "HIGH RISK fraud cluster nearby")
	if unchanged != roundTenth(base) {
		t.Errorf("low base score must not be enhanced, got %v want %v", unchanged, roundTenth(base))
	}
}

func TestScoreUnknownSectorNeutral(t *testing.T) {
	if got := Score(domain.Sector("gaming"), domain.Record{}); got != 50 {
		t.Errorf("expected neutral 50 for unknown sector, got %v", got)
	}
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
