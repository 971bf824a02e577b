package prompt

import (
	"strings"
	"testing"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func testBuilder() *Builder {
	return NewBuilder([]string{"iran", "north korea", "russia"})
}

func TestBankingPromptJurisdictionWarning(t *testing.T) {
	rec := domain.Record{
		"transaction_id": "tx-1",
		"source_country": "Iran",
		"amount":         5000,
	}
	p := testBuilder().Build(domain.SectorBanking, rec, "", "")

	if !strings.Contains(p, "SANCTIONED/HIGH-RISK JURISDICTION DETECTED - Iran") {
		t.Errorf("missing jurisdiction warning:\n%s", p)
	}
	if !strings.Contains(p, "FRAUD_SCORE:") {
		t.Error("missing output format section")
	}
}

func TestRagSectionOmittedForEmptyContext(t *testing.T) {
	rec := domain.Record{"transaction_id": "tx-1"}
	b := testBuilder()

	for _, ctx := range []string{"", "No similar patterns found.", "   "} {
		if p := b.Build(domain.SectorBanking, rec, ctx, ""); strings.Contains(p, "CONTEXT FROM SIMILAR FRAUD PATTERNS") {
			t.Errorf("context section rendered for %q", ctx)
		}
	}

	p := b.Build(domain.SectorBanking, rec, "pattern: wire fraud via shell company", "")
	if !strings.Contains(p, "pattern: wire fraud via shell company") {
		t.Error("context not embedded")
	}
}

func TestCautionNoteRendered(t *testing.T) {
	rec := domain.Record{"order_id": "o-1"}
	p := testBuilder().Build(domain.SectorEcommerce, rec, "", "Romania (field: shipping_location)")
	if !strings.Contains(p, "CAUTION: Romania (field: shipping_location)") {
		t.Errorf("caution note not rendered:\n%s", p)
	}
}

func TestEcommercePriceDiscrepancyWarning(t *testing.T) {
	rec := domain.Record{
		"order_id":     "o-2",
		"price":        float64(40),
		"market_price": float64(100),
		"amount":       float64(40),
	}
	p := testBuilder().Build(domain.SectorEcommerce, rec, "", "")
	if !strings.Contains(p, "60.0% below market price") {
		t.Errorf("missing price discrepancy warning:\n%s", p)
	}
}

func TestVPNWarning(t *testing.T) {
	rec := domain.Record{"transaction_id": "tx-2", "ip_address": "vpn detected"}
	p := testBuilder().Build(domain.SectorBanking, rec, "", "")
	if !strings.Contains(p, "VPN/Proxy/TOR detected") {
		t.Error("missing vpn warning")
	}
}

func TestStage1ClinicalFocus(t *testing.T) {
	rec := domain.Record{
		"claim_id":        "c-1",
		"patient_age":     45,
		"diagnosis_codes": []string{"E11.9", "I10"},
		"procedure_codes": "99213, 93000",
		"claim_amount":    1250.50,
	}
	p := Stage1Clinical(rec, "")

	if !strings.Contains(p, "CLINICAL LEGITIMACY") {
		t.Error("missing clinical framing")
	}
	if !strings.Contains(p, "E11.9, I10") {
		t.Error("diagnosis codes not joined")
	}
	if !strings.Contains(p, "99213, 93000") {
		t.Error("procedure codes not normalized from comma string")
	}
	if !strings.Contains(p, "$1250.50") {
		t.Error("claim amount not formatted")
	}
	if !strings.Contains(p, "clinical_legitimacy_score") {
		t.Error("missing response schema")
	}
}

func TestStage2EmbedsStage1Verdict(t *testing.T) {
	rec := domain.Record{
		"claim_id":        "c-2",
		"procedure_codes": []string{"99215", "80053", "85025"},
		"claim_amount":    88000,
	}
	p := Stage2Fraud(rec, "", 35, "Procedures are incompatible with the diagnosis.", []string{"diagnosis mismatch"})

	if !strings.Contains(p, "Clinical Legitimacy Score: 35/100") {
		t.Error("stage-1 score not embedded")
	}
	if !strings.Contains(p, "Procedures are incompatible with the diagnosis.") {
		t.Error("stage-1 reasoning not embedded verbatim")
	}
	if !strings.Contains(p, "diagnosis mismatch") {
		t.Error("stage-1 flags not embedded")
	}
	if !strings.Contains(p, "Number of Services: 3") {
		t.Error("service count not derived from procedure codes")
	}
	if !strings.Contains(p, `"fraud_score"`) {
		t.Error("missing JSON response schema")
	}
}

func TestStage2NoFlags(t *testing.T) {
	rec := domain.Record{"claim_id": "c-3"}
	p := Stage2Fraud(rec, "", 90, "Coherent.", nil)
	if !strings.Contains(p, "Clinical Red Flags: None") {
		t.Error("empty flags should render as None")
	}
}
