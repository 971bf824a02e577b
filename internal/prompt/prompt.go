// Package prompt renders the per-sector analysis prompts sent to upstream
// models, including the two-stage medical variants.
package prompt

import (
	"fmt"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// noPatternsMarker is the retrieval layer's empty-context sentinel; a context
// equal to it renders no context section.
const noPatternsMarker = "No similar patterns found."

// Builder renders sector prompts. The sanctioned jurisdiction list feeds the
// inline location warnings.
type Builder struct {
	sanctioned []string
}

// NewBuilder creates a Builder over a lowercased copy of the jurisdiction list.
func NewBuilder(sanctioned []string) *Builder {
	lowered := make([]string, len(sanctioned))
	for i, s := range sanctioned {
		lowered[i] = strings.ToLower(s)
	}
	return &Builder{sanctioned: lowered}
}

// Build renders the single-stage fraud prompt for a sector. cautionNote is
// the pre-check's lone-jurisdiction warning, empty when none fired.
func (b *Builder) Build(sector domain.Sector, rec domain.Record, ragContext, cautionNote string) string {
	switch sector {
	case domain.SectorBanking:
		return b.banking(rec, ragContext, cautionNote)
	case domain.SectorMedical:
		return b.medical(rec, ragContext, cautionNote)
	case domain.SectorEcommerce:
		return b.ecommerce(rec, ragContext, cautionNote)
	case domain.SectorSupplyChain:
		return b.supplyChain(rec, ragContext, cautionNote)
	}
	return b.banking(rec, ragContext, cautionNote)
}

func ragSection(ragContext string) string {
	trimmed := strings.TrimSpace(ragContext)
	if trimmed == "" || trimmed == noPatternsMarker {
		return ""
	}
	return fmt.Sprintf(`
CONTEXT FROM SIMILAR FRAUD PATTERNS:
%s

Use this context to inform your analysis, but base your score on the specific record details provided below.
`, trimmed)
}

// jurisdictionWarning scans the sector's location fields for sanctioned or
// high-risk jurisdictions and renders the inline warning block.
func (b *Builder) jurisdictionWarning(rec domain.Record, fields []string) string {
	var found []string
	for _, field := range fields {
		value := rec.LowerStr(field)
		if value == "" {
			continue
		}
		for _, country := range b.sanctioned {
			if strings.Contains(value, country) {
				title := titleCase(country)
				if !contains(found, title) {
					found = append(found, title)
				}
			}
		}
	}
	if len(found) == 0 {
		return ""
	}
	list := strings.Join(found, ", ")
	return fmt.Sprintf("CRITICAL: SANCTIONED/HIGH-RISK JURISDICTION DETECTED - %s\n"+
		"Records involving %s are subject to sanctions or are known high-risk fraud jurisdictions.\n"+
		"This is a MAJOR RED FLAG requiring immediate review. Add 40-60 points to the fraud score.\n", list, list)
}

func vpnWarning(rec domain.Record) string {
	ip := rec.LowerStr("ip_address")
	if strings.Contains(ip, "vpn") || strings.Contains(ip, "proxy") || strings.Contains(ip, "tor") {
		return "WARNING: VPN/Proxy/TOR detected - This is a HIGH-RISK indicator for fraud!\n"
	}
	return ""
}

func cautionWarning(note string) string {
	if note == "" {
		return ""
	}
	return fmt.Sprintf("CAUTION: %s - weigh this jurisdiction exposure heavily in your score.\n", note)
}

func (b *Builder) banking(rec domain.Record, ragContext, cautionNote string) string {
	indicators := b.jurisdictionWarning(rec, domain.SectorBanking.LocationFields()) +
		vpnWarning(rec) + cautionWarning(cautionNote)

	walletInfo := ""
	if rec.Str("sender_wallet") != "" || rec.Str("receiver_wallet") != "" {
		walletInfo = fmt.Sprintf(`
Blockchain Details (Crypto Transaction):
- Sender Wallet: %s
- Receiver Wallet: %s
- Note: Check wallet addresses against known fraud databases for transaction history
`, orNA(rec.Str("sender_wallet")), orNA(rec.Str("receiver_wallet")))
	}

	return fmt.Sprintf(`You are a senior financial fraud analyst with 15 years of experience. Analyze this transaction and provide a detailed, professional assessment in plain English. Do NOT generate code or technical syntax.
%s
CRITICAL FRAUD INDICATORS TO EVALUATE:
%s
Transaction Details:
- Transaction ID: %s
- Type: %s
- Amount: $%s
- Source Country: %s
- Destination Country: %s
- Account Age: %d days (NEW accounts < 90 days are HIGH RISK)
- KYC Verified: %t (FALSE = HIGH RISK)
- Previously Flagged: %t
- Transaction Velocity: %s transactions in 24h
- IP Address: %s
%s
SCORING GUIDELINES (STRICT - be conservative and flag suspicious transactions):
- Sanctioned/high-risk jurisdictions: Add 40-60 points (CRITICAL if combined with other flags)
- VPN/Proxy/TOR detected: Add 25-30 points
- Unverified KYC: Add 15-20 points
- New account (< 30 days): Add 20-30 points
- High transaction velocity (> 10/day): Add 15-20 points
- Large amounts (> $10,000): Add 15-25 points
- Multiple red flags combined: ALWAYS use HIGH (60-85) or CRITICAL (85-100) scores
- IMPORTANT: If 3+ red flags are present, the score MUST be 70+ (HIGH) or 85+ (CRITICAL). Do NOT assign LOW scores when multiple risk indicators are present.

%s`,
		ragSection(ragContext), indicators,
		orNA(rec.Str("transaction_id")), orNA(rec.Str("transaction_type")), orNA(rec.Str("amount")),
		orNA(rec.Str("source_country")), orNA(rec.Str("destination_country")),
		rec.Int("account_age_days", 0), rec.Bool("kyc_verified", false), rec.Bool("previously_flagged", false),
		orNA(rec.Str("transaction_velocity")), orNA(rec.Str("ip_address")),
		walletInfo, outputFormat)
}

func (b *Builder) medical(rec domain.Record, ragContext, cautionNote string) string {
	indicators := b.jurisdictionWarning(rec, domain.SectorMedical.LocationFields()) + cautionWarning(cautionNote)

	return fmt.Sprintf(`You are a senior healthcare fraud investigator with 15 years of experience in medical billing fraud. Analyze this claim and provide a detailed, professional assessment in plain English. Do NOT generate code or technical syntax.
%s
CRITICAL FRAUD INDICATORS TO EVALUATE:
%s
Claim Details:
- Claim ID: %s
- Patient Age: %s
- Provider ID: %s
- Specialty: %s
- Diagnosis Codes: %s
- Procedure Codes: %s
- Claim Amount: $%s
- Provider History: %s
- Claim Details: %s

SCORING GUIDELINES (STRICT - be conservative and flag suspicious claims):
- Sanctioned/high-risk jurisdictions: Add 40-60 points (CRITICAL if combined with other flags)
- Unbundling (separating procedures that should be billed together): Add 30-40 points
- Upcoding (billing for more expensive procedures): Add 25-35 points
- Procedure/diagnosis mismatch: Add 20-30 points
- Excessive claim amount (> $50,000): Add 15-25 points
- New provider (< 90 days): Add 15-20 points
- Multiple red flags combined: ALWAYS use HIGH (60-85) or CRITICAL (85-100) scores
- IMPORTANT: If 3+ red flags are present, the score MUST be 70+ (HIGH) or 85+ (CRITICAL). Do NOT assign LOW scores when multiple risk indicators are present.

%s`,
		ragSection(ragContext), indicators,
		orNA(rec.Str("claim_id")), orNA(rec.Str("patient_age")), orNA(rec.Str("provider_id")),
		orNA(rec.Str("specialty")), codeList(rec, "diagnosis_codes", "diagnosis_code"),
		codeList(rec, "procedure_codes", "procedure_code"), orNA(rec.Str("claim_amount")),
		orNA(rec.Str("provider_history")), orNA(rec.Str("claim_details")),
		outputFormat)
}

func (b *Builder) ecommerce(rec domain.Record, ragContext, cautionNote string) string {
	price := rec.Float("price", rec.Float("amount", 0))
	amount := rec.Float("amount", rec.Float("price", 0))
	marketPrice := rec.Float("market_price", 0)

	var priceWarning strings.Builder
	if marketPrice > 0 && price > 0 {
		discountPct := (marketPrice - price) / marketPrice * 100
		if discountPct > 50 {
			fmt.Fprintf(&priceWarning, "CRITICAL: Listed price is %.1f%% below market price ($%g vs $%g) - MAJOR RED FLAG!\n", discountPct, price, marketPrice)
		} else if discountPct > 30 {
			fmt.Fprintf(&priceWarning, "WARNING: Listed price is %.1f%% below market price ($%g vs $%g)\n", discountPct, price, marketPrice)
		}
	}
	if price > 0 && amount > 0 && price != amount {
		diffPct := abs(price-amount) / max(price, amount) * 100
		if diffPct > 50 {
			fmt.Fprintf(&priceWarning, "CRITICAL: Listed price ($%g) differs significantly from order amount ($%g) - This is suspicious!\n", price, amount)
		}
	}

	emailRisk := ""
	if !rec.Bool("email_verified", false) {
		emailRisk = "WARNING: Email NOT verified - Unverified accounts are HIGH-RISK for fraud!\n"
	}

	reviewRisk := ""
	reviews := strings.ToLower(strings.Join(rec.StringList("reviews"), " "))
	for _, kw := range []string{"scam", "fraud", "illegal", "fake", "counterfeit", "do not buy", "sanction", "warning"} {
		if strings.Contains(reviews, kw) {
			reviewRisk = "CRITICAL: Reviews contain fraud warnings (scam, illegal, fake, etc.) - This is a MAJOR RED FLAG!\n"
			break
		}
	}

	indicators := b.jurisdictionWarning(rec, domain.SectorEcommerce.LocationFields()) +
		priceWarning.String() + vpnWarning(rec) + emailRisk + reviewRisk + cautionWarning(cautionNote)

	return fmt.Sprintf(`You are a senior e-commerce fraud prevention specialist with expertise in online marketplace scams. Analyze this transaction and provide a detailed, professional assessment in plain English. Do NOT generate code or technical syntax.
%s
CRITICAL FRAUD INDICATORS TO EVALUATE:
%s
Transaction Details:
- Order ID: %s
- Seller Age: %d days (NEW sellers < 90 days are HIGH RISK)
- Listed Price: $%s
- Market Price: $%s
- Order Amount: $%s
- Shipping Address: %s
- Billing Address: %s
- Payment Method: %s
- IP Address: %s
- Email Verified: %t (FALSE = HIGH RISK)
- Reviews: %s
- Shipping Location: %s
- Product Details: %s

SCORING GUIDELINES (STRICT - be conservative and flag suspicious transactions):
- Sanctioned/high-risk jurisdictions: Add 40-60 points (CRITICAL if combined with other flags)
- Price >50%% below market: Add 40-50 points
- VPN/Proxy/TOR detected: Add 25-30 points
- Unverified email: Add 15-20 points
- Negative reviews (scam, fraud, illegal): Add 30-40 points
- New seller (< 30 days): Add 20-30 points
- Multiple red flags combined: ALWAYS use HIGH (60-85) or CRITICAL (85-100) scores
- IMPORTANT: If 3+ red flags are present, the score MUST be 70+ (HIGH) or 85+ (CRITICAL).

%s`,
		ragSection(ragContext), indicators,
		orNA(rec.Str("order_id")), rec.Int("seller_age_days", 0),
		orNA(rec.Str("price")), orNA(rec.Str("market_price")), orNA(rec.Str("amount")),
		orNA(rec.Str("shipping_address")), orNA(rec.Str("billing_address")),
		orNA(rec.Str("payment_method")), orNA(rec.Str("ip_address")),
		rec.Bool("email_verified", false), orNA(strings.Join(rec.StringList("reviews"), "; ")),
		orNA(rec.Str("shipping_location")), orNA(rec.Str("product_details")),
		outputFormat)
}

func (b *Builder) supplyChain(rec domain.Record, ragContext, cautionNote string) string {
	var complianceRisk strings.Builder
	if !rec.Bool("documentation_complete", false) {
		complianceRisk.WriteString("WARNING: Documentation incomplete - Missing documentation is a HIGH-RISK indicator for fraud!\n")
	}
	if !rec.Bool("regulatory_compliance", false) {
		complianceRisk.WriteString("WARNING: Regulatory compliance issues - Non-compliance is a HIGH-RISK indicator!\n")
	}

	indicators := b.jurisdictionWarning(rec, domain.SectorSupplyChain.LocationFields()) +
		complianceRisk.String() + cautionWarning(cautionNote)

	return fmt.Sprintf(`You are a senior supply chain fraud investigator with expertise in procurement fraud, kickback schemes, and ghost suppliers. Analyze this order and provide a detailed, professional assessment in plain English. Do NOT generate code or technical syntax.
%s
CRITICAL FRAUD INDICATORS TO EVALUATE:
%s
Order Details:
- Supplier ID: %s
- Supplier Name: %s
- Order Amount: $%s
- Order Frequency: %s per year
- Payment Terms: %s
- Supplier Age: %d days (NEW suppliers < 90 days are HIGH RISK)
- Price Variance: %s%% from market average
- Delivery Variance: %s%%
- Quality Issues: %s
- Documentation Complete: %t (FALSE = HIGH RISK)
- Regulatory Compliance: %t (FALSE = HIGH RISK)
- Order Details: %s

SCORING GUIDELINES (STRICT - be conservative and flag suspicious orders):
- Sanctioned/high-risk jurisdictions: Add 40-60 points (CRITICAL if combined with other flags)
- Ghost supplier (new, no history): Add 30-40 points
- Price variance > 30%%: Add 25-35 points
- Missing documentation: Add 20-30 points
- Regulatory non-compliance: Add 25-35 points
- Quality issues: Add 15-25 points
- Large order amount (> $100,000): Add 15-25 points
- Multiple red flags combined: ALWAYS use HIGH (60-85) or CRITICAL (85-100) scores
- IMPORTANT: If 3+ red flags are present, the score MUST be 70+ (HIGH) or 85+ (CRITICAL).

%s`,
		ragSection(ragContext), indicators,
		orNA(rec.Str("supplier_id")), orNA(rec.Str("supplier_name")), orNA(rec.Str("order_amount")),
		orNA(rec.Str("order_frequency")), orNA(rec.Str("payment_terms")), rec.Int("supplier_age_days", 0),
		orNA(rec.Str("price_variance")), orNA(rec.Str("delivery_variance")), orNA(rec.Str("quality_issues")),
		rec.Bool("documentation_complete", false), rec.Bool("regulatory_compliance", false),
		orNA(rec.Str("order_details")), outputFormat)
}

const outputFormat = `REQUIRED: Provide a comprehensive fraud analysis with:
1. FRAUD_SCORE: A number from 0-100 (be STRICT - multiple red flags should result in HIGH scores of 60-100)
2. RISK_LEVEL: LOW, MEDIUM, HIGH, or CRITICAL
3. RISK_FACTORS: List 3-5 specific red flags
4. REASONING: Write 3-4 complete sentences explaining WHY this record is suspicious, WHAT fraud patterns are present, and HOW severe the risk is.

Format exactly as:
FRAUD_SCORE: [number]
RISK_LEVEL: [level]
RISK_FACTORS: [factor1, factor2, factor3, factor4, factor5]
REASONING: [Write your detailed analysis here. Reference ALL specific red flags. Be thorough and specific.]
`

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// codeList reads a plural code field falling back to its singular form.
func codeList(rec domain.Record, plural, singular string) string {
	codes := rec.StringList(plural)
	if len(codes) == 0 {
		if s := rec.Str(singular); s != "" {
			codes = []string{s}
		}
	}
	if len(codes) == 0 {
		return "Unknown"
	}
	return strings.Join(codes, ", ")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
