package retrieval

import "github.com/openrisk-labs/kestrel/internal/domain"

// defaultPatterns is the built-in fraud-pattern library, loaded on first run
// when seeding is enabled. Scores are representative fraud scores for the
// pattern's risk level.
func defaultPatterns() map[domain.Sector][]domain.Pattern {
	return map[domain.Sector][]domain.Pattern{
		domain.SectorBanking: {
			{Description: "Crypto mixer laundering with TOR network and burn address transactions", RiskLevel: domain.RiskCritical, Score: 95},
			{Description: "Wire transfer to known money laundering destination from high-risk country", RiskLevel: domain.RiskCritical, Score: 92},
			{Description: "Crypto rug pull with new account high-velocity transactions to suspicious wallets", RiskLevel: domain.RiskCritical, Score: 90},
			{Description: "Large transaction from high-risk country using new device at unusual time", RiskLevel: domain.RiskHigh, Score: 78},
			{Description: "Multiple small transactions to different accounts within short timeframe indicating structuring", RiskLevel: domain.RiskHigh, Score: 75},
			{Description: "Account created recently with immediate large withdrawal attempt and no KYC", RiskLevel: domain.RiskHigh, Score: 72},
			{Description: "Transaction amount just below reporting threshold multiple times", RiskLevel: domain.RiskHigh, Score: 70},
			{Description: "NFT wash trading with coordinated transactions and fake volume", RiskLevel: domain.RiskHigh, Score: 68},
			{Description: "Transaction from VPN or proxy with mismatched billing address", RiskLevel: domain.RiskMedium, Score: 50},
			{Description: "Cryptocurrency purchase with new payment method from abroad", RiskLevel: domain.RiskMedium, Score: 45},
			{Description: "Standard transaction from known location during business hours with KYC verified account", RiskLevel: domain.RiskLow, Score: 10},
			{Description: "Recurring payment to verified merchant with consistent amount and established history", RiskLevel: domain.RiskLow, Score: 8},
			{Description: "Legitimate wire transfer with KYC verified account and established transaction history", RiskLevel: domain.RiskLow, Score: 12},
		},
		domain.SectorMedical: {
			{Description: "Claims for services on dates when patient was hospitalized elsewhere", RiskLevel: domain.RiskCritical, Score: 90},
			{Description: "High-value claim with multiple unnecessary procedures from flagged provider", RiskLevel: domain.RiskHigh, Score: 78},
			{Description: "Billing code mismatch with documented diagnosis", RiskLevel: domain.RiskHigh, Score: 72},
			{Description: "Duplicate claims submitted for same patient and date", RiskLevel: domain.RiskHigh, Score: 75},
			{Description: "Upcoding from basic to complex procedure without justification", RiskLevel: domain.RiskHigh, Score: 70},
			{Description: "Provider billing for services at frequency exceeding medical necessity", RiskLevel: domain.RiskHigh, Score: 68},
			{Description: "Unbundling of procedures to inflate claim value", RiskLevel: domain.RiskMedium, Score: 50},
			{Description: "Claim for service not typically performed by provider specialty", RiskLevel: domain.RiskMedium, Score: 48},
			{Description: "Routine claim matching typical care patterns", RiskLevel: domain.RiskLow, Score: 10},
			{Description: "Standard preventive care claim with proper documentation", RiskLevel: domain.RiskLow, Score: 8},
		},
		domain.SectorEcommerce: {
			{Description: "Counterfeit product listing using brand images without authorization with unverified seller", RiskLevel: domain.RiskCritical, Score: 92},
			{Description: "Order with shipping and billing address mismatch using VPN IP and unverified email", RiskLevel: domain.RiskCritical, Score: 88},
			{Description: "New seller offering luxury items 70% below market price with crypto payment and fake reviews", RiskLevel: domain.RiskCritical, Score: 90},
			{Description: "New seller offering luxury items far below market price with no reviews and unverified email", RiskLevel: domain.RiskHigh, Score: 78},
			{Description: "Order with shipping address different from billing address using gift card payment", RiskLevel: domain.RiskHigh, Score: 72},
			{Description: "Product listing with suspiciously perfect reviews all from same day and unverified seller", RiskLevel: domain.RiskHigh, Score: 70},
			{Description: "Seller with history of non-delivery complaints and chargebacks using high-risk payment methods", RiskLevel: domain.RiskHigh, Score: 75},
			{Description: "Listing with stock photos and vague product descriptions from new seller", RiskLevel: domain.RiskMedium, Score: 48},
			{Description: "New account making high-value purchase with expedited shipping and unverified email", RiskLevel: domain.RiskMedium, Score: 45},
			{Description: "Established seller with verified reviews and matching shipping billing addresses", RiskLevel: domain.RiskLow, Score: 10},
			{Description: "Order with verified email and standard payment method from established seller", RiskLevel: domain.RiskLow, Score: 8},
		},
		domain.SectorSupplyChain: {
			{Description: "Ghost supplier with no verifiable business registration requesting advance payment", RiskLevel: domain.RiskCritical, Score: 92},
			{Description: "Kickback scheme with purchasing manager personal relationship and inflated prices", RiskLevel: domain.RiskCritical, Score: 90},
			{Description: "New supplier less than 7 days old requesting advance payment with missing documentation", RiskLevel: domain.RiskHigh, Score: 78},
			{Description: "Supplier with prices 35% above market rate and quality issues indicating kickback scheme", RiskLevel: domain.RiskHigh, Score: 75},
			{Description: "Multiple missing documents with unexplained gaps in audit trail", RiskLevel: domain.RiskHigh, Score: 70},
			{Description: "Invoice padding with duplicate charges and inflated shipping costs", RiskLevel: domain.RiskHigh, Score: 72},
			{Description: "Delayed documentation entries with backdating but proper authorization", RiskLevel: domain.RiskMedium, Score: 45},
			{Description: "Supplier with moderate price variance and acceptable quality record", RiskLevel: domain.RiskMedium, Score: 40},
			{Description: "Established supplier with 5-year history and complete documentation requesting standard payment terms", RiskLevel: domain.RiskLow, Score: 8},
			{Description: "Regular component order from established supplier with competitive pricing and full documentation", RiskLevel: domain.RiskLow, Score: 10},
		},
	}
}
