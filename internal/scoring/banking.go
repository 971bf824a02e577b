package scoring

import (
	"strconv"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

var bankingHighRiskLocations = []string{"nigeria", "russia", "china", "unknown", "cayman islands"}

// Banking scores a banking/crypto transaction: amount, location, network
// anonymization, timing, account age, velocity, KYC and wallet indicators.
func Banking(r domain.Record) float64 {
	score := 0.0

	amount := r.Float("amount", 0)
	switch {
	case amount > 100000:
		score += 30
	case amount > 50000:
		score += 20
	case amount > 10000:
		score += 15
	case amount > 5000:
		score += 10
	case amount < 1000:
		score -= 10
	}

	location := r.LowerStr("location")
	sourceCountry := r.LowerStr("source_country")
	destCountry := r.LowerStr("destination_country")
	if matchesAnyLocation(bankingHighRiskLocations, location, sourceCountry, destCountry) {
		score += 30
	} else if strings.Contains(location, "united states") || strings.Contains(sourceCountry, "united states") {
		score -= 5
	}

	ip := r.LowerStr("ip_address")
	if strings.Contains(ip, "tor") || strings.Contains(ip, "vpn detected") {
		score += 25
	} else if strings.Contains(ip, "unknown") {
		score += 15
	}

	txType := r.LowerStr("transaction_type")
	if strings.Contains(txType, "crypto") || strings.Contains(txType, "nft") {
		score += 15
	}

	timeStr := r.LowerStr("time")
	if timeStr == "" {
		timeStr = r.LowerStr("transaction_time")
	}
	if hour, ok := parseHour(timeStr); ok {
		if hour < 6 {
			score += 15
		} else if hour >= 22 {
			score += 10
		}
	}

	accountAge := r.Int("account_age_days", 365)
	switch {
	case accountAge < 1:
		score += 30
	case accountAge < 7:
		score += 25
	case accountAge < 30:
		score += 15
	case accountAge < 90:
		score += 5
	case accountAge >= 730:
		score -= 15
	case accountAge >= 365:
		score -= 10
	}

	velocity := r.Int("transaction_velocity", 0)
	switch {
	case velocity > 20:
		score += 25
	case velocity > 10:
		score += 15
	case velocity > 5:
		score += 5
	case velocity <= 2:
		score -= 5
	}

	if r.Bool("kyc_verified", false) {
		score -= 20
	} else {
		score += 25
	}

	if r.Bool("previous_flagged", false) {
		score += 30
	}

	senderWallet := r.LowerStr("sender_wallet")
	receiverWallet := r.LowerStr("receiver_wallet")
	if senderWallet != "" && (strings.Contains(senderWallet, "0000000000000000000000000000000000000000") ||
		strings.Contains(receiverWallet, "tornado")) {
		score += 40
	}

	return clamp(score)
}

func matchesAnyLocation(needles []string, haystacks ...string) bool {
	for _, needle := range needles {
		for _, h := range haystacks {
			if h != "" && strings.Contains(h, needle) {
				return true
			}
		}
	}
	return false
}

// parseHour extracts the hour from an "HH:MM" style time string.
func parseHour(s string) (int, bool) {
	if s == "" || !strings.Contains(s, ":") {
		return 0, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(s, ":", 2)[0]))
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}
