// Package domain defines the core types and interfaces for Kestrel.
package domain

import "fmt"

// Sector is a fixed industry category. It selects the deterministic scoring
// chain, pre-check thresholds, location fields for jurisdiction checks, the
// provider candidate list, and the prompt template.
type Sector string

const (
	SectorBanking     Sector = "banking"
	SectorMedical     Sector = "medical"
	SectorEcommerce   Sector = "ecommerce"
	SectorSupplyChain Sector = "supply_chain"
)

// Sectors lists all supported sectors.
var Sectors = []Sector{SectorBanking, SectorMedical, SectorEcommerce, SectorSupplyChain}

// ParseSector validates a sector string.
func ParseSector(s string) (Sector, error) {
	switch Sector(s) {
	case SectorBanking, SectorMedical, SectorEcommerce, SectorSupplyChain:
		return Sector(s), nil
	}
	return "", fmt.Errorf("unknown sector: %q", s)
}

// LocationFields returns the record fields scanned for sanctioned or
// high-risk jurisdictions in this sector.
func (s Sector) LocationFields() []string {
	switch s {
	case SectorBanking:
		return []string{"source_country", "destination_country", "location"}
	case SectorMedical:
		return []string{"provider_location", "patient_location", "billing_address", "service_location"}
	case SectorEcommerce:
		return []string{"shipping_location", "shipping_address", "billing_address", "origin_country"}
	case SectorSupplyChain:
		return []string{"supplier_location", "supplier_country", "origin_country", "shipping_location", "billing_address"}
	}
	return nil
}

// AgeField returns the record field holding the account/seller/supplier age
// in days, or "" for sectors without one.
func (s Sector) AgeField() string {
	switch s {
	case SectorBanking:
		return "account_age_days"
	case SectorEcommerce:
		return "seller_age_days"
	case SectorSupplyChain:
		return "supplier_age_days"
	}
	return ""
}

// VerificationField returns the record field marking the entity as verified,
// or "" for sectors without one.
func (s Sector) VerificationField() string {
	switch s {
	case SectorBanking:
		return "kyc_verified"
	case SectorEcommerce:
		return "email_verified"
	case SectorSupplyChain:
		return "documentation_complete"
	}
	return ""
}
