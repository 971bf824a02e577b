package prompt

import (
	"fmt"
	"strings"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Stage1Clinical renders the clinical legitimacy validation prompt for the
// first stage of the medical pipeline. It deliberately excludes fraud and
// billing framing.
func Stage1Clinical(rec domain.Record, ragContext string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are a medical expert AI tasked with validating the CLINICAL LEGITIMACY of a medical claim.
Your job is to assess if the medical procedures, diagnoses, and treatments are medically coherent and clinically plausible.

**DO NOT** analyze fraud patterns or billing behavior - that will be done in Stage 2.
**FOCUS ONLY** on clinical validity, medical reasoning, and treatment appropriateness.

Medical Claim Details:
- Claim ID: %s
- Patient Age: %s years
- Patient Gender: %s
- Provider ID: %s
- Provider Specialty: %s
- Diagnosis Codes (ICD-10): %s
- Procedure Codes (CPT): %s
- Claim Amount: $%.2f
- Treatment Date: %s
- Provider History: %s

Additional Medical Context:
%s

`,
		orUnknown(rec.Str("claim_id")), orUnknown(rec.Str("patient_age")), orUnknown(rec.Str("gender")),
		orUnknown(rec.Str("provider_id")), specialty(rec),
		codeList(rec, "diagnosis_codes", "diagnosis_code"), codeList(rec, "procedure_codes", "procedure_code"),
		rec.Float("claim_amount", 0), orUnknown(rec.Str("treatment_date")), orUnknown(rec.Str("provider_history")),
		claimNotes(rec))

	if ragContext != "" && ragContext != noPatternsMarker {
		fmt.Fprintf(&sb, "Similar Medical Claims (Context):\n%s\n\n", ragContext)
	}

	sb.WriteString(`**Clinical Validation Checklist:**
1. **Diagnosis-Procedure Compatibility:** Is the procedure appropriate for the diagnosis? Are ICD-10 and CPT codes medically aligned?
2. **Provider Specialty Match:** Is the provider specialty appropriate for this procedure?
3. **Treatment Timeline Plausibility:** Does the treatment timeline make clinical sense?
4. **Age-Appropriate Care:** Is the treatment appropriate for the patient's age?
5. **Medical Necessity:** Does the diagnosis justify the procedure?

**Response Format (JSON):**
{
  "clinical_legitimacy_score": <0-100, where 0=medically impossible, 100=perfectly coherent>,
  "reasoning": "<Detailed clinical reasoning explaining the score>",
  "risk_factors": ["<List of clinical red flags, if any>"],
  "diagnosis_procedure_match": "<Compatible/Questionable/Incompatible>",
  "provider_specialty_appropriate": "<Yes/Questionable/No>",
  "medical_necessity": "<Clearly Justified/Uncertain/Unjustified>"
}

**Guidelines:** Score 80-100: Clinically coherent. Score 50-79: Some concerns. Score 0-49: Medically questionable.
Focus ONLY on clinical validity, not fraud indicators.

Provide your clinical assessment:`)
	return sb.String()
}

// Stage2Fraud renders the fraud-pattern prompt for the second stage,
// embedding the stage-1 clinical verdict verbatim.
func Stage2Fraud(rec domain.Record, ragContext string, clinicalScore float64, clinicalReasoning string, clinicalFlags []string) string {
	flags := "None"
	if len(clinicalFlags) > 0 {
		flags = strings.Join(clinicalFlags, ", ")
	}

	procedures := rec.StringList("procedure_codes")
	numServices := len(procedures)
	if numServices == 0 {
		numServices = rec.Int("num_services", 1)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are a medical fraud detection AI expert. You have received a clinical legitimacy assessment from a medical expert AI (Stage 1).
Your job is to analyze this claim for FRAUD PATTERNS, BILLING ANOMALIES, and COST MANIPULATION.

**Stage 1 Clinical Validation Results:**
- Clinical Legitimacy Score: %g/100
- Clinical Assessment: %s
- Clinical Red Flags: %s

**Medical Claim Details:**
- Claim ID: %s
- Patient Age: %s years
- Provider ID: %s
- Provider Specialty: %s
- Diagnosis Codes (ICD-10): %s
- Procedure Codes (CPT): %s
- Claim Amount: $%.2f
- Number of Services: %d
- Claim Details: %s

**Billing Context:**
- Average Peer Cost: $%.2f
- Provider's Past Claims (last 30 days): %s
- Patient's Past Claims (last 90 days): %s

`,
		clinicalScore, clinicalReasoning, flags,
		orUnknown(rec.Str("claim_id")), orUnknown(rec.Str("patient_age")), orUnknown(rec.Str("provider_id")),
		specialty(rec), codeList(rec, "diagnosis_codes", "diagnosis_code"),
		codeList(rec, "procedure_codes", "procedure_code"), rec.Float("claim_amount", 0), numServices,
		orUnknown(rec.Str("claim_details")),
		rec.Float("peer_average_cost", 0), orUnknown(rec.Str("provider_claim_count_30d")),
		orUnknown(rec.Str("patient_claim_count_90d")))

	if ragContext != "" && ragContext != noPatternsMarker {
		fmt.Fprintf(&sb, "**Similar Fraud Patterns (Context):**\n%s\n\n", ragContext)
	}

	sb.WriteString("**CRITICAL: You MUST respond in valid JSON format. The fraud_score MUST be a number between 0-100 (NOT a percentage).**\n\n" +
		"**Response Format (JSON):**\n```json\n{\n" +
		`  "fraud_score": <0-100>,
  "risk_level": "<LOW|MEDIUM|HIGH|CRITICAL>",
  "reasoning": "<Detailed fraud analysis>",
  "risk_factors": ["<List of specific fraud indicators>"],
  "fraud_type": "<Upcoding/Unbundling/Phantom/Kickback/None>",
  "recommended_action": "<Approve/Flag for Review/Deny/Investigate>"
}` + "\n```\n\n" +
		"**Scoring Guidelines:** 0-25 LOW, 26-50 MEDIUM, 51-75 HIGH, 76-100 CRITICAL.\n" +
		"Factor in Stage 1 clinical score heavily. Low clinical legitimacy (< 50) should raise fraud score significantly.\n\n" +
		"Provide your fraud analysis:")
	return sb.String()
}

func specialty(rec domain.Record) string {
	if s := rec.Str("provider_specialty"); s != "" {
		return s
	}
	return orUnknown(rec.Str("specialty"))
}

func claimNotes(rec domain.Record) string {
	if s := rec.Str("claim_details"); s != "" {
		return s
	}
	if s := rec.Str("medical_notes"); s != "" {
		return s
	}
	return "No additional notes provided"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
