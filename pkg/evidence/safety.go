package evidence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// safetyEvidence inspects patient demographics and labs against the drug's
// contraindications, building a concrete concern list when present.
// Returns nil when there is no safety summary to assess.
func safetyEvidence(safety *domain.DrugSafetySummary, patient *domain.PatientRecord, ts time.Time) *domain.EvidenceItem {
	if safety == nil {
		return nil
	}

	var concerns []string
	if patient != nil {
		gender := strings.ToUpper(patient.Gender)
		if gender == "F" && patient.Age >= 15 && patient.Age <= 45 {
			if containsFold(safety.Contraindications, "pregnancy") {
				concerns = append(concerns, "Pregnancy contraindication for female of childbearing age")
			}
		}
		if raw, ok := patient.Labs["eGFR"]; ok {
			cleaned := strings.ReplaceAll(raw, "%", "")
			if egfr, err := strconv.ParseFloat(cleaned, 64); err == nil {
				if egfr < 30 && containsFold(safety.Contraindications, "renal") {
					concerns = append(concerns, fmt.Sprintf("Renal impairment concern (eGFR %v)", egfr))
				}
			}
		}
	}

	var content string
	var supports bool
	var confidence float64
	switch {
	case len(concerns) > 0:
		content = "Safety concerns identified: " + strings.Join(concerns, "; ")
		supports = false
		confidence = 0.9
	case len(safety.Warnings) > 3:
		content = fmt.Sprintf("Multiple warnings (%d) - %s", len(safety.Warnings), safety.SafetyProfile)
		supports = false
		confidence = 0.7
	default:
		content = fmt.Sprintf("Acceptable safety profile - %s", safety.SafetyProfile)
		supports = true
		confidence = 0.8
	}

	item := domain.NewEvidenceItem(
		"drug_safety_analysis",
		domain.EvidenceSafety,
		content,
		Weights["drug_safety"],
		supports,
		confidence,
		ts,
	)
	return &item
}

func containsFold(items []string, needle string) bool {
	for _, it := range items {
		if strings.Contains(strings.ToLower(it), needle) {
			return true
		}
	}
	return false
}
