package evidence

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// contraindicationICDPrefixes maps an absolute-contraindication label (as it
// appears in a drug's contraindication list) to the ICD-10 prefixes that
// trigger it for a given patient.
var contraindicationICDPrefixes = map[string][]string{
	"type 1 diabetes":        {"E10"},
	"diabetic ketoacidosis":   {"E10.1", "E11.1"},
	"severe renal impairment": {"N18.6", "N19"},
}

type appropriatenessAssessment struct {
	score      float64
	confidence float64
	rationale  string
}

// assessClinicalAppropriateness scores age fit, contraindications, provider
// type, polypharmacy, and prior same-class PA approval history, starting
// from a neutral 0.5 baseline.
func assessClinicalAppropriateness(patient *domain.PatientRecord, drugInfo *domain.DrugInformation) appropriatenessAssessment {
	score := 0.5
	var factors []string

	if patient != nil {
		switch {
		case patient.Age >= 18 && patient.Age <= 85:
			score += 0.1
			factors = append(factors, "age appropriate")
		case patient.Age < 18:
			score -= 0.2
			factors = append(factors, "pediatric use requires special consideration")
		case patient.Age > 85:
			score -= 0.1
			factors = append(factors, "geriatric considerations needed")
		}
	}

	if drugInfo != nil && patient != nil {
		hasContraindication := false
		for label, prefixes := range contraindicationICDPrefixes {
			if !containsFold(drugInfo.Contraindications, label) {
				continue
			}
			for _, diag := range patient.DiagnosesICD10 {
				if hasAnyPrefix(diag, prefixes) {
					hasContraindication = true
					factors = append(factors, "contraindication present: "+label)
					score -= 0.3
					break
				}
			}
		}
		if !hasContraindication {
			score += 0.2
			factors = append(factors, "no contraindications identified")
		}
	}

	if patient != nil {
		providerLower := strings.ToLower(patient.ProviderType)
		switch {
		case strings.Contains(providerLower, "specialist") || strings.Contains(providerLower, "endocrin"):
			score += 0.15
			factors = append(factors, "specialist management")
		case patient.ProviderType != "":
			score += 0.05
			factors = append(factors, patient.ProviderType+" management")
		}

		medCount := len(patient.MedicationHistory)
		switch {
		case medCount > 10:
			score -= 0.05
			factors = append(factors, "significant polypharmacy")
		case medCount > 5:
			factors = append(factors, "moderate medication burden")
		}

		if drugInfo != nil {
			for _, pa := range patient.PriorAuthHistory {
				if pa.Decision == "approved" && pa.DrugClass == drugInfo.DrugClass {
					score += 0.1
					factors = append(factors, "previous similar PA approved")
					break
				}
			}
		}
	}

	if score > 1.0 {
		score = 1.0
	} else if score < 0.0 {
		score = 0.0
	}

	rationale := fmt.Sprintf("Clinical appropriateness score: %.1f%%", score*100)
	if len(factors) > 0 {
		rationale += ". Key factors: " + strings.Join(factors, ", ")
	} else {
		rationale += ". Standard clinical profile"
	}

	confidence := 0.65
	if len(factors) >= 3 {
		confidence = 0.75
	}

	return appropriatenessAssessment{score: score, confidence: confidence, rationale: rationale}
}

func appropriatenessEvidence(patient *domain.PatientRecord, drugInfo *domain.DrugInformation, ts time.Time) domain.EvidenceItem {
	a := assessClinicalAppropriateness(patient, drugInfo)
	return domain.NewEvidenceItem(
		"clinical_assessment",
		domain.EvidenceAppropriateness,
		a.rationale,
		Weights["clinical_appropriateness"],
		a.score > 0.7,
		a.confidence,
		ts,
	)
}
