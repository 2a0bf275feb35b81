package evidence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// prerequisiteMeds are medications whose presence in a patient's history
// counts as having tried a standard first-line therapy.
var prerequisiteMeds = []string{"metformin", "lisinopril", "atorvastatin", "simvastatin"}

// conditionICDPrefixes maps a plain-language condition name (as it might
// appear in a drug indication string) to the ICD-10 code prefixes that
// count as a diagnosis match.
var conditionICDPrefixes = map[string][]string{
	"diabetes":     {"E11", "E10"},
	"heart failure": {"I50"},
	"hypertension":  {"I10", "I11", "I12", "I13"},
	"kidney":        {"N18", "N19"},
}

var treatmentFailureKeywords = []string{"failed", "insufficient", "inadequate", "not responding", "refractory"}

// patientHistoryScore returns a [0,1] fit score for drugInfo given patient,
// starting from a neutral 0.5 baseline and accumulating evidence-backed
// adjustments. Clamped to [0,1].
func patientHistoryScore(patient *domain.PatientRecord, drugInfo *domain.DrugInformation) float64 {
	score := 0.5
	if patient == nil || drugInfo == nil {
		return score
	}

	if len(patient.MedicationHistory) > 0 {
		tried := 0
		for _, med := range patient.MedicationHistory {
			medLower := strings.ToLower(med)
			for _, prereq := range prerequisiteMeds {
				if strings.Contains(medLower, prereq) {
					tried++
					break
				}
			}
		}
		if tried > 0 {
			ratio := float64(tried) / 2.0
			if ratio > 1 {
				ratio = 1
			}
			score += 0.2 * ratio
		}
	}

	if len(patient.DiagnosesICD10) > 0 && len(drugInfo.Indications) > 0 {
		for _, indication := range drugInfo.Indications {
			indicationLower := strings.ToLower(indication)
			for condition, prefixes := range conditionICDPrefixes {
				if !strings.Contains(indicationLower, condition) {
					continue
				}
				for _, diag := range patient.DiagnosesICD10 {
					if hasAnyPrefix(diag, prefixes) {
						score += 0.15
						break
					}
				}
			}
		}
	}

	if raw, ok := patient.Labs["HbA1c"]; ok {
		cleaned := strings.ReplaceAll(raw, "%", "")
		if hba1c, err := strconv.ParseFloat(cleaned, 64); err == nil {
			switch {
			case hba1c > 8.0:
				score += 0.15
			case hba1c > 7.0:
				score += 0.1
			}
		}
	}
	if raw, ok := patient.Labs["eGFR"]; ok {
		cleaned := strings.ReplaceAll(raw, "%", "")
		if egfr, err := strconv.ParseFloat(cleaned, 64); err == nil && egfr >= 30 {
			score += 0.05
		}
	}

	if patient.Notes != "" {
		notesLower := strings.ToLower(patient.Notes)
		for _, kw := range treatmentFailureKeywords {
			if strings.Contains(notesLower, kw) {
				score += 0.15
				break
			}
		}
	}

	if patient.AdherenceScore != nil && *patient.AdherenceScore > 0.8 {
		score += 0.10
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// historyEvidence wraps patientHistoryScore into a patient_history evidence item.
func historyEvidence(patient *domain.PatientRecord, drugInfo *domain.DrugInformation, drugName string, ts time.Time) *domain.EvidenceItem {
	if patient == nil || drugInfo == nil {
		return nil
	}
	score := patientHistoryScore(patient, drugInfo)

	var fit string
	switch {
	case score > 0.8:
		fit = "excellent"
	case score > 0.6:
		fit = "good"
	case score > 0.4:
		fit = "moderate"
	default:
		fit = "poor"
	}

	item := domain.NewEvidenceItem(
		"patient_history",
		domain.EvidenceHistory,
		fmt.Sprintf("Patient history indicates %s fit for %s (score: %.2f)", fit, drugName, score),
		Weights["patient_history"],
		score > 0.6,
		0.8,
		ts,
	)
	return &item
}
