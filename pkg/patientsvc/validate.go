package patientsvc

import (
	"regexp"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// icd10Pattern matches a single ICD-10-CM code: an uppercase letter
// (excluding U), a digit, and a digit or uppercase letter, optionally
// followed by a decimal point and one to four more digits or uppercase
// letters (again excluding U).
var icd10Pattern = regexp.MustCompile(`^[A-TV-Z][0-9][0-9A-Z](\.[0-9A-TV-Z]{1,4})?$`)

// ValidationResult reports whether a record passed validation and, if
// not, why.
type ValidationResult struct {
	Valid  bool
	Issues []string
}

// ValidateRecord checks required fields and, for "complete" validation,
// ICD-10 code format and age range; lab values are not checked. full
// selects between the shallow required-fields-only check and the complete
// check.
func ValidateRecord(r *domain.PatientRecord, full bool) ValidationResult {
	var issues []string
	if r == nil || r.PatientID == "" {
		issues = append(issues, "missing required field: patient_id")
	}
	if r == nil || r.Name == "" {
		issues = append(issues, "missing required field: name")
	}
	if r == nil {
		return ValidationResult{Valid: false, Issues: issues}
	}

	if full {
		for _, code := range r.DiagnosesICD10 {
			if !icd10Pattern.MatchString(code) {
				issues = append(issues, "invalid ICD-10 code format: "+code)
			}
		}
		if r.Age < 0 || r.Age > 150 {
			issues = append(issues, "invalid age value")
		}
	}

	return ValidationResult{Valid: len(issues) == 0, Issues: issues}
}
