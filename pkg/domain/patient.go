// Package domain defines the entities shared across the prior-authorization
// orchestrator: patient records, drug information, insurer policies,
// coverage criteria, evidence, and the analysis context/result pair that
// the orchestrator assembles and returns.
package domain

import "time"

// PatientRecord is immutable within a single orchestration. Callers that
// need to mutate a record go through patientsvc.Service.Update, which
// produces a new snapshot.
type PatientRecord struct {
	PatientID         string            `json:"patient_id"`
	Name              string            `json:"name,omitempty"`
	Age               int               `json:"age"`
	Gender            string            `json:"gender"`
	DiagnosesICD10    []string          `json:"diagnoses_icd10"`
	MedicationHistory []string          `json:"medication_history"`
	Labs              map[string]string `json:"labs"`
	Notes             string            `json:"notes,omitempty"`
	ProviderType      string            `json:"provider_type,omitempty"`
	AdherenceScore    *float64          `json:"adherence_score,omitempty"`
	RequestedQuantity *int              `json:"requested_quantity,omitempty"`
	PriorAuthHistory  []PriorAuthRecord `json:"pa_history,omitempty"`
	SSN               string            `json:"ssn,omitempty"`
	DOB               string            `json:"dob,omitempty"`
	Address           string            `json:"address,omitempty"`
	Phone             string            `json:"phone,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	LastUpdated       time.Time         `json:"last_updated"`
}

// PriorAuthRecord is a past prior-authorization outcome for this patient,
// used by clinical-appropriateness scoring to credit an established
// approval history for the same drug class.
type PriorAuthRecord struct {
	Decision  string    `json:"decision"`
	DrugClass string    `json:"drug_class"`
	Date      time.Time `json:"date"`
}

// IsEmpty reports whether the record carries no clinically meaningful data,
// which the orchestrator treats as equivalent to a missing record.
func (p *PatientRecord) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.PatientID == "" && len(p.DiagnosesICD10) == 0 && len(p.MedicationHistory) == 0
}

// Clone returns a deep copy so callers can mutate the result without
// aliasing cached state.
func (p *PatientRecord) Clone() *PatientRecord {
	if p == nil {
		return nil
	}
	cp := *p
	cp.DiagnosesICD10 = append([]string(nil), p.DiagnosesICD10...)
	cp.MedicationHistory = append([]string(nil), p.MedicationHistory...)
	if p.Labs != nil {
		cp.Labs = make(map[string]string, len(p.Labs))
		for k, v := range p.Labs {
			cp.Labs[k] = v
		}
	}
	if p.AdherenceScore != nil {
		v := *p.AdherenceScore
		cp.AdherenceScore = &v
	}
	if p.RequestedQuantity != nil {
		v := *p.RequestedQuantity
		cp.RequestedQuantity = &v
	}
	cp.PriorAuthHistory = append([]PriorAuthRecord(nil), p.PriorAuthHistory...)
	return &cp
}
