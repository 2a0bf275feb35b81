package patientsvc

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// searchableFields is the search criteria field allow-list: any criteria
// key outside this set is silently ignored rather than rejected.
var searchableFields = map[string]struct{}{
	"name": {}, "patient_id": {}, "diagnoses_icd10": {},
	"medication_history": {}, "age": {}, "gender": {},
}

// AgeRange is the criteria value shape for an inclusive [Min, Max] age band.
type AgeRange struct {
	Min int
	Max int
}

// Criteria is a search request. Zero-valued fields are ignored. Diagnoses
// and Medications match if ANY of the given values is present on the
// record (case-insensitively); Age, if AgeRange is set, matches an
// inclusive range, otherwise an exact age.
type Criteria struct {
	Name         string
	PatientID    string
	Diagnoses    []string
	Medications  []string
	Age          *int
	AgeRange     *AgeRange
	Gender       string
}

// SearchHit is one scored search result.
type SearchHit struct {
	PatientID  string
	Name       string
	MatchScore float64
}

// Search scans every record and returns hits ordered by descending
// match score. A linear scan is sufficient at this store's scale; only
// the ordering of results is a contract callers can rely on.
func (s *Store) Search(c Criteria) []SearchHit {
	fieldCount := criteriaFieldCount(c)

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]SearchHit, 0, len(s.records))
	for _, r := range s.records {
		if !matches(r, c) {
			continue
		}
		hits = append(hits, SearchHit{
			PatientID:  r.PatientID,
			Name:       r.Name,
			MatchScore: matchScore(r, c, fieldCount),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].MatchScore != hits[j].MatchScore {
			return hits[i].MatchScore > hits[j].MatchScore
		}
		return hits[i].PatientID < hits[j].PatientID
	})
	return hits
}

func matches(r *domain.PatientRecord, c Criteria) bool {
	if c.PatientID != "" && r.PatientID != c.PatientID {
		return false
	}
	if c.Name != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(c.Name)) {
		return false
	}
	if len(c.Diagnoses) > 0 && !containsAnyFold(r.DiagnosesICD10, c.Diagnoses) {
		return false
	}
	if len(c.Medications) > 0 && !containsAnyFold(r.MedicationHistory, c.Medications) {
		return false
	}
	if c.AgeRange != nil {
		if r.Age < c.AgeRange.Min || r.Age > c.AgeRange.Max {
			return false
		}
	} else if c.Age != nil && r.Age != *c.Age {
		return false
	}
	if c.Gender != "" && !strings.EqualFold(r.Gender, c.Gender) {
		return false
	}
	return true
}

func containsAnyFold(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[strings.ToLower(h)] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[strings.ToLower(n)]; ok {
			return true
		}
	}
	return false
}

func criteriaFieldCount(c Criteria) int {
	n := 0
	if c.Name != "" {
		n++
	}
	if c.PatientID != "" {
		n++
	}
	if len(c.Diagnoses) > 0 {
		n++
	}
	if len(c.Medications) > 0 {
		n++
	}
	if c.Age != nil || c.AgeRange != nil {
		n++
	}
	if c.Gender != "" {
		n++
	}
	return n
}

// matchScore computes per-field scoring: an exact field match scores 1.0,
// a list-containment match scores 0.8, a substring match scores 0.5,
// averaged over the number of criteria fields supplied.
func matchScore(r *domain.PatientRecord, c Criteria, fieldCount int) float64 {
	if fieldCount == 0 {
		return 0
	}
	var score float64
	if c.PatientID != "" {
		score += fieldMatchWeight(r.PatientID, c.PatientID)
	}
	if c.Name != "" {
		score += fieldMatchWeight(r.Name, c.Name)
	}
	if len(c.Diagnoses) > 0 && containsAnyFold(r.DiagnosesICD10, c.Diagnoses) {
		score += 0.8
	}
	if len(c.Medications) > 0 && containsAnyFold(r.MedicationHistory, c.Medications) {
		score += 0.8
	}
	if c.Gender != "" {
		score += fieldMatchWeight(r.Gender, c.Gender)
	}
	if c.Age != nil && r.Age == *c.Age {
		score += 1.0
	} else if c.AgeRange != nil {
		score += fieldMatchWeight(strconv.Itoa(r.Age), strconv.Itoa(r.Age))
	}
	return score / float64(fieldCount)
}

func fieldMatchWeight(value, query string) float64 {
	if strings.EqualFold(value, query) {
		return 1.0
	}
	if strings.Contains(strings.ToLower(value), strings.ToLower(query)) {
		return 0.5
	}
	return 0
}
