// Package patientsvc is the Patient Data specialist service:
// role-gated retrieval, search, and update of patient records, with
// privacy filtering, consent tracking, and audit logging on every access.
package patientsvc

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// Role is a requester's access role. Unknown roles get no permissions.
type Role string

const (
	RolePhysician Role = "physician"
	RoleNurse     Role = "nurse"
	RoleAdmin     Role = "admin"
	RoleResearch  Role = "researcher"
	RoleSystem    Role = "system"
)

// Permission is a coarse action category checked against a Role.
type Permission string

const (
	PermRead   Permission = "read"
	PermWrite  Permission = "write"
	PermSearch Permission = "search"
	PermAudit  Permission = "audit"
	PermExport Permission = "export"
)

// rolePermissions defines which actions each role may take: researchers
// get read/search only, and always through the anonymizing privacy filter.
var rolePermissions = map[Role][]Permission{
	RolePhysician: {PermRead, PermWrite, PermSearch},
	RoleNurse:     {PermRead, PermSearch},
	RoleAdmin:     {PermRead, PermWrite, PermSearch, PermAudit, PermExport},
	RoleResearch:  {PermRead, PermSearch},
	RoleSystem:    {PermRead, PermWrite, PermSearch, PermAudit, PermExport},
}

// HasPermission reports whether role is allowed to perform perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// allowedMutableFields is the allow-list Update checks proposed field names
// against; patient_id, created_at and last_updated can never be written
// through Update.
var allowedMutableFields = map[string]struct{}{
	"diagnoses_icd10":    {},
	"medication_history": {},
	"labs":               {},
	"notes":              {},
	"age":                {},
	"gender":             {},
	"provider_type":      {},
}

var validGenders = map[string]struct{}{"M": {}, "F": {}, "O": {}, "U": {}}

// Store is a thread-safe, in-memory patient record store. Production
// deployments snapshot its records to Postgres (lib/pq) through
// PostgresPersister; Store itself stays the in-process source of truth and
// is what tests and the bundled mock records use.
type Store struct {
	mu      sync.RWMutex
	records map[string]*domain.PatientRecord
	clock   func() time.Time
}

// NewStore creates a Store seeded with the given records, keyed by
// PatientID. A nil clock defaults to time.Now.
func NewStore(clock func() time.Time, seed ...*domain.PatientRecord) *Store {
	if clock == nil {
		clock = time.Now
	}
	s := &Store{records: make(map[string]*domain.PatientRecord), clock: clock}
	for _, r := range seed {
		s.records[r.PatientID] = r.Clone()
	}
	return s
}

// Get returns a deep copy of the record for id, or nil if absent.
func (s *Store) Get(id string) *domain.PatientRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id].Clone()
}

// Put inserts or replaces a record.
func (s *Store) Put(r *domain.PatientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.PatientID] = r.Clone()
}

// All returns a snapshot slice of every record, sorted by PatientID.
func (s *Store) All() []*domain.PatientRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.PatientRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out
}

// ErrValidation reports why a proposed set of updates was rejected.
type ErrValidation struct {
	Errors []string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("patientsvc: invalid updates: %s", strings.Join(e.Errors, "; "))
}

// ValidateUpdates checks a proposed update map against the mutable-field
// allow-list and the per-field type/range rules, without applying anything.
func ValidateUpdates(updates map[string]any) error {
	var errs []string
	for field := range updates {
		if _, ok := allowedMutableFields[field]; !ok {
			errs = append(errs, fmt.Sprintf("unknown or immutable field: %s", field))
		}
	}
	if age, ok := updates["age"]; ok {
		n, isInt := toInt(age)
		if !isInt {
			errs = append(errs, "age must be an integer")
		} else if n < 0 || n > 150 {
			errs = append(errs, "age must be between 0 and 150")
		}
	}
	if gender, ok := updates["gender"]; ok {
		g, isStr := gender.(string)
		if !isStr {
			errs = append(errs, "gender must be a string")
		} else if _, ok := validGenders[g]; !ok {
			errs = append(errs, "gender must be one of: M, F, O, U")
		}
	}
	if len(errs) > 0 {
		return &ErrValidation{Errors: errs}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	default:
		return 0, false
	}
}

// Update applies a validated set of field updates to the record for id,
// merging list fields (diagnoses_icd10, medication_history deduplicate on
// append; labs merges key-by-key) and overwriting scalar fields. It
// returns the updated record, or an error if the record does not exist or
// the updates fail validation.
func (s *Store) Update(id string, updates map[string]any) (*domain.PatientRecord, error) {
	if err := ValidateUpdates(updates); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("patientsvc: patient %q not found", id)
	}
	rec := existing.Clone()

	if v, ok := updates["diagnoses_icd10"]; ok {
		rec.DiagnosesICD10 = mergeUnique(rec.DiagnosesICD10, toStringSlice(v))
	}
	if v, ok := updates["medication_history"]; ok {
		rec.MedicationHistory = mergeUnique(rec.MedicationHistory, toStringSlice(v))
	}
	if v, ok := updates["labs"]; ok {
		if m, ok := v.(map[string]string); ok {
			if rec.Labs == nil {
				rec.Labs = make(map[string]string, len(m))
			}
			for k, val := range m {
				rec.Labs[k] = val
			}
		}
	}
	if v, ok := updates["notes"]; ok {
		if str, ok := v.(string); ok {
			rec.Notes = str
		}
	}
	if v, ok := updates["age"]; ok {
		if n, ok := toInt(v); ok {
			rec.Age = n
		}
	}
	if v, ok := updates["gender"]; ok {
		if str, ok := v.(string); ok {
			rec.Gender = str
		}
	}
	if v, ok := updates["provider_type"]; ok {
		if str, ok := v.(string); ok {
			rec.ProviderType = str
		}
	}

	rec.LastUpdated = s.clock()
	s.records[id] = rec
	return rec.Clone(), nil
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func mergeUnique(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	out := append([]string(nil), existing...)
	for _, v := range additions {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
