package patientsvc

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/audit"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// ErrForbidden is returned when requesterRole lacks the permission an
// operation requires.
var ErrForbidden = errors.New("patientsvc: requester role lacks required permission")

// ErrNotFound is returned when a patient_id has no record.
var ErrNotFound = errors.New("patientsvc: patient not found")

// Persister saves the store's records somewhere durable. A nil Persister
// makes Service purely in-memory.
type Persister interface {
	Save(ctx context.Context, records []*domain.PatientRecord) error
}

// maxSearchCacheEntries bounds the search result cache; the oldest entry
// is evicted once the cap is reached.
const maxSearchCacheEntries = 500

// saveThrottleInterval is the minimum spacing between persistence writes
// triggered by Update.
const saveThrottleInterval = 5 * time.Second

// Service is the Patient Data specialist service: role-gated access to a
// Store, with search-result caching, audit logging, consent tracking, and
// throttled persistence.
type Service struct {
	store     *Store
	access    *audit.AccessLog
	consent   *ConsentStore
	privacy   PrivacyConfig
	persister Persister
	clock     func() time.Time

	searchMu    sync.Mutex
	searchCache map[string]searchCacheEntry
	searchOrder []string

	persistMu   sync.Mutex
	lastSave    time.Time
}

type searchCacheEntry struct {
	hits []SearchHit
}

// NewService wires a Store, access log, and consent store into a Service.
// A nil persister makes updates non-durable (in-memory only).
func NewService(store *Store, access *audit.AccessLog, consent *ConsentStore, persister Persister, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:       store,
		access:      access,
		consent:     consent,
		privacy:     DefaultPrivacyConfig(),
		persister:   persister,
		clock:       clock,
		searchCache: make(map[string]searchCacheEntry),
	}
}

// GetRecord retrieves and privacy-filters a patient record, recording an
// access-log entry whether or not the record exists. A request refused for
// lack of read permission is not logged.
func (s *Service) GetRecord(ctx context.Context, patientID, requesterID string, requesterRole Role) (*domain.PatientRecord, error) {
	if !HasPermission(requesterRole, PermRead) {
		return nil, fmt.Errorf("%w: role %q cannot read patient records", ErrForbidden, requesterRole)
	}

	rec := s.store.Get(patientID)
	s.access.Append(patientID, requesterID, "get_patient_record", string(requesterRole))
	if rec == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, patientID)
	}
	return FilterForRole(rec, s.privacy, requesterRole), nil
}

// Search runs a scored search over every record, serving from a bounded
// cache (oldest-inserted entry evicted first) when the same criteria was
// seen before.
func (s *Service) Search(ctx context.Context, c Criteria, requesterID string, requesterRole Role) ([]SearchHit, error) {
	if !HasPermission(requesterRole, PermSearch) {
		return nil, fmt.Errorf("%w: role %q cannot search patients", ErrForbidden, requesterRole)
	}

	key := criteriaCacheKey(c)
	if hits, ok := s.searchCacheGet(key); ok {
		return hits, nil
	}

	hits := s.store.Search(c)
	s.searchCachePut(key, hits)
	s.access.Append("multiple", requesterID, "search_patients", string(requesterRole))
	return hits, nil
}

func criteriaCacheKey(c Criteria) string {
	b, _ := json.Marshal(c)
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (s *Service) searchCacheGet(key string) ([]SearchHit, bool) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	entry, ok := s.searchCache[key]
	return entry.hits, ok
}

func (s *Service) searchCachePut(key string, hits []SearchHit) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	if _, exists := s.searchCache[key]; !exists {
		if len(s.searchOrder) >= maxSearchCacheEntries {
			oldest := s.searchOrder[0]
			s.searchOrder = s.searchOrder[1:]
			delete(s.searchCache, oldest)
		}
		s.searchOrder = append(s.searchOrder, key)
	}
	s.searchCache[key] = searchCacheEntry{hits: hits}
}

func (s *Service) invalidateSearchCache() {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	s.searchCache = make(map[string]searchCacheEntry)
	s.searchOrder = nil
}

// Update applies validated field updates to a patient record, invalidates
// the search cache, logs the access, and triggers a throttled persist.
func (s *Service) Update(ctx context.Context, patientID string, updates map[string]any, requesterID string, requesterRole Role) (*domain.PatientRecord, error) {
	if !HasPermission(requesterRole, PermWrite) {
		return nil, fmt.Errorf("%w: role %q cannot write patient records", ErrForbidden, requesterRole)
	}

	rec, err := s.store.Update(patientID, updates)
	if err != nil {
		return nil, err
	}

	s.invalidateSearchCache()
	s.access.Append(patientID, requesterID, "update_patient", string(requesterRole))
	s.maybePersist(ctx)
	return rec, nil
}

// maybePersist writes the full record set through Persister if at least
// saveThrottleInterval has elapsed since the last write, bounding
// disk-churn under frequent updates. A caller that needs a guaranteed
// flush (e.g. on shutdown) should call Flush instead.
func (s *Service) maybePersist(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.persistMu.Lock()
	now := s.clock()
	if now.Sub(s.lastSave) < saveThrottleInterval {
		s.persistMu.Unlock()
		return
	}
	s.lastSave = now
	s.persistMu.Unlock()

	_ = s.persister.Save(ctx, s.store.All())
}

// Flush unconditionally persists the current record set, bypassing the
// throttle.
func (s *Service) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Save(ctx, s.store.All())
}

// AuditLog returns matching access-log entries, or ErrForbidden when the
// role lacks the audit permission.
func (s *Service) AuditLog(requesterRole Role, f audit.Filter) ([]audit.AccessEntry, error) {
	if !HasPermission(requesterRole, PermAudit) {
		return nil, fmt.Errorf("%w: role %q cannot read the audit log", ErrForbidden, requesterRole)
	}
	return s.access.Query(f), nil
}

// CheckConsent returns the consent status for a patient.
func (s *Service) CheckConsent(patientID string) ConsentStatus {
	return s.consent.Check(patientID)
}

// UpdateConsent sets a named consent flag.
func (s *Service) UpdateConsent(patientID, consentType string, value bool) time.Time {
	return s.consent.Update(patientID, consentType, value)
}

// Export returns privacy-filtered, optionally audit-annotated copies of the
// named patients (or every patient, if ids is empty), requiring export
// permission.
func (s *Service) Export(ctx context.Context, ids []string, includeAudit, redactAuditUsers bool, requesterID string, requesterRole Role) (map[string]*domain.PatientRecord, map[string][]audit.AccessEntry, error) {
	if !HasPermission(requesterRole, PermExport) {
		return nil, nil, fmt.Errorf("%w: role %q cannot export patient data", ErrForbidden, requesterRole)
	}

	if len(ids) == 0 {
		for _, r := range s.store.All() {
			ids = append(ids, r.PatientID)
		}
		sort.Strings(ids)
	}

	out := make(map[string]*domain.PatientRecord, len(ids))
	var auditOut map[string][]audit.AccessEntry
	if includeAudit {
		auditOut = make(map[string][]audit.AccessEntry, len(ids))
	}

	for _, id := range ids {
		rec := s.store.Get(id)
		if rec == nil {
			continue
		}
		out[id] = FilterForRole(rec, s.privacy, requesterRole)
		if includeAudit {
			entries := s.access.Query(audit.Filter{PatientID: id, RedactUserIDs: redactAuditUsers})
			auditOut[id] = entries
		}
	}
	s.access.Append("export", requesterID, "export_patient_data", string(requesterRole))
	return out, auditOut, nil
}

// Validate checks either a single patient (full checks) or every patient
// in the store (shallow checks unless full is requested).
func (s *Service) Validate(patientID string, full bool) (map[string]ValidationResult, error) {
	if patientID != "" {
		rec := s.store.Get(patientID)
		if rec == nil {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, patientID)
		}
		return map[string]ValidationResult{patientID: ValidateRecord(rec, full)}, nil
	}

	out := make(map[string]ValidationResult)
	for _, r := range s.store.All() {
		out[r.PatientID] = ValidateRecord(r, full)
	}
	return out, nil
}
