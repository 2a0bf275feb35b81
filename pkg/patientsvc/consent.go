package patientsvc

import (
	"sync"
	"time"
)

// ConsentStatus is a patient's current consent flags.
type ConsentStatus struct {
	HasGeneralConsent      bool
	HasResearchConsent     bool
	HasDataSharingConsent  bool
	LastUpdated            time.Time
}

// ConsentStore tracks per-patient, per-consent-type flags independent of
// the clinical record.
type ConsentStore struct {
	mu     sync.Mutex
	clock  func() time.Time
	status map[string]map[string]bool
	stamps map[string]time.Time
}

// NewConsentStore creates an empty consent store.
func NewConsentStore(clock func() time.Time) *ConsentStore {
	if clock == nil {
		clock = time.Now
	}
	return &ConsentStore{
		clock:  clock,
		status: make(map[string]map[string]bool),
		stamps: make(map[string]time.Time),
	}
}

// Check returns the consent status for a patient. Data-sharing consent
// defaults to true (opt-out model) when never explicitly set; research
// consent defaults to false (opt-in).
func (c *ConsentStore) Check(patientID string) ConsentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	flags := c.status[patientID]
	dataSharing := true
	if v, ok := flags["data_sharing"]; ok {
		dataSharing = v
	}
	return ConsentStatus{
		HasGeneralConsent:     true,
		HasResearchConsent:    flags["research"],
		HasDataSharingConsent: dataSharing,
		LastUpdated:           c.stamps[patientID],
	}
}

// Update sets a named consent flag for a patient and returns the new
// timestamp.
func (c *ConsentStore) Update(patientID, consentType string, value bool) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	flags, ok := c.status[patientID]
	if !ok {
		flags = make(map[string]bool)
		c.status[patientID] = flags
	}
	flags[consentType] = value
	now := c.clock()
	c.stamps[patientID] = now
	return now
}
