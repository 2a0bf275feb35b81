package patientsvc

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// PrivacyConfig controls how FilterForRole redacts a record before it
// leaves the service.
type PrivacyConfig struct {
	MaskSensitiveData bool
}

// DefaultPrivacyConfig returns masking off by default; the researcher-role
// anonymization always applies regardless of this flag.
func DefaultPrivacyConfig() PrivacyConfig {
	return PrivacyConfig{MaskSensitiveData: false}
}

// FilterForRole returns a privacy-filtered copy of rec appropriate for
// requesterRole. Researchers always get an anonymized copy (name and ID
// replaced, SSN/DOB/address/phone stripped) independent of cfg; other
// roles get SSN/DOB/address/phone masked only when cfg.MaskSensitiveData
// is set.
func FilterForRole(rec *domain.PatientRecord, cfg PrivacyConfig, requesterRole Role) *domain.PatientRecord {
	if rec == nil {
		return nil
	}
	filtered := rec.Clone()

	switch {
	case requesterRole == RoleResearch:
		filtered.Name = "ANONYMIZED"
		filtered.PatientID = anonymizeID(filtered.PatientID)
		filtered.SSN = ""
		filtered.DOB = ""
		filtered.Address = ""
		filtered.Phone = ""
	case cfg.MaskSensitiveData:
		if filtered.SSN != "" {
			filtered.SSN = "***-**-****"
		}
		if filtered.DOB != "" {
			filtered.DOB = "YYYY-MM-DD"
		}
		if filtered.Address != "" {
			filtered.Address = "REDACTED"
		}
		if filtered.Phone != "" {
			filtered.Phone = "***-***-****"
		}
	}
	return filtered
}

func anonymizeID(id string) string {
	sum := md5.Sum([]byte(id))
	return hex.EncodeToString(sum[:])[:8]
}
