package patientsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/audit"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	clock := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewStore(clock, &domain.PatientRecord{
		PatientID:         "patient-001",
		Name:              "John Doe",
		Age:               65,
		Gender:            "M",
		DiagnosesICD10:    []string{"I50", "E11.9"},
		MedicationHistory: []string{"Metformin", "Lisinopril"},
		Labs:              map[string]string{"LVEF": "40%"},
		SSN:               "123-45-6789",
	})
	return NewService(store, audit.NewAccessLog(clock), NewConsentStore(clock), nil, clock)
}

func TestService_GetRecord_Forbidden(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetRecord(context.Background(), "patient-001", "u1", Role("unknown"))
	require.ErrorIs(t, err, ErrForbidden)
}

func TestService_GetRecord_ResearcherAnonymized(t *testing.T) {
	svc := newTestService(t)
	rec, err := svc.GetRecord(context.Background(), "patient-001", "researcher-1", RoleResearch)
	require.NoError(t, err)
	assert.Equal(t, "ANONYMIZED", rec.Name)
	assert.NotEqual(t, "patient-001", rec.PatientID)
	assert.Empty(t, rec.SSN)
}

func TestService_GetRecord_NotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetRecord(context.Background(), "missing", "u1", RoleNurse)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Update_RejectsImmutableField(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Update(context.Background(), "patient-001", map[string]any{"patient_id": "hacked"}, "u1", RolePhysician)
	require.Error(t, err)
	var ve *ErrValidation
	require.ErrorAs(t, err, &ve)
}

func TestService_Update_RequiresWritePermission(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Update(context.Background(), "patient-001", map[string]any{"notes": "x"}, "u1", RoleNurse)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestService_Update_MergesListFields(t *testing.T) {
	svc := newTestService(t)
	rec, err := svc.Update(context.Background(), "patient-001", map[string]any{
		"diagnoses_icd10": []string{"I50", "Z79.4"},
	}, "u1", RolePhysician)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"I50", "E11.9", "Z79.4"}, rec.DiagnosesICD10)
}

func TestService_Update_InvalidatesSearchCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hits1, err := svc.Search(ctx, Criteria{Diagnoses: []string{"I50"}}, "u1", RoleNurse)
	require.NoError(t, err)
	require.Len(t, hits1, 1)

	_, err = svc.Update(ctx, "patient-001", map[string]any{"notes": "updated"}, "u1", RolePhysician)
	require.NoError(t, err)

	svc.searchMu.Lock()
	cacheSize := len(svc.searchCache)
	svc.searchMu.Unlock()
	assert.Zero(t, cacheSize)
}

func TestStore_Search_ScoresAndOrders(t *testing.T) {
	clock := fixedClock(time.Now())
	store := NewStore(clock,
		&domain.PatientRecord{PatientID: "p1", Name: "John Doe", Age: 65, DiagnosesICD10: []string{"I50"}},
		&domain.PatientRecord{PatientID: "p2", Name: "Jane Doe", Age: 40, DiagnosesICD10: []string{"I50", "E11.9"}},
	)
	hits := store.Search(Criteria{Diagnoses: []string{"I50"}, Name: "doe"})
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].MatchScore, hits[1].MatchScore)
}

func TestValidateRecord_FullChecksICD10(t *testing.T) {
	rec := &domain.PatientRecord{PatientID: "p1", Name: "x", Age: 30, DiagnosesICD10: []string{"NOTVALID"}}
	result := ValidateRecord(rec, true)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Issues[0], "ICD-10")
}

func TestValidateRecord_ShallowIgnoresICD10(t *testing.T) {
	rec := &domain.PatientRecord{PatientID: "p1", Name: "x", DiagnosesICD10: []string{"NOTVALID"}}
	result := ValidateRecord(rec, false)
	assert.True(t, result.Valid)
}

func TestConsentStore_DefaultsDataSharingTrue(t *testing.T) {
	cs := NewConsentStore(fixedClock(time.Now()))
	status := cs.Check("patient-001")
	assert.True(t, status.HasDataSharingConsent)
	assert.False(t, status.HasResearchConsent)
}

func TestConsentStore_Update(t *testing.T) {
	cs := NewConsentStore(fixedClock(time.Now()))
	cs.Update("patient-001", "research", true)
	status := cs.Check("patient-001")
	assert.True(t, status.HasResearchConsent)
}

func TestService_Export_RequiresPermission(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Export(context.Background(), nil, false, true, "u1", RoleNurse)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestService_Export_AllPatients(t *testing.T) {
	svc := newTestService(t)
	out, _, err := svc.Export(context.Background(), nil, false, true, "admin-1", RoleAdmin)
	require.NoError(t, err)
	require.Len(t, out, 1)
	rec, ok := out["patient-001"]
	require.True(t, ok)
	assert.Equal(t, "John Doe", rec.Name)
}
