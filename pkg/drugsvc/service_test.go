package drugsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

func newTestService() *Service {
	return NewService(BundledCatalog(), nil)
}

func TestService_Info_NormalizesTradeName(t *testing.T) {
	svc := newTestService()
	info, tier, err := svc.Info(context.Background(), "Jardiance")
	require.NoError(t, err)
	assert.Equal(t, "empagliflozin", info.CanonicalName)
	assert.Equal(t, "catalog", tier)
}

func TestService_Info_CachesOnSecondCall(t *testing.T) {
	svc := newTestService()
	_, tier1, err := svc.Info(context.Background(), "metformin")
	require.NoError(t, err)
	assert.Equal(t, "catalog", tier1)

	_, tier2, err := svc.Info(context.Background(), "metformin")
	require.NoError(t, err)
	assert.Equal(t, "memory_cache", tier2)
}

func TestService_Info_NotFound(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.Info(context.Background(), "totally-unknown-drug")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_CheckInteractions_TooFew(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.CheckInteractions([]string{"metformin"})
	require.ErrorIs(t, err, ErrTooFewDrugs)
}

func TestService_CheckInteractions_FindsBidirectional(t *testing.T) {
	svc := newTestService()
	results, highest, err := svc.CheckInteractions([]string{"metformin", "empagliflozin"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.SeverityModerate, highest)
	assert.Equal(t, domain.NewDrugPair("empagliflozin", "metformin"), results[0].Pair)
}

func TestService_CheckInteractions_NoInteraction(t *testing.T) {
	svc := newTestService()
	results, highest, err := svc.CheckInteractions([]string{"metformin", "semaglutide"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, domain.SeverityNone, highest)
}

func TestAssessSafetyProfile_Thresholds(t *testing.T) {
	cases := []struct {
		warnings, contraindications int
		want                        domain.SafetyProfile
	}{
		{0, 0, domain.SafetyMinimal},
		{1, 0, domain.SafetyLow},
		{3, 0, domain.SafetyModerate},
		{5, 0, domain.SafetyHighRisk},
		{0, 5, domain.SafetyHighRisk},
	}
	for _, c := range cases {
		info := domain.DrugInformation{
			Warnings:          make([]string, c.warnings),
			Contraindications: make([]string, c.contraindications),
		}
		assert.Equal(t, c.want, AssessSafetyProfile(info))
	}
}

func TestService_PACriteriaFor_FlagsOffLabel(t *testing.T) {
	svc := newTestService()
	pa, err := svc.PACriteriaFor(context.Background(), "empagliflozin", "restless leg syndrome")
	require.NoError(t, err)
	require.NotNil(t, pa.RequestedIndicationApproved)
	assert.False(t, *pa.RequestedIndicationApproved)
	assert.Contains(t, pa.Recommendations, "Off-label use - ensure appropriate documentation and justification")
}

func TestService_PACriteriaFor_SGLT2Recommendations(t *testing.T) {
	svc := newTestService()
	pa, err := svc.PACriteriaFor(context.Background(), "empagliflozin", "")
	require.NoError(t, err)
	assert.Contains(t, pa.Recommendations, "Verify eGFR is appropriate for SGLT2 inhibitor use")
}

func TestService_Search_ByClass(t *testing.T) {
	svc := newTestService()
	results := svc.Search("SGLT2", SearchByClass)
	require.Len(t, results, 1)
	assert.Equal(t, "empagliflozin", results[0].DrugName)
}

func TestClinicalSignificance_Bands(t *testing.T) {
	assert.Contains(t, ClinicalSignificance(domain.SeverityMajor), "Clinically significant")
	assert.Contains(t, ClinicalSignificance(domain.SeverityModerate), "Potentially significant")
	assert.Contains(t, ClinicalSignificance(domain.SeverityMinor), "Minor clinical significance")
	assert.Equal(t, "No interactions found", ClinicalSignificance(domain.SeverityNone))
}
