package policysvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestService() *Service {
	return NewService(BundledCatalog(), fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestService_GetPolicy_NotFound(t *testing.T) {
	svc := newTestService()
	_, _, err := svc.GetPolicy("", "totally-unknown-drug")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_GetPolicy_CachesSecondLookup(t *testing.T) {
	svc := newTestService()
	_, source1, err := svc.GetPolicy("", "empagliflozin")
	require.NoError(t, err)
	assert.Equal(t, "catalog", source1)

	_, source2, err := svc.GetPolicy("", "empagliflozin")
	require.NoError(t, err)
	assert.Equal(t, "cache", source2)
}

func TestCheckCoverage_NoPARequired(t *testing.T) {
	policy, _, err := newTestService().GetPolicy("", "metformin")
	require.NoError(t, err)

	decision := CheckCoverage(policy, PatientEvidence{})
	assert.True(t, decision.CriteriaMet)
	assert.Empty(t, decision.Evaluations)
}

func TestCheckCoverage_MeetsAllCriteria(t *testing.T) {
	policy, _, err := newTestService().GetPolicy("", "empagliflozin")
	require.NoError(t, err)

	age := 55
	ev := PatientEvidence{
		Age:               &age,
		DiagnosesICD10:    []string{"E11.9"},
		MedicationHistory: []string{"Metformin 500mg"},
		RequestedQuantity: intPtr(30),
	}
	decision := CheckCoverage(policy, ev)
	assert.True(t, decision.CriteriaMet)
	for _, e := range decision.Evaluations {
		if e.Criterion.Required {
			assert.True(t, e.Met(), "required criterion %s should be met", e.Criterion.ID)
		}
	}
}

func TestCheckCoverage_MissingStepTherapyDenies(t *testing.T) {
	policy, _, err := newTestService().GetPolicy("", "empagliflozin")
	require.NoError(t, err)

	ev := PatientEvidence{DiagnosesICD10: []string{"E11.9"}}
	decision := CheckCoverage(policy, ev)
	assert.False(t, decision.CriteriaMet)
	assert.Contains(t, decision.Recommendations[0], "denied")
}

func TestEvaluate_LabValueBelowMinimum(t *testing.T) {
	c := domain.Criterion{Kind: domain.CriterionLabValue, RequiredTest: "HbA1c", MinValue: floatPtr(7.5)}
	ev := PatientEvidence{Labs: map[string]string{"HbA1c": "6.2%"}}
	result := Evaluate(c, ev)
	assert.Equal(t, domain.OutcomeUnmet, result.Outcome)
}

func TestEvaluate_LabValueUnparseable(t *testing.T) {
	c := domain.Criterion{Kind: domain.CriterionLabValue, RequiredTest: "HbA1c", MinValue: floatPtr(7.5)}
	ev := PatientEvidence{Labs: map[string]string{"HbA1c": "pending"}}
	result := Evaluate(c, ev)
	assert.Equal(t, domain.OutcomeUnparseable, result.Outcome)
}

func TestEvaluate_QuantityLimitNoDataNoLimit(t *testing.T) {
	c := domain.Criterion{Kind: domain.CriterionQuantityLimit}
	result := Evaluate(c, PatientEvidence{})
	assert.Equal(t, domain.OutcomeMet, result.Outcome)
}

func TestEvaluate_UnknownKindUnparseable(t *testing.T) {
	c := domain.Criterion{Kind: "made_up_kind"}
	result := Evaluate(c, PatientEvidence{})
	assert.Equal(t, domain.OutcomeUnparseable, result.Outcome)
}

func TestEvaluate_CustomCEL_MetWhenExpressionTrue(t *testing.T) {
	c := domain.Criterion{Kind: domain.CriterionCustomCEL, Expression: `quantity <= 30`}
	result := Evaluate(c, PatientEvidence{RequestedQuantity: intPtr(20)})
	assert.Equal(t, domain.OutcomeMet, result.Outcome)
}

func TestEvaluate_CustomCEL_UnmetWhenExpressionFalse(t *testing.T) {
	c := domain.Criterion{Kind: domain.CriterionCustomCEL, Expression: `quantity <= 30`}
	result := Evaluate(c, PatientEvidence{RequestedQuantity: intPtr(90)})
	assert.Equal(t, domain.OutcomeUnmet, result.Outcome)
}

func TestEvaluate_CustomCEL_UnparseableOnBadExpression(t *testing.T) {
	c := domain.Criterion{Kind: domain.CriterionCustomCEL, Expression: `this is not cel (`}
	result := Evaluate(c, PatientEvidence{})
	assert.Equal(t, domain.OutcomeUnparseable, result.Outcome)
}

func TestEvaluate_CustomCEL_PatientAgeExpression(t *testing.T) {
	c := domain.Criterion{Kind: domain.CriterionCustomCEL, Expression: `patient.age >= 18 && "E11.9" in patient.diagnoses_icd10`}
	age := 40
	result := Evaluate(c, PatientEvidence{Age: &age, DiagnosesICD10: []string{"E11.9"}})
	assert.Equal(t, domain.OutcomeMet, result.Outcome)
}

func TestService_SearchFormulary_ByClass(t *testing.T) {
	hits := newTestService().SearchFormulary("", "SGLT2", SearchClass)
	require.Len(t, hits, 1)
	assert.Equal(t, "Empagliflozin", hits[0].DrugName)
}

func TestService_SearchFormulary_ByTier(t *testing.T) {
	hits := newTestService().SearchFormulary("", "tier 1", SearchTier)
	require.Len(t, hits, 1)
	assert.Equal(t, "Metformin", hits[0].DrugName)
}

func TestService_Alternatives_PrefersNonPA(t *testing.T) {
	alts, rec, err := newTestService().Alternatives("", "empagliflozin")
	require.NoError(t, err)
	require.NotEmpty(t, alts)
	assert.Contains(t, rec, "Metformin")
}

func TestService_Alternatives_NotOnFormularyAllRequirePA(t *testing.T) {
	alts, rec, err := newTestService().Alternatives("", "sotagliflozin")
	require.NoError(t, err)
	require.Len(t, alts, 2)
	assert.Contains(t, rec, "require prior authorization")
}

func TestService_ComparePolicies_BestCoverageIsMetformin(t *testing.T) {
	svc := newTestService()
	comparison, best, found := svc.ComparePolicies("metformin", nil)
	require.True(t, found)
	require.Contains(t, comparison, "Default Health Insurance")
	assert.Equal(t, "Default Health Insurance", best.Insurer)
	assert.Equal(t, domain.CoverageCovered, best.Details.Status)
}

func TestScoreCoverage_NoPABeatsRequiresPA(t *testing.T) {
	withoutPA := ScoreCoverage(InsurerComparison{Status: domain.CoverageCovered, Tier: 1, RequiresPA: false})
	withPA := ScoreCoverage(InsurerComparison{Status: domain.CoverageCovered, Tier: 1, RequiresPA: true})
	assert.Greater(t, withoutPA, withPA)
}

func TestIdentifyBestCoverage_EmptyReturnsFalse(t *testing.T) {
	_, found := IdentifyBestCoverage(map[string]InsurerComparison{})
	assert.False(t, found)
}
