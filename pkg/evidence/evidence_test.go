package evidence

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

func testEngine() *Engine {
	return NewEngine(fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWeightedScore_EmptyReturnsNeutral(t *testing.T) {
	assert.Equal(t, 0.5, WeightedScore(nil))
}

func TestWeightedScore_AllSupportingIsOne(t *testing.T) {
	items := []domain.EvidenceItem{
		domain.NewEvidenceItem("a", domain.EvidenceSafety, "x", 0.5, true, 1.0, time.Now()),
		domain.NewEvidenceItem("b", domain.EvidenceHistory, "y", 0.5, true, 1.0, time.Now()),
	}
	assert.InDelta(t, 1.0, WeightedScore(items), 1e-9)
}

func TestConfidenceScore_NeverExceeds95(t *testing.T) {
	items := []domain.EvidenceItem{
		domain.NewEvidenceItem("a", domain.EvidenceSafety, "x", 1.0, true, 1.0, time.Now()),
	}
	c := ConfidenceScore(items, completenessInputs{hasPatient: true, hasDrugInfo: true, hasPolicy: true, hasGuidelines: true, hasCriteria: true, hasLabs: true, hasDrugSafety: true})
	assert.LessOrEqual(t, c, 0.95)
}

func TestPatientHistoryScore_TriedPrerequisiteAndElevatedHbA1c(t *testing.T) {
	patient := &domain.PatientRecord{
		MedicationHistory: []string{"Metformin 500mg"},
		DiagnosesICD10:    []string{"E11.9"},
		Labs:              map[string]string{"HbA1c": "8.5%"},
	}
	drug := &domain.DrugInformation{Indications: []string{"Type 2 diabetes"}}
	score := patientHistoryScore(patient, drug)
	assert.Greater(t, score, 0.5)
}

func TestAssessClinicalAppropriateness_PediatricPenalized(t *testing.T) {
	patient := &domain.PatientRecord{Age: 10}
	a := assessClinicalAppropriateness(patient, nil)
	assert.Less(t, a.score, 0.5)
}

func TestAssessClinicalAppropriateness_ContraindicationPenalized(t *testing.T) {
	patient := &domain.PatientRecord{Age: 40, DiagnosesICD10: []string{"E10.9"}}
	drug := &domain.DrugInformation{Contraindications: []string{"Type 1 Diabetes"}}
	a := assessClinicalAppropriateness(patient, drug)
	assert.Contains(t, a.rationale, "contraindication present")
}

func TestGuidelineEvidence_SplitsWeightAcrossUpToThree(t *testing.T) {
	items := guidelineEvidence([]domain.GuidelineItem{
		{Text: "recommended as first-line", RelevanceScore: 0.9, Source: "A"},
		{Text: "avoid in renal impairment", RelevanceScore: 0.8, Source: "B"},
	}, time.Now())
	require.Len(t, items, 2)
	for _, it := range items {
		assert.InDelta(t, Weights["guideline_support"]/2, it.Weight, 1e-9)
	}
	assert.True(t, items[0].SupportsApproval)
	assert.False(t, items[1].SupportsApproval)
}

func TestInteractionEvidence_NilMeansNoCheckPerformed(t *testing.T) {
	assert.Nil(t, interactionEvidence(nil, time.Now()))
}

func TestInteractionEvidence_EmptySupportsApproval(t *testing.T) {
	item := interactionEvidence([]domain.InteractionResult{}, time.Now())
	require.NotNil(t, item)
	assert.True(t, item.SupportsApproval)
}

func TestInteractionEvidence_MajorSeverityOpposes(t *testing.T) {
	item := interactionEvidence([]domain.InteractionResult{
		{Pair: domain.NewDrugPair("a", "b"), Severity: domain.SeverityMajor},
	}, time.Now())
	require.NotNil(t, item)
	assert.False(t, item.SupportsApproval)
}

func TestSafetyEvidence_PregnancyConcernOpposes(t *testing.T) {
	patient := &domain.PatientRecord{Age: 28, Gender: "F"}
	safety := &domain.DrugSafetySummary{Contraindications: []string{"Pregnancy"}}
	item := safetyEvidence(safety, patient, time.Now())
	require.NotNil(t, item)
	assert.False(t, item.SupportsApproval)
	assert.InDelta(t, 0.9, item.Confidence, 1e-9)
}

func TestEngine_Analyze_EndToEnd(t *testing.T) {
	patient := &domain.PatientRecord{
		PatientID:         "p1",
		Age:               55,
		Gender:            "F",
		DiagnosesICD10:    []string{"E11.9"},
		MedicationHistory: []string{"Metformin 500mg"},
		Labs:              map[string]string{"HbA1c": "8.2%"},
	}
	drugInfo := &domain.DrugInformation{
		CanonicalName: "Empagliflozin",
		Indications:   []string{"Type 2 diabetes"},
	}
	safety := &domain.DrugSafetySummary{SafetyProfile: domain.SafetyLow}
	coverage := &domain.CoverageDecision{CriteriaMet: true}

	result := testEngine().Analyze(domain.AnalysisContext{
		DrugName:         "Empagliflozin",
		Patient:          patient,
		DrugInfo:         drugInfo,
		Safety:           safety,
		CoverageDecision: coverage,
		InteractionCheck: []domain.InteractionResult{},
		Guidelines: []domain.GuidelineItem{
			{Text: "recommended and preferred first-line therapy", RelevanceScore: 0.9, Source: "ADA"},
		},
	})

	require.NotEmpty(t, result.Items)
	assert.GreaterOrEqual(t, result.PreliminaryScore, 0.0)
	assert.LessOrEqual(t, result.PreliminaryScore, 1.0)
	assert.LessOrEqual(t, result.Confidence, 0.95)
}
