package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/audit"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/drugsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/evidence"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/guidelinesvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/llm"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/metrics"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/patientsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/synth"
)

// fakeLLM always returns a fixed, valid JSON decision so tests can exercise
// the orchestrator's assembly logic without a real provider.
type fakeLLM struct {
	content string
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, options *llm.SamplingOptions) (*llm.Response, error) {
	return &llm.Response{Content: f.content}, nil
}

const approveJSON = `{"approval_likelihood_percent": 85, "decision_prediction": "Approve", "confidence_score": 0.8, "clinical_rationale": "Patient meets step therapy and diagnosis criteria with good adherence history."}`

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestOrchestrator(t *testing.T, llmResponse string) *Orchestrator {
	t.Helper()
	clock := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	patient := &domain.PatientRecord{
		PatientID:         "patient-001",
		Age:               55,
		DiagnosesICD10:    []string{"E11.9"},
		MedicationHistory: []string{"Metformin 500mg"},
		Labs:              map[string]string{"HbA1c": "8.1%"},
		CreatedAt:         clock(),
		LastUpdated:       clock(),
	}
	store := patientsvc.NewStore(clock, patient)
	patientSvc := patientsvc.NewService(store, audit.NewAccessLog(clock), patientsvc.NewConsentStore(clock), nil, clock)

	drugSvc := drugsvc.NewService(drugsvc.BundledCatalog(), nil)
	policySvc := policysvc.NewService(policysvc.BundledCatalog(), clock)
	guidelines := guidelinesvc.BundledCatalog()
	engine := evidence.NewEngine(clock)

	synthesizer := synth.NewSynthesizer(&fakeLLM{content: llmResponse}, &fakeLLM{content: llmResponse})
	synthesizer.Clock = clock
	synthesizer.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	rec, err := metrics.New(nil)
	require.NoError(t, err)

	return New(patientSvc, drugSvc, policySvc, guidelines, engine, synthesizer, rec, clock)
}

func TestPredict_ApprovesWhenCriteriaMetAndModelApproves(t *testing.T) {
	o := newTestOrchestrator(t, approveJSON)

	result, err := o.Predict(context.Background(), PredictRequest{
		PatientID: "patient-001", DrugName: "empagliflozin", InsurerID: "", Urgency: "routine",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionApprove, result.Decision)
	assert.Equal(t, "live", result.Source)
	assert.NotEmpty(t, result.AuditTrail)
	assert.Equal(t, "data_gathering_start", result.AuditTrail[0].Action)
	assert.Equal(t, "decision_finalized", result.AuditTrail[len(result.AuditTrail)-1].Action)
}

func TestPredict_SecondCallServesFromCache(t *testing.T) {
	o := newTestOrchestrator(t, approveJSON)
	req := PredictRequest{PatientID: "patient-001", DrugName: "empagliflozin", Urgency: "routine"}

	first, err := o.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "live", first.Source)

	second, err := o.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cache", second.Source)
	require.NotNil(t, second.CacheAgeSeconds)
	assert.Equal(t, "cache_hit", second.AuditTrail[len(second.AuditTrail)-1].Action)
}

func TestPredict_UnknownPatientReturnsPendWithAuditTrail(t *testing.T) {
	o := newTestOrchestrator(t, approveJSON)

	result, err := o.Predict(context.Background(), PredictRequest{
		PatientID: "does-not-exist", DrugName: "empagliflozin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPend, result.Decision)
	assert.NotEmpty(t, result.AuditTrail)
}

func TestCacheKey_IsCaseInsensitiveOnDrugName(t *testing.T) {
	assert.Equal(t, CacheKey("p1", "Empagliflozin", "ins1"), CacheKey("p1", "empagliflozin", "ins1"))
}
