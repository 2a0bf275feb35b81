package taskregistry

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
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/orchestrator"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/patientsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/synth"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/transport"
)

type stubLLM struct{ content string }

func (s *stubLLM) Chat(ctx context.Context, messages []llm.Message, options *llm.SamplingOptions) (*llm.Response, error) {
	return &llm.Response{Content: s.content}, nil
}

const stubApproveJSON = `{"approval_likelihood_percent": 90, "decision_prediction": "Approve", "confidence_score": 0.9, "clinical_rationale": "Criteria satisfied."}`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

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

	synthesizer := synth.NewSynthesizer(&stubLLM{content: stubApproveJSON}, &stubLLM{content: stubApproveJSON})
	synthesizer.Clock = clock
	synthesizer.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	rec, err := metrics.New(nil)
	require.NoError(t, err)

	orch := orchestrator.New(patientSvc, drugSvc, policySvc, guidelines, engine, synthesizer, rec, clock)

	return Build("pa-orchestrator", Services{
		Orchestrator: orch,
		Patient:      patientSvc,
		Drug:         drugSvc,
		Policy:       policySvc,
	})
}

func TestDispatch_UnknownTaskNameReturnsFailedWithSupportedList(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(context.Background(), transport.Request{TaskName: "does_not_exist"})
	assert.Equal(t, transport.StatusFailed, resp.Status)
	assert.Contains(t, resp.ErrorMessage, "does_not_exist")
	assert.Contains(t, resp.ErrorMessage, "predict_approval_likelihood")
}

func TestDispatch_GetPatientRecordMissingPatientIDFails(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(context.Background(), transport.Request{
		TaskName: "get_patient_record",
		Payload:  map[string]any{},
	})
	assert.Equal(t, transport.StatusFailed, resp.Status)
	assert.Equal(t, []string{"patient_id"}, resp.Missing)
}

func TestDispatch_GetPatientRecordNotFound(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(context.Background(), transport.Request{
		TaskName: "get_patient_record",
		Payload:  map[string]any{"patient_id": "nope"},
	})
	assert.Equal(t, transport.StatusNotFound, resp.Status)
}

func TestDispatch_GetPatientRecordFound(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(context.Background(), transport.Request{
		TaskName: "get_patient_record",
		Payload:  map[string]any{"patient_id": "patient-001"},
	})
	require.Equal(t, transport.StatusCompleted, resp.Status)
	record, ok := resp.Result["record"].(*domain.PatientRecord)
	require.True(t, ok)
	assert.Equal(t, "patient-001", record.PatientID)
}

func TestDispatch_PredictApprovalLikelihoodEndToEnd(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(context.Background(), transport.Request{
		TaskName: "predict_approval_likelihood",
		Payload: map[string]any{
			"patient_id": "patient-001",
			"drug_name":  "empagliflozin",
			"insurer_id": "",
			"urgency":    "routine",
		},
	})
	require.Equal(t, transport.StatusCompleted, resp.Status)
	prediction, ok := resp.Result["prediction"].(domain.AnalysisResult)
	require.True(t, ok)
	assert.Equal(t, domain.DecisionApprove, prediction.Decision)
}

func TestDispatch_CheckDrugInteractionsRequiresAtLeastTwoDrugs(t *testing.T) {
	r := newTestRegistry(t)
	resp := r.Dispatch(context.Background(), transport.Request{
		TaskName: "check_drug_interactions",
		Payload:  map[string]any{"drug_names": []any{"empagliflozin"}},
	})
	assert.Equal(t, transport.StatusFailed, resp.Status)
}
