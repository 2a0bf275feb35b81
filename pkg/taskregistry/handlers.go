package taskregistry

import (
	"context"
	"errors"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/drugsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/orchestrator"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/patientsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/transport"
)

// systemRequester is the identity this registry presents to patientsvc.
// Caller identity and authorization live in the transport layer outside
// this module; by the time a request reaches a handler it has already
// been admitted, so every lookup here runs as the system role.
const systemRequester = "task-registry"

// Services bundles everything a registered handler needs.
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Patient      *patientsvc.Service
	Drug         *drugsvc.Service
	Policy       *policysvc.Service
}

// Build constructs a Registry with every canonical operation wired to svcs.
func Build(agentID string, svcs Services) *Registry {
	r := New(agentID)
	r.Register("predict_approval_likelihood", svcs.predictApprovalLikelihood)
	r.Register("get_patient_record", svcs.getPatientRecord)
	r.Register("search_patients", svcs.searchPatients)
	r.Register("get_policy_for_drug", svcs.getPolicyForDrug)
	r.Register("check_coverage_criteria", svcs.checkCoverageCriteria)
	r.Register("get_drug_info", svcs.getDrugInfo)
	r.Register("check_drug_interactions", svcs.checkDrugInteractions)
	r.Register("get_pa_criteria", svcs.getPACriteria)
	return r
}

func (s Services) predictApprovalLikelihood(ctx context.Context, req transport.Request) transport.Response {
	patientID, ok := transport.StringField(req.Payload, "patient_id")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"patient_id"})
	}
	drugName, ok := transport.StringField(req.Payload, "drug_name")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"drug_name"})
	}
	insurerID := transport.OptionalStringField(req.Payload, "insurer_id")
	urgency := transport.OptionalStringField(req.Payload, "urgency")

	result, err := s.Orchestrator.Predict(ctx, orchestrator.PredictRequest{
		PatientID: patientID, DrugName: drugName, InsurerID: insurerID, Urgency: urgency,
	})
	if err != nil {
		return transport.Failed(orchestrator.AgentID, err.Error())
	}
	return transport.Completed(orchestrator.AgentID, map[string]any{"prediction": result})
}

func (s Services) getPatientRecord(ctx context.Context, req transport.Request) transport.Response {
	patientID, ok := transport.StringField(req.Payload, "patient_id")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"patient_id"})
	}
	record, err := s.Patient.GetRecord(ctx, patientID, systemRequester, patientsvc.RoleSystem)
	if err != nil {
		if errors.Is(err, patientsvc.ErrNotFound) {
			return transport.NotFound(req.TaskName, err.Error())
		}
		if errors.Is(err, patientsvc.ErrForbidden) {
			return transport.Forbidden(req.TaskName, err.Error())
		}
		return transport.Failed(req.TaskName, err.Error())
	}
	return transport.Completed(req.TaskName, map[string]any{"record": record})
}

func (s Services) searchPatients(ctx context.Context, req transport.Request) transport.Response {
	criteriaPayload, ok := transport.MapField(req.Payload, "criteria")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"criteria"})
	}

	criteria := patientsvc.Criteria{
		Name:      transport.OptionalStringField(criteriaPayload, "name"),
		PatientID: transport.OptionalStringField(criteriaPayload, "patient_id"),
		Gender:    transport.OptionalStringField(criteriaPayload, "gender"),
	}
	if diagnoses, ok := transport.StringSliceField(criteriaPayload, "diagnoses"); ok {
		criteria.Diagnoses = diagnoses
	}
	if meds, ok := transport.StringSliceField(criteriaPayload, "medications"); ok {
		criteria.Medications = meds
	}
	if age, ok := transport.IntField(criteriaPayload, "age"); ok {
		criteria.Age = &age
	}

	pageSize, _ := transport.IntField(req.Payload, "page_size")
	if pageSize <= 0 {
		pageSize = 20
	}
	page, _ := transport.IntField(req.Payload, "page")
	if page <= 0 {
		page = 1
	}

	hits, err := s.Patient.Search(ctx, criteria, systemRequester, patientsvc.RoleSystem)
	if err != nil {
		return transport.Failed(req.TaskName, err.Error())
	}

	totalPages := (len(hits) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	start := (page - 1) * pageSize
	if start > len(hits) {
		start = len(hits)
	}
	end := start + pageSize
	if end > len(hits) {
		end = len(hits)
	}

	return transport.Completed(req.TaskName, map[string]any{
		"results":     hits[start:end],
		"total_pages": totalPages,
	})
}

func (s Services) getPolicyForDrug(ctx context.Context, req transport.Request) transport.Response {
	drugName, ok := transport.StringField(req.Payload, "drug_name")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"drug_name"})
	}
	insurer := transport.OptionalStringField(req.Payload, "insurer")

	policy, _, err := s.Policy.GetPolicy(insurer, drugName)
	if err != nil {
		if errors.Is(err, policysvc.ErrNotFound) {
			return transport.NotFound(req.TaskName, err.Error())
		}
		return transport.Failed(req.TaskName, err.Error())
	}
	return transport.Completed(req.TaskName, map[string]any{"policy": policy})
}

func (s Services) checkCoverageCriteria(ctx context.Context, req transport.Request) transport.Response {
	drugName, ok := transport.StringField(req.Payload, "drug_name")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"drug_name"})
	}
	evidencePayload, ok := transport.MapField(req.Payload, "patient_evidence")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"patient_evidence"})
	}
	insurer := transport.OptionalStringField(req.Payload, "insurer")

	ev := policysvc.PatientEvidence{ProviderType: transport.OptionalStringField(evidencePayload, "provider_type")}
	if age, ok := transport.IntField(evidencePayload, "age"); ok {
		ev.Age = &age
	}
	if diagnoses, ok := transport.StringSliceField(evidencePayload, "diagnoses_icd10"); ok {
		ev.DiagnosesICD10 = diagnoses
	}
	if meds, ok := transport.StringSliceField(evidencePayload, "medication_history"); ok {
		ev.MedicationHistory = meds
	}
	if qty, ok := transport.IntField(evidencePayload, "requested_quantity"); ok {
		ev.RequestedQuantity = &qty
	}

	decision, err := s.Policy.CheckCoverage(insurer, drugName, ev)
	if err != nil {
		if errors.Is(err, policysvc.ErrNotFound) {
			return transport.NotFound(req.TaskName, err.Error())
		}
		return transport.Failed(req.TaskName, err.Error())
	}
	return transport.Completed(req.TaskName, map[string]any{"coverage_decision": decision})
}

func (s Services) getDrugInfo(ctx context.Context, req transport.Request) transport.Response {
	drugName, ok := transport.StringField(req.Payload, "drug_name")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"drug_name"})
	}
	info, _, err := s.Drug.Info(ctx, drugName)
	if err != nil {
		if errors.Is(err, drugsvc.ErrNotFound) {
			return transport.NotFound(req.TaskName, err.Error())
		}
		return transport.Failed(req.TaskName, err.Error())
	}
	return transport.Completed(req.TaskName, map[string]any{"drug_info": info})
}

func (s Services) checkDrugInteractions(ctx context.Context, req transport.Request) transport.Response {
	names, ok := transport.StringSliceField(req.Payload, "drug_names")
	if !ok || len(names) < 2 {
		return transport.MissingFields(req.TaskName, []string{"drug_names"})
	}
	interactions, severity, err := s.Drug.CheckInteractions(names)
	if err != nil {
		return transport.Failed(req.TaskName, err.Error())
	}
	return transport.Completed(req.TaskName, map[string]any{
		"interactions":     interactions,
		"severity_summary": severity,
	})
}

func (s Services) getPACriteria(ctx context.Context, req transport.Request) transport.Response {
	drugName, ok := transport.StringField(req.Payload, "drug_name")
	if !ok {
		return transport.MissingFields(req.TaskName, []string{"drug_name"})
	}
	indication := transport.OptionalStringField(req.Payload, "indication")

	criteria, err := s.Drug.PACriteriaFor(ctx, drugName, indication)
	if err != nil {
		if errors.Is(err, drugsvc.ErrNotFound) {
			return transport.NotFound(req.TaskName, err.Error())
		}
		return transport.Failed(req.TaskName, err.Error())
	}
	return transport.Completed(req.TaskName, map[string]any{"pa_criteria": criteria})
}
