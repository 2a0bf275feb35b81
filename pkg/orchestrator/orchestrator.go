// Package orchestrator implements the end-to-end prior-authorization
// prediction flow: decision-cache lookup, parallel data gathering across
// the specialist services, evidence analysis, synthesizer invocation, and
// final result assembly with recommendations, alternatives, and an
// append-only per-request audit trail.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/audit"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/drugsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/evidence"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/guidelinesvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/metrics"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/patientsvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/synth"
)

// AgentID identifies this process's audit entries and synthetic cache-hit
// trail entries.
const AgentID = "pa-orchestrator"

// Orchestrator wires every specialist service, the evidence engine, the
// synthesizer, and cross-cutting concerns (cache, metrics) into the single
// end-to-end Predict flow.
type Orchestrator struct {
	Patient    *patientsvc.Service
	Drug       *drugsvc.Service
	Policy     *policysvc.Service
	Guidelines *guidelinesvc.Catalog
	Evidence   *evidence.Engine
	Synth      *synth.Synthesizer
	Metrics    *metrics.Recorder

	cache *decisionCache
	clock func() time.Time
}

// New wires an Orchestrator. A nil clock defaults to time.Now.
func New(patient *patientsvc.Service, drug *drugsvc.Service, policy *policysvc.Service,
	guidelines *guidelinesvc.Catalog, eng *evidence.Engine, synthesizer *synth.Synthesizer,
	rec *metrics.Recorder, clock func() time.Time) *Orchestrator {
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		Patient: patient, Drug: drug, Policy: policy, Guidelines: guidelines,
		Evidence: eng, Synth: synthesizer, Metrics: rec,
		cache: newDecisionCache(clock), clock: clock,
	}
}

// PredictRequest is the payload for Predict.
type PredictRequest struct {
	PatientID string
	DrugName  string
	InsurerID string
	Urgency   string
}

// Predict runs the end-to-end flow: cache lookup, parallel gather, context
// assembly, evidence analysis, synthesis, and result assembly.
func (o *Orchestrator) Predict(ctx context.Context, req PredictRequest) (domain.AnalysisResult, error) {
	start := o.clock()
	key := CacheKey(req.PatientID, req.DrugName, req.InsurerID)

	if cached, age, ok := o.cache.Get(key); ok {
		o.Metrics.RecordCache("decision_cache", true)
		cached.Source = "cache"
		ageSeconds := age.Seconds()
		cached.CacheAgeSeconds = &ageSeconds
		cached.AuditTrail = append(cached.AuditTrail, audit.CacheHitEntries(AgentID, o.clock())...)
		o.Metrics.RecordTask(ctx, "predict_approval_likelihood", o.clock().Sub(start), nil)
		return cached, nil
	}
	o.Metrics.RecordCache("decision_cache", false)

	trail := audit.NewTrail(AgentID, o.clock)
	decisionID := uuid.New().String()

	trail.Append("data_gathering_start", fmt.Sprintf("patient=%s drug=%s insurer=%s", req.PatientID, req.DrugName, req.InsurerID))
	gathered := o.gather(ctx, req.PatientID, req.DrugName, req.InsurerID, "")
	trail.Append("data_gathering_complete", fmt.Sprintf("warnings=%d", len(gathered.Warnings)))

	if gathered.Patient == nil || gathered.Patient.IsEmpty() {
		result := domain.AnalysisResult{
			DecisionID:        decisionID,
			PatientID:         req.PatientID,
			DrugName:          req.DrugName,
			InsurerID:         req.InsurerID,
			Decision:          domain.DecisionPend,
			ClinicalRationale: "patient record not found or empty; unable to assess prior-authorization request",
			AnalysisTimestamp: o.clock(),
			AuditTrail:        trail.Entries(),
			Source:            "live",
			ProcessingTimeMS:  o.clock().Sub(start).Milliseconds(),
		}
		o.Metrics.RecordTask(ctx, "predict_approval_likelihood", o.clock().Sub(start), fmt.Errorf("empty patient record"))
		return result, nil
	}

	ac := domain.AnalysisContext{
		DecisionID:       decisionID,
		PatientID:        req.PatientID,
		DrugName:         req.DrugName,
		InsurerID:        req.InsurerID,
		Urgency:          req.Urgency,
		Patient:          gathered.Patient,
		DrugInfo:         gathered.DrugInfo,
		Policy:           gathered.Policy,
		CoverageDecision: gathered.CoverageDecision,
		Guidelines:       gathered.Guidelines,
		Safety:           gathered.Safety,
		InteractionCheck: gathered.InteractionCheck,
		GatherWarnings:   gathered.Warnings,
	}

	trail.Append("analysis_start", "")
	evidenceResult := o.Evidence.Analyze(ac)
	trail.Append("analysis_complete", fmt.Sprintf("items=%d preliminary_score=%.3f", len(evidenceResult.Items), evidenceResult.PreliminaryScore))

	trail.Append("llm_synthesis_start", "")
	synthResult := o.Synth.Synthesize(ctx, ac, evidenceResult.Items, evidenceResult.PreliminaryScore)
	trail.Append("llm_synthesis_complete", fmt.Sprintf("model_tier=%s tokens=%d", synthResult.ModelTier, synthResult.TokensUsed))

	decision := synthResult.Decision
	if decision == "" {
		decision = domain.DecisionPend
	}
	if strings.ToLower(ac.Urgency) == "emergency" && decision == domain.DecisionApprove {
		decision = domain.DecisionUrgentReview
	}

	var drugClass string
	if ac.DrugInfo != nil {
		drugClass = ac.DrugInfo.DrugClass
	}
	var alternatives []domain.EnrichedAlternative
	if decision == domain.DecisionDeny {
		alternatives = o.buildAlternatives(req.InsurerID, req.DrugName, drugClass)
	}

	result := domain.AnalysisResult{
		DecisionID:         decisionID,
		PatientID:          req.PatientID,
		DrugName:           req.DrugName,
		InsurerID:          req.InsurerID,
		Decision:           decision,
		ApprovalLikelihood: synthResult.ApprovalLikelihood,
		ConfidenceScore:    synthResult.ConfidenceScore,
		ConfidenceLevel:    domain.BandConfidence(synthResult.ConfidenceScore),
		ClinicalRationale:  synthResult.ClinicalRationale,
		EvidenceItems:      evidenceResult.Items,
		IdentifiedGaps:     identifiedGaps(decision, ac),
		Recommendations:    buildRecommendations(decision, ac, alternatives),
		AlternativeOptions: alternatives,
		LLMTokensUsed:      synthResult.TokensUsed,
		AnalysisTimestamp:  o.clock(),
		Source:             "live",
		ModelTierUsed:      synthResult.ModelTier,
	}

	trail.Append("decision_finalized", string(decision))
	result.AuditTrail = trail.Entries()
	result.ProcessingTimeMS = o.clock().Sub(start).Milliseconds()

	o.cache.Put(key, result)
	o.Metrics.RecordTask(ctx, "predict_approval_likelihood", o.clock().Sub(start), nil)
	return result, nil
}
