package domain

import "time"

// EvidenceType classifies the source kind of an EvidenceItem.
type EvidenceType string

const (
	EvidenceCriteriaCheck    EvidenceType = "criteria_check"
	EvidenceGuidelineSupport EvidenceType = "guideline_support"
	EvidenceAppropriateness  EvidenceType = "clinical_appropriateness"
	EvidenceInteraction      EvidenceType = "drug_interaction"
	EvidenceSafety           EvidenceType = "drug_safety"
	EvidenceHistory          EvidenceType = "patient_history"
	EvidencePriority         EvidenceType = "priority"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EvidenceItem is immutable after construction; weight and confidence are
// clamped to [0,1] and content is truncated to 200 characters.
type EvidenceItem struct {
	Source           string       `json:"source"`
	Type             EvidenceType `json:"type"`
	Content          string       `json:"content"`
	Weight           float64      `json:"weight"`
	SupportsApproval bool         `json:"supports_approval"`
	Confidence       float64      `json:"confidence"`
	Timestamp        time.Time    `json:"timestamp"`
}

// NewEvidenceItem constructs an EvidenceItem, clamping weight/confidence and
// truncating content to the 200-character limit.
func NewEvidenceItem(source string, typ EvidenceType, content string, weight float64, supports bool, confidence float64, ts time.Time) EvidenceItem {
	if len(content) > 200 {
		content = content[:200]
	}
	return EvidenceItem{
		Source:           source,
		Type:             typ,
		Content:          content,
		Weight:           clamp01(weight),
		SupportsApproval: supports,
		Confidence:       clamp01(confidence),
		Timestamp:        ts,
	}
}

// AnalysisContext is the immutable snapshot assembled by the orchestrator
// before the evidence engine and synthesizer run.
type AnalysisContext struct {
	DecisionID        string
	PatientID         string
	DrugName          string
	InsurerID         string
	Urgency           string
	Patient           *PatientRecord
	DrugInfo          *DrugInformation
	Policy            *InsurerPolicy
	CoverageDecision  *CoverageDecision
	Guidelines        []GuidelineItem
	Safety            *DrugSafetySummary
	InteractionCheck  []InteractionResult
	GatherWarnings    []string
}

// GuidelineItem is a free-text clinical-guideline snippet with an
// opaque provider-supplied relevance score.
type GuidelineItem struct {
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"`
	Source         string  `json:"source"`
	Year           int     `json:"year"`
}

// CoverageDecision is the output of policysvc.Service.CheckCoverage.
type CoverageDecision struct {
	CriteriaMet     bool                  `json:"criteria_met"`
	Evaluations     []CriterionEvaluation `json:"evaluations"`
	Recommendations []string              `json:"recommendations"`
}

// EvaluationOutcome tags the result of evaluating a single criterion,
// replacing exception-for-control-flow with an explicit variant.
type EvaluationOutcome string

const (
	OutcomeMet          EvaluationOutcome = "met"
	OutcomeUnmet        EvaluationOutcome = "unmet"
	OutcomeUnparseable  EvaluationOutcome = "unparseable"
)

// CriterionEvaluation is the result of running a single criterion's handler.
type CriterionEvaluation struct {
	Criterion Criterion         `json:"criterion"`
	Outcome   EvaluationOutcome `json:"outcome"`
	Message   string            `json:"message"`
	Details   map[string]any    `json:"details,omitempty"`
}

// Met reports whether the evaluation outcome is OutcomeMet.
func (e CriterionEvaluation) Met() bool {
	return e.Outcome == OutcomeMet
}

// Decision is the final verdict reached by the synthesizer/orchestrator.
type Decision string

const (
	DecisionApprove      Decision = "Approve"
	DecisionDeny         Decision = "Deny"
	DecisionPend         Decision = "Pend"
	DecisionUrgentReview Decision = "UrgentReview"
)

// ConfidenceLevel bands a numeric confidence score for display purposes.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// BandConfidence maps a confidence score in [0,1] to a display band.
func BandConfidence(score float64) ConfidenceLevel {
	switch {
	case score >= 0.75:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AuditEntry is a single time-ordered entry in a request's audit trail.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	AgentID   string    `json:"agent_id"`
}

// EnrichedAlternative is an alternative drug option enriched with coverage
// context and a human-readable rationale.
type EnrichedAlternative struct {
	DrugName          string         `json:"drug_name"`
	CoverageStatus    CoverageStatus `json:"coverage_status"`
	Tier              int            `json:"tier"`
	PriorAuthRequired bool           `json:"prior_auth_required"`
	Rationale         string         `json:"rationale"`
}

// AnalysisResult is the final artifact returned to callers.
type AnalysisResult struct {
	DecisionID          string                 `json:"decision_id"`
	PatientID            string                 `json:"patient_id"`
	DrugName             string                 `json:"drug_name"`
	InsurerID            string                 `json:"insurer_id"`
	Decision             Decision               `json:"decision"`
	ApprovalLikelihood   float64                `json:"approval_likelihood"`
	ConfidenceScore      float64                `json:"confidence_score"`
	ConfidenceLevel      ConfidenceLevel        `json:"confidence_level"`
	ClinicalRationale    string                 `json:"clinical_rationale"`
	EvidenceItems        []EvidenceItem         `json:"evidence_items"`
	IdentifiedGaps       []string               `json:"identified_gaps,omitempty"`
	Recommendations      []string               `json:"recommendations"`
	AlternativeOptions   []EnrichedAlternative  `json:"alternative_options,omitempty"`
	ProcessingTimeMS     int64                  `json:"processing_time_ms"`
	LLMTokensUsed        int                    `json:"llm_tokens_used"`
	AnalysisTimestamp    time.Time              `json:"analysis_timestamp"`
	AuditTrail           []AuditEntry           `json:"audit_trail"`
	Source               string                 `json:"source,omitempty"` // "live" or "cache"
	CacheAgeSeconds       *float64              `json:"cache_age_seconds,omitempty"`
	ModelTierUsed         string                 `json:"model_tier_used,omitempty"`
}
