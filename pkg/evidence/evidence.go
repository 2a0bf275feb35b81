// Package evidence implements the Evidence Engine: given an assembled
// domain.AnalysisContext, it produces an ordered sequence of
// domain.EvidenceItem values plus a preliminary approval score and a
// confidence score, all derived from a fixed weight schedule applied across
// six evidence categories (policy criteria, guideline support, clinical
// appropriateness, drug interactions, drug safety, patient history).
package evidence

import "time"

// Weights is the per-category quota of the weighted score; it sums to 1.0.
// guideline_support's quota is split evenly across up to 3 guideline items.
var Weights = map[string]float64{
	"policy_criteria_met":      0.30,
	"guideline_support":        0.25,
	"clinical_appropriateness": 0.20,
	"drug_interactions":        0.10,
	"drug_safety":              0.10,
	"patient_history":          0.05,
}

// CriterionPenaltyWeight is the additional evidence weight assigned to each
// individually unmet criterion, indexed by severity. These are added on top
// of (not instead of) the policy_criteria_met category quota.
var CriterionPenaltyWeight = map[string]float64{
	"critical": 0.20,
	"moderate": 0.15,
	"minor":    0.10,
}

// Engine computes evidence items and scores from an AnalysisContext. Clock
// is overridable in tests; a nil Clock defaults to time.Now.
type Engine struct {
	Clock func() time.Time
}

// NewEngine builds an Engine with the given clock, defaulting to time.Now.
func NewEngine(clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{Clock: clock}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}
