package evidence

import "github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"

// WeightedScore computes the preliminary approval score: the
// confidence-weighted fraction of total weight that supports approval.
// Returns 0.5 (neutral) when there is no evidence or it carries no weight.
func WeightedScore(items []domain.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0.5
	}

	var totalWeight, weightedSum float64
	for _, item := range items {
		totalWeight += item.Weight
		if item.SupportsApproval {
			weightedSum += item.Weight * item.Confidence
		}
	}
	if totalWeight == 0 {
		return 0.5
	}
	return weightedSum / totalWeight
}

// completenessInputs are the 7 context fields contributing to
// data_completeness, evaluated in ConfidenceScore.
type completenessInputs struct {
	hasPatient     bool
	hasDrugInfo    bool
	hasPolicy      bool
	hasGuidelines  bool
	hasCriteria    bool
	hasLabs        bool
	hasDrugSafety  bool
}

func (c completenessInputs) fraction() float64 {
	checks := []bool{c.hasPatient, c.hasDrugInfo, c.hasPolicy, c.hasGuidelines, c.hasCriteria, c.hasLabs, c.hasDrugSafety}
	n := 0
	for _, ok := range checks {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(checks))
}

// ConfidenceScore blends average evidence confidence (40%), context data
// completeness (40%), and a U-shaped consensus factor (20%) favoring strong
// agreement in either direction. Never claims full (1.0) confidence.
func ConfidenceScore(items []domain.EvidenceItem, completeness completenessInputs) float64 {
	if len(items) == 0 {
		return 0.1
	}

	var confidenceSum float64
	supporting := 0
	for _, item := range items {
		confidenceSum += item.Confidence
		if item.SupportsApproval {
			supporting++
		}
	}
	avgConfidence := confidenceSum / float64(len(items))

	dataCompleteness := completeness.fraction()

	consensusRatio := float64(supporting) / float64(len(items))
	delta := 0.5 - consensusRatio
	if delta < 0 {
		delta = -delta
	}
	consensus := 1.0 - 2*delta

	confidence := avgConfidence*0.4 + dataCompleteness*0.4 + consensus*0.2
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}
