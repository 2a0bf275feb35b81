package policysvc

import "github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"

// CheckCoverage evaluates every criterion attached to policy against ev,
// folding in the top-level quantity limit as an implicit criterion, and
// returns the aggregate decision. Every unmet criterion is reported, but
// only an unmet criterion with Severity == SeverityCritical blocks
// approval (criteria_met = no critical unmet); required-but-moderate/minor
// criteria surface as recommendations without denying the request.
func CheckCoverage(policy domain.InsurerPolicy, ev PatientEvidence) domain.CoverageDecision {
	if !policy.Status.RequiresPA() || len(policy.Criteria) == 0 {
		return domain.CoverageDecision{
			CriteriaMet:     true,
			Recommendations: []string{"No prior authorization required for this medication"},
		}
	}

	var evaluations []domain.CriterionEvaluation
	var recommendations []string
	criticalUnmet := 0

	for _, c := range policy.Criteria {
		eval := Evaluate(c, ev)
		evaluations = append(evaluations, eval)
		if !eval.Met() {
			if c.Required && c.Severity == domain.SeverityCritical {
				criticalUnmet++
			}
			if rec := RecommendationFor(c); rec != "" {
				recommendations = append(recommendations, rec)
			}
		}
	}

	if policy.QuantityLimits != nil {
		qc := domain.Criterion{
			ID:              "quantity-limits",
			Description:     "Quantity limits per fill",
			Kind:            domain.CriterionQuantityLimit,
			Severity:        domain.SeverityCritical,
			Required:        true,
			MaxUnitsPerFill: &policy.QuantityLimits.MaxUnitsPerFill,
		}
		eval := Evaluate(qc, ev)
		evaluations = append(evaluations, eval)
		if !eval.Met() {
			criticalUnmet++
			recommendations = append(recommendations, "Reduce quantity to the maximum allowed per fill")
		}
	}

	criteriaMet := criticalUnmet == 0
	if criteriaMet {
		recommendations = append([]string{"Prior authorization approved: all required criteria met"}, recommendations...)
	} else {
		recommendations = append([]string{"Prior authorization denied: required criteria not met"}, recommendations...)
	}

	return domain.CoverageDecision{
		CriteriaMet:     criteriaMet,
		Evaluations:     evaluations,
		Recommendations: recommendations,
	}
}
