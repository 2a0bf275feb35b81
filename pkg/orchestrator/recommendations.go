package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
)

const maxRecommendations = 5

// buildRecommendations assembles the decision-dependent recommendation
// list, capped at maxRecommendations.
func buildRecommendations(decision domain.Decision, ac domain.AnalysisContext, alternatives []domain.EnrichedAlternative) []string {
	switch decision {
	case domain.DecisionApprove, domain.DecisionUrgentReview:
		return approvalRecommendations(ac)
	case domain.DecisionDeny:
		return denialRecommendations(ac, alternatives)
	default:
		return pendRecommendations(ac)
	}
}

func cap5(items []string) []string {
	if len(items) > maxRecommendations {
		return items[:maxRecommendations]
	}
	return items
}

func approvalRecommendations(ac domain.AnalysisContext) []string {
	out := []string{fmt.Sprintf("Prescribe %s per approved indication", ac.DrugName)}
	if ac.DrugInfo != nil {
		for i, m := range ac.DrugInfo.Monitoring {
			if i >= 3 {
				break
			}
			out = append(out, "Monitor: "+m)
		}
		if dosing := dosingGuidance(ac); dosing != "" {
			out = append(out, dosing)
		}
	}
	return cap5(out)
}

func dosingGuidance(ac domain.AnalysisContext) string {
	if ac.DrugInfo == nil || len(ac.DrugInfo.Dosing) == 0 {
		return ""
	}
	for indication, dosing := range ac.DrugInfo.Dosing {
		if initial, ok := dosing["initial"]; ok {
			return fmt.Sprintf("Initial dosing for %s: %s", indication, initial)
		}
	}
	return ""
}

func denialRecommendations(ac domain.AnalysisContext, alternatives []domain.EnrichedAlternative) []string {
	var out []string
	if ac.CoverageDecision != nil {
		for _, eval := range ac.CoverageDecision.Evaluations {
			if eval.Met() {
				continue
			}
			if rec := policysvc.RecommendationFor(eval.Criterion); rec != "" {
				out = append(out, rec)
			}
		}
	}
	for i, alt := range alternatives {
		if i >= 2 {
			break
		}
		out = append(out, fmt.Sprintf("Consider covered alternative: %s", alt.DrugName))
	}
	if len(out) == 0 {
		out = append(out, "Review denial rationale with prescriber and resubmit with additional documentation")
	}
	return cap5(out)
}

func pendRecommendations(ac domain.AnalysisContext) []string {
	var out []string
	if ac.CoverageDecision != nil {
		for _, eval := range ac.CoverageDecision.Evaluations {
			if eval.Met() {
				continue
			}
			if rec := policysvc.RecommendationFor(eval.Criterion); rec != "" {
				out = append(out, rec)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "Submit recent lab results and clinical notes supporting medical necessity")
	}
	return cap5(out)
}

// identifiedGaps surfaces the unmet-criterion messages verbatim for any
// decision that isn't a clean approval, so a reviewer can see exactly what
// was missing without re-deriving it from the coverage decision.
func identifiedGaps(decision domain.Decision, ac domain.AnalysisContext) []string {
	if decision == domain.DecisionApprove {
		return nil
	}
	if ac.CoverageDecision == nil {
		return nil
	}
	var gaps []string
	for _, eval := range ac.CoverageDecision.Evaluations {
		if !eval.Met() {
			gaps = append(gaps, strings.TrimSpace(eval.Message))
		}
	}
	return gaps
}
