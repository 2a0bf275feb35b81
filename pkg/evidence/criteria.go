package evidence

import (
	"fmt"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// criteriaEvidence builds the policy_criteria_met category: one aggregate
// item reflecting whether all required criteria were met, plus one
// additional penalty item per individually unmet criterion (severity-weighted,
// on top of the category quota).
func criteriaEvidence(decision *domain.CoverageDecision, ts time.Time) []domain.EvidenceItem {
	if decision == nil {
		return nil
	}

	reason := "all required criteria met"
	if !decision.CriteriaMet && len(decision.Recommendations) > 0 {
		reason = decision.Recommendations[0]
	}
	items := []domain.EvidenceItem{
		domain.NewEvidenceItem(
			"policy_analysis",
			domain.EvidenceCriteriaCheck,
			fmt.Sprintf("Insurance policy criteria %s: %s", metOrNot(decision.CriteriaMet), reason),
			Weights["policy_criteria_met"],
			decision.CriteriaMet,
			0.95,
			ts,
		),
	}

	for _, eval := range decision.Evaluations {
		if eval.Met() {
			continue
		}
		weight := CriterionPenaltyWeight[string(eval.Criterion.Severity)]
		if weight == 0 {
			weight = CriterionPenaltyWeight["moderate"]
		}

		content := fmt.Sprintf("Unmet (%s): %s", eval.Criterion.Severity, eval.Criterion.Description)
		if eval.Criterion.Kind == domain.CriterionQuantityLimit {
			content = eval.Criterion.Description
			if content == "" {
				content = "Quantity limit exceeded"
			}
		}

		items = append(items, domain.NewEvidenceItem(
			"policy_analysis",
			domain.EvidenceCriteriaCheck,
			content,
			weight,
			false,
			0.9,
			ts,
		))
	}

	return items
}

func metOrNot(met bool) string {
	if met {
		return "met"
	}
	return "not met"
}
