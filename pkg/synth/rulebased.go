package synth

import (
	"fmt"
	"math"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// ruleBasedDecision is the deterministic last resort when both the primary
// and fallback models fail or produce invalid output. It never fails.
func ruleBasedDecision(preliminaryScore float64, evidence []domain.EvidenceItem) Result {
	var decision domain.Decision
	likelihood := math.Round(preliminaryScore * 100)
	switch {
	case preliminaryScore > 0.75:
		decision = domain.DecisionApprove
	case preliminaryScore < 0.25:
		decision = domain.DecisionDeny
	default:
		decision = domain.DecisionPend
		likelihood = 50
	}

	supporting, opposing := 0, 0
	for _, it := range evidence {
		if it.SupportsApproval {
			supporting++
		} else {
			opposing++
		}
	}

	return Result{
		Decision:           decision,
		ApprovalLikelihood: likelihood,
		ConfidenceScore:    0.5,
		ClinicalRationale: fmt.Sprintf(
			"Automated rule-based determination: %d supporting and %d opposing evidence items against a preliminary score of %.2f.",
			supporting, opposing, preliminaryScore,
		),
		ModelTier: ModelTierRuleBased,
	}
}
