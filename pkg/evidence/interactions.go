package evidence

import (
	"fmt"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// interactionSeverityScore maps a highest-observed interaction severity to
// a [0,1] risk score used to decide whether the aggregate item supports or
// opposes approval.
var interactionSeverityScore = map[domain.InteractionSeverity]float64{
	domain.SeverityContraindicated: 1.0,
	domain.SeverityMajor:           0.8,
	domain.SeverityModerate:        0.5,
	domain.SeverityMinor:           0.2,
	domain.SeverityNone:            0.0,
	domain.SeverityUnknown:         0.0,
}

// interactionEvidence builds the single aggregate drug_interactions item.
// Returns nil when no interaction check was performed (results is nil; a
// non-nil empty slice means the check ran and found nothing).
func interactionEvidence(results []domain.InteractionResult, ts time.Time) *domain.EvidenceItem {
	if results == nil {
		return nil
	}

	highest := domain.HighestSeverity(results)
	score := interactionSeverityScore[highest]

	var content string
	var confidence float64
	supports := true
	if len(results) == 0 {
		content = "No significant drug interactions identified"
		confidence = 0.9
	} else {
		plural := ""
		if len(results) > 1 {
			plural = "s"
		}
		content = fmt.Sprintf("%d drug interaction%s detected with %s severity", len(results), plural, highest)
		supports = score < 0.5
		confidence = 0.85
	}

	item := domain.NewEvidenceItem(
		"drug_interaction_analysis",
		domain.EvidenceInteraction,
		content,
		Weights["drug_interactions"],
		supports,
		confidence,
		ts,
	)
	return &item
}
