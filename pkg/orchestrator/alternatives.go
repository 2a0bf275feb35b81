package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/policysvc"
)

const maxAlternatives = 3

// crossClassSuggestions gives a cross-class fallback recommendation, keyed
// by a drug-class substring, when a denial's policy alternatives don't fill
// all available slots. The set below is grounded on the bundled catalog's
// SGLT2 family; other classes fall back to silence rather than a guess.
var crossClassSuggestions = map[string]string{
	"SGLT2": "Consider a GLP-1 receptor agonist as a cross-class alternative pending endocrinology input",
}

// buildAlternatives fetches up to maxAlternatives enriched alternatives for
// drugName from the policy service and, if slots remain and the drug's
// class has a known cross-class fallback, appends one cross-class
// suggestion as a synthetic alternative entry.
func (o *Orchestrator) buildAlternatives(insurerID, drugName, drugClass string) []domain.EnrichedAlternative {
	enriched, _, err := o.Policy.Alternatives(insurerID, drugName)
	if err != nil {
		return nil
	}

	out := make([]domain.EnrichedAlternative, 0, maxAlternatives+1)
	for _, alt := range enriched {
		if len(out) >= maxAlternatives {
			break
		}
		out = append(out, domain.EnrichedAlternative{
			DrugName:          alt.DrugName,
			CoverageStatus:    alt.Status,
			Tier:              alt.Tier,
			PriorAuthRequired: alt.RequiresPA,
			Rationale:         alternativeRationale(alt),
		})
	}

	if len(out) < maxAlternatives {
		upperClass := strings.ToUpper(drugClass)
		for class, suggestion := range crossClassSuggestions {
			if strings.Contains(upperClass, class) {
				out = append(out, domain.EnrichedAlternative{Rationale: suggestion})
				break
			}
		}
	}
	return out
}

func alternativeRationale(alt policysvc.EnrichedAlternative) string {
	if !alt.HasPolicy {
		return "Listed as a policy alternative; coverage details not on file"
	}
	if alt.RequiresPA {
		return fmt.Sprintf("Covered at tier %d, prior authorization required", alt.Tier)
	}
	return fmt.Sprintf("Covered at tier %d, no prior authorization required", alt.Tier)
}
