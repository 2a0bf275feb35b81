package drugsvc

import (
	"sort"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// checkPair returns the interaction between two normalized drug names, if
// either catalog entry records one. Interaction data may be recorded on
// either drug's entry (or both), so both directions are checked; the first
// drug's record wins when both carry one.
func (s *Service) checkPair(a, b string) (domain.InteractionResult, bool) {
	if entry, _, ok := s.catalog.lookup(a); ok {
		for _, ix := range entry.Interactions {
			if ix.WithDrug == b {
				return toResult(a, b, ix), true
			}
		}
	}
	if entry, _, ok := s.catalog.lookup(b); ok {
		for _, ix := range entry.Interactions {
			if ix.WithDrug == a {
				return toResult(b, a, ix), true
			}
		}
	}
	return domain.InteractionResult{}, false
}

func toResult(from, to string, ix catalogInteraction) domain.InteractionResult {
	management := ix.Management
	if management == "" {
		management = domain.DefaultManagement[ix.Severity]
	}
	return domain.InteractionResult{
		Pair:        domain.NewDrugPair(from, to),
		Severity:    ix.Severity,
		Description: ix.Description,
		Management:  management,
	}
}

// Interactions checks every unique pair among the given (already
// normalized) drug names and returns every interaction found, sorted by
// descending severity then by drug pair for determinism.
func (s *Service) Interactions(names []string) []domain.InteractionResult {
	seen := make(map[domain.DrugPair]struct{})
	var results []domain.InteractionResult

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pair := domain.NewDrugPair(names[i], names[j])
			if _, dup := seen[pair]; dup {
				continue
			}
			seen[pair] = struct{}{}
			if r, ok := s.checkPair(names[i], names[j]); ok {
				results = append(results, r)
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Severity.Level() != results[j].Severity.Level() {
			return results[i].Severity.Level() > results[j].Severity.Level()
		}
		if results[i].Pair.A != results[j].Pair.A {
			return results[i].Pair.A < results[j].Pair.A
		}
		return results[i].Pair.B < results[j].Pair.B
	})
	return results
}

// ClinicalSignificance summarizes the clinical weight of the highest
// interaction severity found across a set of results.
func ClinicalSignificance(highest domain.InteractionSeverity) string {
	switch highest {
	case domain.SeverityContraindicated, domain.SeverityMajor:
		return "Clinically significant - may require therapy modification"
	case domain.SeverityModerate:
		return "Potentially significant - monitor therapy closely"
	case domain.SeverityNone:
		return "No interactions found"
	default:
		return "Minor clinical significance - monitor as appropriate"
	}
}
