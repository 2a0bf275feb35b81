package policysvc

import "github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"

// InsurerComparison is one insurer's coverage summary for a drug, or the
// "not covered" zero value when the insurer carries no policy for it.
type InsurerComparison struct {
	Status        domain.CoverageStatus
	Tier          int
	MonthlyCost   float64
	HasMonthlyCost bool
	RequiresPA    bool
	CriteriaCount int
}

// BestCoverage is the highest-scoring insurer identified by ScoreCoverage.
type BestCoverage struct {
	Insurer string
	Details InsurerComparison
	Score   int
}

// ScoreCoverage weighs an InsurerComparison into a single integer score:
// coverage status carries the most weight, tier and PA-free status add a
// smaller bonus, and lower monthly cost adds a smaller bonus still. Higher
// is better.
func ScoreCoverage(c InsurerComparison) int {
	score := c.Status.Rank() * 10

	if c.Tier > 0 {
		score += (5 - c.Tier) * 3
	}
	if !c.RequiresPA {
		score += 8
	}
	if c.HasMonthlyCost {
		switch {
		case c.MonthlyCost < 50:
			score += 5
		case c.MonthlyCost < 100:
			score += 3
		case c.MonthlyCost < 500:
			score += 1
		}
	}
	return score
}

// IdentifyBestCoverage scans a per-insurer comparison map and returns the
// insurer with the highest ScoreCoverage, or false if comparison is empty.
func IdentifyBestCoverage(comparison map[string]InsurerComparison) (BestCoverage, bool) {
	best := BestCoverage{Score: -1}
	found := false
	for insurer, details := range comparison {
		score := ScoreCoverage(details)
		if score > best.Score || (score == best.Score && found && insurer < best.Insurer) {
			best = BestCoverage{Insurer: insurer, Details: details, Score: score}
			found = true
		}
	}
	return best, found
}
