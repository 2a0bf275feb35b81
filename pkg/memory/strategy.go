package memory

import (
	"context"
	"strings"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// ResearchStrategy is the recommended depth of further research for a
// drug/indication pair, derived from how much existing evidence the
// collection already holds.
type ResearchStrategy string

const (
	StrategyComprehensive ResearchStrategy = "comprehensive"
	StrategyFocused       ResearchStrategy = "focused"
	StrategyUpdate        ResearchStrategy = "update"
)

// ResearchEntities is the extracted-entity input to ResearchRecommendations:
// the drug under review plus the class/mechanism/indication queries used to
// widen the similarity search beyond an exact-name match.
type ResearchEntities struct {
	DrugName   string
	DrugClass  string
	Mechanism  string
	Indication string
}

// searchWeight pairs a query with the weight its hits contribute to a
// candidate's combined score.
type searchWeight struct {
	query  string
	weight float64
}

// ResearchRecommendation is the result of ResearchRecommendations.
type ResearchRecommendation struct {
	Strategy                   ResearchStrategy
	ExistingEvidence           []domain.Document
	SimilarDrugs               []string
	RelatedDocuments           []domain.Document
	PriorityResearch           []string
	GapAddressing              []string
	CrossWorkflowOpportunities []string
	Confidence                 float64
}

const researchSearchLimit = 10

// ResearchRecommendations runs four weighted similarity searches (direct
// drug, class, mechanism, indication queries weighted 1.0/0.8/0.7/0.6),
// combines their hits into scored candidates, and picks a research depth
// strategy from the signal table: total matched documents, distinct
// similar drugs, best distance, drug-class-specific bonuses, and evidence
// type diversity. Ties are broken by declaration order (comprehensive,
// focused, update).
func (e *EnhancedCollection) ResearchRecommendations(ctx context.Context, entities ResearchEntities, now time.Time) ResearchRecommendation {
	searches := []searchWeight{
		{entities.DrugName, 1.0},
		{entities.DrugClass, 0.8},
		{entities.Mechanism, 0.7},
		{entities.Indication, 0.6},
	}

	type candidate struct {
		doc   domain.Document
		score float64
	}
	candidates := make(map[string]*candidate)
	bestDistance := 1.0

	for _, sw := range searches {
		if strings.TrimSpace(sw.query) == "" {
			continue
		}
		hits, err := e.base.FindSimilar(ctx, sw.query, researchSearchLimit, nil, 0, 0, now)
		if err != nil {
			continue
		}
		for _, hit := range hits {
			if hit.CosineDistance < bestDistance {
				bestDistance = hit.CosineDistance
			}
			score := (1 - hit.CosineDistance) * sw.weight
			if c, ok := candidates[hit.Document.ID]; ok {
				c.score += score
			} else {
				candidates[hit.Document.ID] = &candidate{doc: hit.Document, score: score}
			}
		}
	}

	var related []domain.Document
	evidenceTypes := make(map[string]struct{})
	similarDrugs := make(map[string]struct{})
	for _, c := range candidates {
		related = append(related, c.doc)
		evidenceTypes[c.doc.Metadata.DocumentType] = struct{}{}
		for _, drug := range c.doc.Metadata.DrugNamesContext.Slice() {
			if !strings.EqualFold(drug, entities.DrugName) {
				similarDrugs[drug] = struct{}{}
			}
		}
	}
	related = documentsByCanonicalOrder(related)

	totalMatched := len(candidates)
	sglt2Like := strings.Contains(strings.ToLower(entities.DrugClass), "sglt2")

	scores := map[ResearchStrategy]float64{StrategyComprehensive: 0, StrategyFocused: 0, StrategyUpdate: 0}
	confidenceGain := 0.0

	add := func(strategy ResearchStrategy, amount float64) {
		scores[strategy] += amount
	}

	switch {
	case totalMatched >= 15:
		add(StrategyFocused, 0.3)
		add(StrategyUpdate, 0.4)
	case totalMatched >= 5:
		add(StrategyFocused, 0.4)
		add(StrategyUpdate, 0.2)
	default:
		add(StrategyComprehensive, 0.5)
	}

	switch {
	case len(similarDrugs) >= 3:
		add(StrategyFocused, 0.4)
		add(StrategyUpdate, 0.3)
	case len(similarDrugs) >= 1:
		add(StrategyFocused, 0.3)
		add(StrategyUpdate, 0.2)
	}

	switch {
	case bestDistance <= 0.12:
		add(StrategyUpdate, 0.3)
	case bestDistance <= 0.20:
		add(StrategyFocused, 0.3)
	case bestDistance > 0.40:
		add(StrategyComprehensive, 0.2)
	}

	if sglt2Like && len(similarDrugs) >= 2 {
		add(StrategyFocused, 0.2)
		add(StrategyUpdate, 0.1)
	}

	if len(evidenceTypes) >= 3 {
		add(StrategyUpdate, 0.1)
	}

	order := []ResearchStrategy{StrategyComprehensive, StrategyFocused, StrategyUpdate}
	best := order[0]
	for _, s := range order[1:] {
		if scores[s] > scores[best] {
			best = s
		}
	}
	confidenceGain = scores[best]

	confidence := 0.5 + confidenceGain
	if confidence > 0.95 {
		confidence = 0.95
	}

	gapEntities := append([]string{entities.DrugName}, sortedKeysString(similarDrugs)...)
	gaps := e.ResearchGaps(gapEntities, now)
	var priorityResearch, gapAddressing []string
	for _, g := range gaps {
		gapAddressing = append(gapAddressing, g.Suggestion)
		if g.GapType == "no_evidence" || g.GapType == "stale_evidence" {
			priorityResearch = append(priorityResearch, g.Entity)
		}
	}

	var crossWorkflow []string
	for _, insight := range e.CrossWorkflowInsights(entities.DrugClass) {
		crossWorkflow = append(crossWorkflow, insight.Description)
	}

	return ResearchRecommendation{
		Strategy:                   best,
		ExistingEvidence:           related,
		SimilarDrugs:               sortedKeysString(similarDrugs),
		RelatedDocuments:           related,
		PriorityResearch:           priorityResearch,
		GapAddressing:              gapAddressing,
		CrossWorkflowOpportunities: crossWorkflow,
		Confidence:                 confidence,
	}
}

func sortedKeysString(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
