package memory

import "github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"

// DrugPattern summarizes how often a drug appears across stored documents
// and how many distinct workflows referenced it.
type DrugPattern struct {
	DocumentCount int
	WorkflowCount int
}

// UsageAnalytics is a derived, side-effect-free snapshot of the collection.
type UsageAnalytics struct {
	Total             int
	ByType            map[string]int
	ByDrug            map[string]DrugPattern
	CrossWorkflowCount int
	QualityBands       map[string]int // "high" (ref>=2), "single" (ref==1)
}

// UsageAnalytics computes usage_analytics fully from metadata, with no side
// effects on the collection.
func (c *Collection) UsageAnalytics() UsageAnalytics {
	docs := c.All()

	analytics := UsageAnalytics{
		ByType:       make(map[string]int),
		ByDrug:       make(map[string]DrugPattern),
		QualityBands: map[string]int{"high": 0, "single": 0},
	}
	drugWorkflows := make(map[string]map[string]struct{})

	for _, d := range docs {
		analytics.Total++
		analytics.ByType[d.Metadata.DocumentType]++

		refCount := d.Metadata.ReferenceCount()
		if refCount >= 2 {
			analytics.QualityBands["high"]++
			analytics.CrossWorkflowCount++
		} else {
			analytics.QualityBands["single"]++
		}

		for _, drug := range d.Metadata.DrugNamesContext.Slice() {
			pattern := analytics.ByDrug[drug]
			pattern.DocumentCount++
			analytics.ByDrug[drug] = pattern
			if drugWorkflows[drug] == nil {
				drugWorkflows[drug] = make(map[string]struct{})
			}
			for _, wf := range d.Metadata.ReferencedInWorkflows.Slice() {
				drugWorkflows[drug][wf] = struct{}{}
			}
		}
	}

	for drug, workflows := range drugWorkflows {
		pattern := analytics.ByDrug[drug]
		pattern.WorkflowCount = len(workflows)
		analytics.ByDrug[drug] = pattern
	}

	return analytics
}

// documentsByCanonicalOrder returns docs sorted for deterministic analytics
// iteration, independent of map ordering.
func documentsByCanonicalOrder(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
