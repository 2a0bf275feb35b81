// Package guidelinesvc is the Guideline specialist service: a pure data
// source returning an ordered sequence of clinical-guideline snippets for a
// drug (and, optionally, an indication). It performs no scoring or keyword
// analysis of its own — that belongs to the evidence engine, which treats
// guideline text as an opaque input to score.
package guidelinesvc

import (
	"sort"
	"strings"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// Catalog is the in-memory guideline database, indexed by normalized drug
// name. Read-only after construction.
type Catalog struct {
	byDrug map[string][]domain.GuidelineItem
}

// NewCatalog builds a Catalog from a set of guideline items keyed by
// normalized drug name.
func NewCatalog(byDrug map[string][]domain.GuidelineItem) *Catalog {
	if byDrug == nil {
		byDrug = map[string][]domain.GuidelineItem{}
	}
	return &Catalog{byDrug: byDrug}
}

// BundledCatalog returns a small set of seeded guideline snippets covering
// the drugs in policysvc's bundled catalog, for offline operation without a
// live guideline source configured.
func BundledCatalog() *Catalog {
	return NewCatalog(map[string][]domain.GuidelineItem{
		"empagliflozin": {
			{
				Text:           "Empagliflozin is recommended as a preferred second-line agent in patients with type 2 diabetes and established cardiovascular disease, per current standard of care.",
				RelevanceScore: 0.92,
				Source:         "ADA Standards of Care",
				Year:           2025,
			},
			{
				Text:           "SGLT2 inhibitors are indicated for patients with heart failure with reduced ejection fraction regardless of diabetes status; evidence supports reduction in hospitalization.",
				RelevanceScore: 0.81,
				Source:         "ACC/AHA Heart Failure Guideline",
				Year:           2024,
			},
			{
				Text:           "Use caution in patients with recurrent genitourinary infections; not recommended in patients with eGFR below 20 mL/min/1.73m2.",
				RelevanceScore: 0.64,
				Source:         "KDIGO Diabetes in CKD Guideline",
				Year:           2024,
			},
		},
		"semaglutide": {
			{
				Text:           "GLP-1 receptor agonists are a preferred first-line option for patients with type 2 diabetes and obesity; guidelines recommend early initiation when weight loss is a treatment goal.",
				RelevanceScore: 0.9,
				Source:         "ADA Standards of Care",
				Year:           2025,
			},
			{
				Text:           "Semaglutide is effective and beneficial for cardiovascular risk reduction in patients with established atherosclerotic disease.",
				RelevanceScore: 0.78,
				Source:         "ACC/AHA Guideline",
				Year:           2024,
			},
			{
				Text:           "Contraindicated in patients with a personal or family history of medullary thyroid carcinoma or MEN 2 syndrome; black box warning applies.",
				RelevanceScore: 0.7,
				Source:         "FDA Prescribing Information",
				Year:           2024,
			},
		},
		"metformin": {
			{
				Text:           "Metformin remains the preferred first-line agent for type 2 diabetes in the absence of contraindications; standard of care per all major guidelines.",
				RelevanceScore: 0.95,
				Source:         "ADA Standards of Care",
				Year:           2025,
			},
		},
	})
}

// ForDrug returns the ordered guidelines for a normalized drug name, sorted
// by descending relevance score, optionally filtered to those whose text
// mentions indication (case-insensitive substring). Returns an empty slice
// (never nil) when no guidelines are on file.
func (c *Catalog) ForDrug(drugName, indication string) []domain.GuidelineItem {
	stored := c.byDrug[strings.ToLower(drugName)]
	items := append(make([]domain.GuidelineItem, 0, len(stored)), stored...)
	if indication != "" {
		needle := strings.ToLower(indication)
		filtered := items[:0]
		for _, it := range items {
			if strings.Contains(strings.ToLower(it.Text), needle) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RelevanceScore > items[j].RelevanceScore
	})
	return items
}
