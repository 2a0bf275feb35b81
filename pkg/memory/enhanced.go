package memory

import (
	"strings"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// EnhancedCollection holds a base Collection and layers read-only analytics
// over it. It never mutates the base store: every analytical method is a
// pure function of Collection.All() plus its own arguments, matching the
// composition redesign ("the enhanced store holds a base store... no
// virtual dispatch needed").
type EnhancedCollection struct {
	base *Collection
}

// NewEnhancedCollection wraps an existing Collection with analytics.
func NewEnhancedCollection(base *Collection) *EnhancedCollection {
	return &EnhancedCollection{base: base}
}

// Base exposes the underlying Collection for callers that only need the
// plain store surface (upsert, FindSimilar, UsageAnalytics).
func (e *EnhancedCollection) Base() *Collection { return e.base }

// TemporalPattern summarizes how attention to an entity has shifted over
// the life of the collection.
type TemporalPattern struct {
	Entity        string
	Trend         string // "increasing_attention", "declining_attention", "stable"
	DocumentCount int
	FirstSeen     time.Time
	LastSeen      time.Time
}

// documentsMentioning returns every document whose drug_names_context
// contains entity (case-insensitive), sorted by FirstSeen ascending.
func documentsMentioning(docs []domain.Document, entity string) []domain.Document {
	var out []domain.Document
	for _, d := range docs {
		if containsFold(d.Metadata.DrugNamesContext.Slice(), entity) {
			out = append(out, d)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Metadata.FirstSeen.After(out[j].Metadata.FirstSeen); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func containsFold(items []string, needle string) bool {
	for _, it := range items {
		if strings.EqualFold(it, needle) {
			return true
		}
	}
	return false
}

// TemporalPatterns orders each entity's documents by first-seen time, sums
// the documents' reference counts in the earlier vs. later half, and flags
// whether attention is increasing, declining, or stable.
func (e *EnhancedCollection) TemporalPatterns(entities []string) []TemporalPattern {
	docs := e.base.All()
	var patterns []TemporalPattern
	for _, entity := range entities {
		matches := documentsMentioning(docs, entity)
		if len(matches) == 0 {
			continue
		}
		mid := len(matches) / 2
		earlyRefs, lateRefs := 0, 0
		for i, d := range matches {
			if i < mid {
				earlyRefs += d.Metadata.ReferenceCount()
			} else {
				lateRefs += d.Metadata.ReferenceCount()
			}
		}
		trend := "stable"
		switch {
		case lateRefs > earlyRefs:
			trend = "increasing_attention"
		case lateRefs < earlyRefs:
			trend = "declining_attention"
		}
		patterns = append(patterns, TemporalPattern{
			Entity:        entity,
			Trend:         trend,
			DocumentCount: len(matches),
			FirstSeen:     matches[0].Metadata.FirstSeen,
			LastSeen:      matches[len(matches)-1].Metadata.LastSeen,
		})
	}
	return patterns
}

// Contradiction flags an entity whose stored evidence disagrees with
// itself: some documents carry clearly favorable language, others clearly
// unfavorable, about the same drug.
type Contradiction struct {
	Entity          string
	SupportingCount int
	OpposingCount   int
	Severity        string // "low", "moderate", "high"
	ExampleDocIDs   []string
}

var contradictionPositiveTerms = []string{"effective", "well-tolerated", "recommended", "beneficial", "safe"}
var contradictionNegativeTerms = []string{"contraindicated", "adverse", "harmful", "discontinued", "black box warning"}

func countTermHits(text string, terms []string) int {
	text = strings.ToLower(text)
	count := 0
	for _, t := range terms {
		count += strings.Count(text, t)
	}
	return count
}

// Contradictions scans documents mentioning each entity for simultaneous
// strongly-positive and strongly-negative language, a signal that the
// collection holds conflicting evidence worth a human's attention.
func (e *EnhancedCollection) Contradictions(entities []string) []Contradiction {
	docs := e.base.All()
	var out []Contradiction
	for _, entity := range entities {
		matches := documentsMentioning(docs, entity)
		supporting, opposing := 0, 0
		var examples []string
		for _, d := range matches {
			pos := countTermHits(d.Body, contradictionPositiveTerms)
			neg := countTermHits(d.Body, contradictionNegativeTerms)
			if pos > 0 {
				supporting++
			}
			if neg > 0 {
				opposing++
				examples = append(examples, d.ID)
			}
		}
		if supporting == 0 || opposing == 0 {
			continue
		}
		severity := "low"
		switch {
		case opposing >= supporting:
			severity = "high"
		case float64(opposing) >= float64(supporting)*0.5:
			severity = "moderate"
		}
		out = append(out, Contradiction{
			Entity: entity, SupportingCount: supporting, OpposingCount: opposing,
			Severity: severity, ExampleDocIDs: examples,
		})
	}
	return out
}

// ResearchGap flags an entity the collection knows too little about, or
// has not revisited recently enough to trust.
type ResearchGap struct {
	Entity     string
	GapType    string // "no_evidence", "single_source", "stale_evidence"
	Suggestion string
}

const staleEvidenceAge = 180 * 24 * time.Hour

// ResearchGaps identifies entities with no stored evidence, evidence from
// only a single workflow, or evidence old enough to need revisiting.
func (e *EnhancedCollection) ResearchGaps(entities []string, now time.Time) []ResearchGap {
	docs := e.base.All()
	var gaps []ResearchGap
	for _, entity := range entities {
		matches := documentsMentioning(docs, entity)
		workflows := make(map[string]struct{})
		for _, d := range matches {
			for _, wf := range d.Metadata.ReferencedInWorkflows.Slice() {
				workflows[wf] = struct{}{}
			}
		}
		switch {
		case len(matches) == 0:
			gaps = append(gaps, ResearchGap{
				Entity: entity, GapType: "no_evidence",
				Suggestion: "No stored evidence for " + entity + "; run a fresh literature search.",
			})
		case len(workflows) == 1:
			gaps = append(gaps, ResearchGap{
				Entity: entity, GapType: "single_source",
				Suggestion: "Only one workflow has evidence for " + entity + "; corroborate with an independent search.",
			})
		default:
			newest := matches[0].Metadata.LastSeen
			for _, d := range matches {
				if d.Metadata.LastSeen.After(newest) {
					newest = d.Metadata.LastSeen
				}
			}
			if now.Sub(newest) > staleEvidenceAge {
				gaps = append(gaps, ResearchGap{
					Entity: entity, GapType: "stale_evidence",
					Suggestion: "Evidence for " + entity + " has not been refreshed in over 6 months.",
				})
			}
		}
	}
	return gaps
}

// CrossWorkflowInsight describes a pattern visible only by looking across
// multiple workflows' stored outputs.
type CrossWorkflowInsight struct {
	Description    string
	InvolvedDrugs  []string
	WorkflowCount  int
}

// CrossWorkflowInsights surfaces drug-class clusters: groups of drugs that
// keep turning up in the same set of workflows, suggesting the existing
// evidence for one can inform review of another in the same class.
func (e *EnhancedCollection) CrossWorkflowInsights(drugClass string) []CrossWorkflowInsight {
	docs := e.base.All()
	workflowsByDrug := make(map[string]map[string]struct{})
	for _, d := range docs {
		for _, drug := range d.Metadata.DrugNamesContext.Slice() {
			if workflowsByDrug[drug] == nil {
				workflowsByDrug[drug] = make(map[string]struct{})
			}
			for _, wf := range d.Metadata.ReferencedInWorkflows.Slice() {
				workflowsByDrug[drug][wf] = struct{}{}
			}
		}
	}

	var shared []string
	union := make(map[string]struct{})
	for drug, workflows := range workflowsByDrug {
		if len(workflows) < 2 {
			continue
		}
		shared = append(shared, drug)
		for wf := range workflows {
			union[wf] = struct{}{}
		}
	}
	if len(shared) < 2 {
		return nil
	}
	shared = sortedKeysString(toSet(shared))

	insight := CrossWorkflowInsight{
		Description:   "Multiple drugs" + classSuffix(drugClass) + " share cross-workflow evidence; reuse class-level findings when evaluating related requests.",
		InvolvedDrugs: shared,
		WorkflowCount: len(union),
	}
	return []CrossWorkflowInsight{insight}
}

func classSuffix(drugClass string) string {
	if drugClass == "" {
		return ""
	}
	return " in the " + drugClass + " class"
}

func toSet(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
