package memory

import (
	"fmt"
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// Article is a retrieved literature snippet (e.g. a PubMed abstract)
// attached to a workflow's outputs.
type Article struct {
	ExternalID string
	Title      string
	Abstract   string
}

// WorkflowOutputs is the input to UpsertWorkflowOutputs: everything a
// workflow run produced that should be remembered.
type WorkflowOutputs struct {
	WorkflowID  string
	UserGoal    string
	DrugName    string
	DiseaseName string
	Articles    []Article
	PDFPath     string
}

// UpsertSummary reports how many documents were newly created vs. merged
// into existing entries.
type UpsertSummary struct {
	New     int
	Updated int
	Total   int
}

// UpsertWorkflowOutputs stores a workflow summary document plus one
// document per article, deduplicating by domain.CanonicalID and merging
// metadata (referenced workflows, user goals, drug/disease context, last
// seen) into any existing entry rather than overwriting it, per the
// Document Collection contract.
func (c *Collection) UpsertWorkflowOutputs(out WorkflowOutputs, now time.Time) UpsertSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := UpsertSummary{}

	summaryBody := fmt.Sprintf("Workflow summary for goal: %s", out.UserGoal)
	if out.DrugName != "" {
		summaryBody += fmt.Sprintf(". Drug: %s", out.DrugName)
	}
	if out.DiseaseName != "" {
		summaryBody += fmt.Sprintf(". Disease: %s", out.DiseaseName)
	}
	summaryID := domain.CanonicalID("workflow", out.WorkflowID)
	if c.upsertOne(summaryID, "workflow_summary", out.WorkflowID, summaryBody, out, now) {
		summary.New++
	} else {
		summary.Updated++
	}

	for _, a := range out.Articles {
		if a.ExternalID == "" {
			continue
		}
		body := fmt.Sprintf("Title: %s\nAbstract: %s", a.Title, a.Abstract)
		id := domain.CanonicalID("pubmed", a.ExternalID)
		if c.upsertOne(id, "pubmed_article", a.ExternalID, body, out, now) {
			summary.New++
		} else {
			summary.Updated++
		}
	}

	summary.Total = len(c.order)
	return summary
}

// upsertOne stores or merges a single document and reports whether it was
// newly created (true) or merged into an existing entry (false). Caller
// must hold c.mu.
func (c *Collection) upsertOne(id, documentType, identifier, body string, out WorkflowOutputs, now time.Time) bool {
	existing, present := c.docs[id]
	if !present {
		doc := domain.Document{
			ID:   id,
			Body: body,
			Metadata: domain.DocumentMetadata{
				DocumentType:          documentType,
				Identifier:            identifier,
				ReferencedInWorkflows: domain.NewStringSet(out.WorkflowID),
				UserGoalsContext:      domain.NewStringSet(out.UserGoal),
				DrugNamesContext:      domain.NewStringSet(out.DrugName),
				DiseaseNamesContext:   domain.NewStringSet(out.DiseaseName),
				FirstSeen:             now,
				LastSeen:              now,
			},
		}
		c.docs[id] = &storedDocument{doc: doc}
		c.order = append(c.order, id)
		return true
	}

	m := &existing.doc.Metadata
	m.ReferencedInWorkflows = m.ReferencedInWorkflows.Union(domain.NewStringSet(out.WorkflowID))
	m.UserGoalsContext = m.UserGoalsContext.Union(domain.NewStringSet(out.UserGoal))
	m.DrugNamesContext = m.DrugNamesContext.Union(domain.NewStringSet(out.DrugName))
	m.DiseaseNamesContext = m.DiseaseNamesContext.Union(domain.NewStringSet(out.DiseaseName))
	m.LastSeen = now
	if m.Identifier == "" {
		m.Identifier = identifier
	}
	if existing.doc.Body == "" {
		existing.doc.Body = body
	}
	return false
}
