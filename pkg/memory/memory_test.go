package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestUpsertWorkflowOutputs_MergeIsIdempotentOnReferenceCount(t *testing.T) {
	c := NewCollection(nil)

	out1 := WorkflowOutputs{
		WorkflowID: "w1", UserGoal: "assess risk", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "12345", Title: "SGLT2 outcomes", Abstract: "..."}},
	}
	summary1 := c.UpsertWorkflowOutputs(out1, day(0))
	assert.Equal(t, 2, summary1.New)
	assert.Equal(t, 0, summary1.Updated)

	out2 := out1
	out2.WorkflowID = "w2"
	summary2 := c.UpsertWorkflowOutputs(out2, day(1))
	assert.Equal(t, 1, summary2.New)
	assert.Equal(t, 1, summary2.Updated)

	doc, ok := c.Get("pubmed_12345")
	require.True(t, ok)
	assert.Equal(t, 2, doc.Metadata.ReferenceCount())
	assert.ElementsMatch(t, []string{"w1", "w2"}, doc.Metadata.ReferencedInWorkflows.Slice())
	assert.Equal(t, day(0), doc.Metadata.FirstSeen)
	assert.Equal(t, day(1), doc.Metadata.LastSeen)
}

func TestFindSimilar_NilEmbedderIsDeterministicByCanonicalID(t *testing.T) {
	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w1", UserGoal: "g", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "2", Title: "B"}, {ExternalID: "1", Title: "A"}}}, day(0))

	hits1, err := c.FindSimilar(context.Background(), "empagliflozin", 10, nil, 0, 0, day(5))
	require.NoError(t, err)
	hits2, err := c.FindSimilar(context.Background(), "empagliflozin", 10, nil, 0, 0, day(5))
	require.NoError(t, err)

	require.Equal(t, len(hits1), len(hits2))
	for i := range hits1 {
		assert.Equal(t, hits1[i].Document.ID, hits2[i].Document.ID)
		assert.Equal(t, hits1[i].AdjustedDistance, hits2[i].AdjustedDistance)
	}
}

func TestFindSimilar_FiltersByDocumentType(t *testing.T) {
	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w1", UserGoal: "g", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(0))

	hits, err := c.FindSimilar(context.Background(), "empagliflozin", 10, map[string]string{"document_type": "workflow_summary"}, 0, 0, day(0))
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, "workflow_summary", h.Document.Metadata.DocumentType)
	}
}

func TestUsageAnalytics_CountsCrossWorkflowAndBands(t *testing.T) {
	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w1", UserGoal: "g", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(0))
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w2", UserGoal: "g", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(1))

	analytics := c.UsageAnalytics()
	assert.Equal(t, 3, analytics.Total)
	assert.Equal(t, 2, analytics.ByDrug["empagliflozin"].WorkflowCount)
	assert.True(t, analytics.CrossWorkflowCount >= 1)
}

func TestResearchRecommendations_PicksComprehensiveWhenCollectionIsSparse(t *testing.T) {
	c := NewCollection(nil)
	enhanced := NewEnhancedCollection(c)

	rec := enhanced.ResearchRecommendations(context.Background(), ResearchEntities{DrugName: "empagliflozin"}, day(0))
	assert.Equal(t, StrategyComprehensive, rec.Strategy)
	assert.GreaterOrEqual(t, rec.Confidence, 0.5)
	assert.LessOrEqual(t, rec.Confidence, 0.95)
}

func TestTemporalPatterns_DetectsIncreasingAttention(t *testing.T) {
	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w1", UserGoal: "g", DrugName: "dapagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(0))
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w2", UserGoal: "g", DrugName: "dapagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(1))
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w3", UserGoal: "g", DrugName: "dapagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(2))

	enhanced := NewEnhancedCollection(c)
	patterns := enhanced.TemporalPatterns([]string{"dapagliflozin"})
	require.Len(t, patterns, 1)
	assert.Equal(t, "dapagliflozin", patterns[0].Entity)
}

func TestResearchGaps_FlagsNoEvidence(t *testing.T) {
	c := NewCollection(nil)
	enhanced := NewEnhancedCollection(c)
	gaps := enhanced.ResearchGaps([]string{"unknown-drug"}, day(0))
	require.Len(t, gaps, 1)
	assert.Equal(t, "no_evidence", gaps[0].GapType)
}

func TestResearchGaps_FlagsSingleSource(t *testing.T) {
	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w1", UserGoal: "g", DrugName: "canagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(0))

	enhanced := NewEnhancedCollection(c)
	gaps := enhanced.ResearchGaps([]string{"canagliflozin"}, day(0))
	require.Len(t, gaps, 1)
	assert.Equal(t, "single_source", gaps[0].GapType)
}

func TestContradictions_FlagsOpposingLanguageAboutSameEntity(t *testing.T) {
	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w1", UserGoal: "g", DrugName: "rosiglitazone",
		Articles: []Article{{ExternalID: "1", Title: "Positive", Abstract: "well-tolerated and effective in trials"}}}, day(0))
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w2", UserGoal: "g", DrugName: "rosiglitazone",
		Articles: []Article{{ExternalID: "2", Title: "Negative", Abstract: "black box warning, adverse cardiac events"}}}, day(1))

	enhanced := NewEnhancedCollection(c)
	contradictions := enhanced.Contradictions([]string{"rosiglitazone"})
	require.Len(t, contradictions, 1)
	assert.Equal(t, "rosiglitazone", contradictions[0].Entity)
}

func TestCrossWorkflowInsights_RequiresAtLeastTwoSharedDrugs(t *testing.T) {
	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{WorkflowID: "w1", UserGoal: "g", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A"}}}, day(0))

	enhanced := NewEnhancedCollection(c)
	insights := enhanced.CrossWorkflowInsights("SGLT2")
	assert.Empty(t, insights)
}
