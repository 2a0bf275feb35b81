package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_SaveThenLoadRoundTripsDocuments(t *testing.T) {
	store, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	c := NewCollection(nil)
	c.UpsertWorkflowOutputs(WorkflowOutputs{
		WorkflowID: "w1", UserGoal: "assess risk", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A", Abstract: "abstract text"}},
	}, day(0))
	c.UpsertWorkflowOutputs(WorkflowOutputs{
		WorkflowID: "w2", UserGoal: "assess risk", DrugName: "empagliflozin",
		Articles: []Article{{ExternalID: "1", Title: "A", Abstract: "abstract text"}},
	}, day(1))

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, c))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.Count(), loaded.Count())

	doc, ok := loaded.Get("pubmed_1")
	require.True(t, ok)
	assert.Equal(t, 2, doc.Metadata.ReferenceCount())
	assert.ElementsMatch(t, []string{"w1", "w2"}, doc.Metadata.ReferencedInWorkflows.Slice())
}
