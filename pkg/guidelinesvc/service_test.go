package guidelinesvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForDrug_SortedByRelevanceDescending(t *testing.T) {
	items := BundledCatalog().ForDrug("empagliflozin", "")
	require.Len(t, items, 3)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].RelevanceScore, items[i].RelevanceScore)
	}
}

func TestForDrug_UnknownDrugReturnsEmptyNotNil(t *testing.T) {
	items := BundledCatalog().ForDrug("totally-unknown", "")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestForDrug_FiltersByIndicationSubstring(t *testing.T) {
	items := BundledCatalog().ForDrug("semaglutide", "thyroid")
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Text, "thyroid")
}

func TestForDrug_CaseInsensitiveLookup(t *testing.T) {
	items := BundledCatalog().ForDrug("EMPAGLIFLOZIN", "")
	assert.Len(t, items, 3)
}
