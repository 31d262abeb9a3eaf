package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractlink/contract-hub/internal/model"
)

func TestLoad_AllCategoriesPresent(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	for _, cat := range []model.Category{
		model.CategoryFederal, model.CategoryState, model.CategoryCity,
		model.CategoryEducation, model.CategoryCommercial,
	} {
		info, ok := r.Get(cat)
		require.True(t, ok, "category %s missing", cat)
		assert.NotEmpty(t, info.DisplayName)
	}

	assert.Len(t, r.All(), 5)

	_, ok := r.Get(model.Category("bogus"))
	assert.False(t, ok)
}

func TestSearchQuery(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	q := r.SearchQuery(model.Lead{
		Category: model.CategoryFederal,
		Title:    "Janitorial services",
		Agency:   "GSA",
		Location: "Denver, CO",
	})
	assert.Contains(t, q, "Janitorial services")
	assert.Contains(t, q, "GSA")
	assert.Contains(t, q, "Denver, CO")
	assert.Contains(t, q, "federal contract opportunity")
}

func TestEnrichmentPrompt(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	prompt, err := r.EnrichmentPrompt(model.Lead{
		Category: model.CategoryState,
		Title:    "HVAC maintenance",
		Agency:   "Colorado DOT",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "State Contracts")
	assert.Contains(t, prompt, "HVAC maintenance")
	assert.Contains(t, prompt, "Colorado DOT")
	assert.Contains(t, prompt, "UNAVAILABLE")
	assert.NotContains(t, prompt, "Location:")
}

func TestEnrichmentPrompt_TruncatesDescription(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	prompt, err := r.EnrichmentPrompt(model.Lead{
		Category:    model.CategoryCity,
		Title:       "Paving",
		Description: string(long),
	})
	require.NoError(t, err)
	assert.Less(t, len(prompt), 1200)
}
