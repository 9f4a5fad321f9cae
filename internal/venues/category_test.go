package venues

import (
	"testing"

	"github.com/oddsaxiom/pipeline/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestClassifyKeywordsFirstMatchWins(t *testing.T) {
	tests := []struct {
		text string
		want types.Category
	}{
		{"Bitcoin price at end of year", types.CategoryCrypto},
		{"Who wins the presidential election?", types.CategoryPolitics},
		{"Fed rate decision in December", types.CategoryEconomics},
		{"Super Bowl winner", types.CategorySports},
		{"Hottest temperature recorded in July", types.CategoryScience},
		{"Best picture at the Oscars", types.CategoryCulture},
		{"Random market question", types.CategorySports},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want,
			classifyKeywords(tt.text, sharedKeywordRules, types.CategorySports), tt.text)
	}
}

func TestMapNativeCategoryNormalizesInput(t *testing.T) {
	c, ok := mapNativeCategory(kalshiCategoryTable, "  Science and Technology ")
	assert.True(t, ok)
	assert.Equal(t, types.CategoryScience, c)

	_, ok = mapNativeCategory(kalshiCategoryTable, "unknown")
	assert.False(t, ok)
}
