package venues

import (
	"strings"

	"github.com/oddsaxiom/pipeline/pkg/types"
)

// keywordRule pairs a search keyword with the category it implies. Rules are
// ordered: the first match wins, so venue tables put their most specific
// keywords first.
type keywordRule struct {
	keyword  string
	category types.Category
}

// classifyKeywords scans the lower-cased search text against a venue's rule
// table, returning fallback when nothing matches.
func classifyKeywords(text string, rules []keywordRule, fallback types.Category) types.Category {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if strings.Contains(lower, r.keyword) {
			return r.category
		}
	}
	return fallback
}

// sharedKeywordRules covers the vocabulary common to the prediction venues.
var sharedKeywordRules = []keywordRule{
	{"bitcoin", types.CategoryCrypto},
	{"ethereum", types.CategoryCrypto},
	{"crypto", types.CategoryCrypto},
	{"btc", types.CategoryCrypto},
	{"eth", types.CategoryCrypto},
	{"election", types.CategoryPolitics},
	{"president", types.CategoryPolitics},
	{"congress", types.CategoryPolitics},
	{"senate", types.CategoryPolitics},
	{"governor", types.CategoryPolitics},
	{"politics", types.CategoryPolitics},
	{"economy", types.CategoryEconomics},
	{"fed", types.CategoryEconomics},
	{"inflation", types.CategoryEconomics},
	{"gdp", types.CategoryEconomics},
	{"rates", types.CategoryEconomics},
	{"cpi", types.CategoryEconomics},
	{"unemployment", types.CategoryEconomics},
	{"nfl", types.CategorySports},
	{"nba", types.CategorySports},
	{"mlb", types.CategorySports},
	{"nhl", types.CategorySports},
	{"super bowl", types.CategorySports},
	{"soccer", types.CategorySports},
	{"sports", types.CategorySports},
	{"climate", types.CategoryScience},
	{"weather", types.CategoryScience},
	{"temperature", types.CategoryScience},
	{"ai", types.CategoryScience},
	{"science", types.CategoryScience},
	{"oscars", types.CategoryCulture},
	{"grammy", types.CategoryCulture},
	{"entertainment", types.CategoryCulture},
	{"culture", types.CategoryCulture},
}

// mapNativeCategory resolves a venue's own category label through its lookup
// table; empty result means no mapping.
func mapNativeCategory(table map[string]types.Category, native string) (types.Category, bool) {
	c, ok := table[strings.ToLower(strings.TrimSpace(native))]
	return c, ok
}
