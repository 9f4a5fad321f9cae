// Package matcher clusters free-text market titles into canonical events so
// the same market listed on different venues compares under one key.
//
// Venues word the same event very differently:
//
//	polymarket: "Will Claudia López win the 2026 Colombian presidential election?"
//	predictit:  "Who will win the 2026 Colombian presidential election?"
//	kalshi:     "2026 Colombia president — Claudia López"
//
// Clustering is single-pass greedy over the input order. A title joins the
// first existing cluster that passes every gate; otherwise it founds a new
// cluster with itself as representative. The resulting map is reflexive:
// every representative maps to itself.
package matcher

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// TitleThreshold is the minimum token-sort-ratio for a cross-venue match.
const TitleThreshold = 82

var (
	yearRe    = regexp.MustCompile(`\b(20\d{2})\b`)
	parenRe   = regexp.MustCompile(`\s*\(.*?\)\s*`)
	bracketRe = regexp.MustCompile(`\s*\[.*?\]\s*`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// Candidacy verbs versus outcome verbs. "Will X run for president" and
// "Will X win the presidency" score high on token overlap but are distinct
// events; the same goes for aggregate party markets versus per-candidate ones.
var (
	candidacyPhrases = []string{"run for", "announce", "file for", "seek the nomination", "declare candidacy"}
	victoryPhrases   = []string{"win", "become", "elected", "prevail", "capture"}
	aggregatePhrases = []string{"which party", "what party", "party to win", "party control"}
)

type cluster struct {
	rep       string
	norm      string
	category  string
	years     map[string]struct{}
	venues    map[string]struct{}
	candidacy bool
	victory   bool
	aggregate bool
}

// Cluster builds the canonical-title map for the given titles. categories and
// venues are side maps keyed by raw title; either may be nil. The venue map
// records the first-seen venue of a title: two titles sharing a venue only
// merge when their normalised forms are identical, because one venue does not
// list the same market twice under slightly different wording.
func Cluster(titles []string, categories map[string]string, venues map[string]string) map[string]string {
	canonical := make(map[string]string, len(titles))
	var clusters []*cluster

	for _, title := range titles {
		if _, done := canonical[title]; done {
			continue
		}

		norm := NormalizeTitle(title)
		if norm == "" {
			canonical[title] = title
			continue
		}

		cat := categories[title]
		venue := venues[title]
		years := yearSet(norm)
		cand, vict, agg := semanticFlags(norm)

		matched := false
		for _, c := range clusters {
			// Category gate.
			if cat != "" && c.category != "" && cat != c.category {
				continue
			}
			// Year gate: both mention years, none in common.
			if len(years) > 0 && len(c.years) > 0 && !overlap(years, c.years) {
				continue
			}
			// Same-venue gate.
			if _, sameVenue := c.venues[venue]; sameVenue && venue != "" {
				if norm != c.norm {
					continue
				}
			} else if fuzzy.TokenSortRatio(norm, c.norm) < TitleThreshold {
				continue
			}
			// Semantic-conflict gates.
			if (cand && c.victory) || (vict && c.candidacy) {
				continue
			}
			if agg != c.aggregate {
				continue
			}

			canonical[title] = c.rep
			if venue != "" {
				c.venues[venue] = struct{}{}
			}
			for y := range years {
				c.years[y] = struct{}{}
			}
			matched = true
			break
		}

		if !matched {
			c := &cluster{
				rep:       title,
				norm:      norm,
				category:  cat,
				years:     years,
				venues:    map[string]struct{}{},
				candidacy: cand,
				victory:   vict,
				aggregate: agg,
			}
			if venue != "" {
				c.venues[venue] = struct{}{}
			}
			clusters = append(clusters, c)
			canonical[title] = title
		}
	}

	return canonical
}

// NormalizeTitle lower-cases a title and strips the trailing question mark,
// parenthesised and bracketed fragments, and runs of whitespace.
func NormalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = strings.TrimSuffix(t, "?")
	t = parenRe.ReplaceAllString(t, " ")
	t = bracketRe.ReplaceAllString(t, " ")
	t = spaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

func yearSet(norm string) map[string]struct{} {
	years := map[string]struct{}{}
	for _, m := range yearRe.FindAllString(norm, -1) {
		years[m] = struct{}{}
	}
	return years
}

func semanticFlags(norm string) (candidacy, victory, aggregate bool) {
	for _, p := range candidacyPhrases {
		if strings.Contains(norm, p) {
			candidacy = true
			break
		}
	}
	for _, p := range victoryPhrases {
		if containsWord(norm, p) {
			victory = true
			break
		}
	}
	for _, p := range aggregatePhrases {
		if strings.Contains(norm, p) {
			aggregate = true
			break
		}
	}
	return candidacy, victory, aggregate
}

// containsWord matches a phrase on word boundaries; plain Contains would find
// "win" inside "winter" or "winning streak" is fine but "darwin" is not.
func containsWord(s, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		leftOK := start == 0 || !isWordChar(s[start-1])
		rightOK := end == len(s) || !isWordChar(s[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func overlap(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
