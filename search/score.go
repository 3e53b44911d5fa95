package search

import (
	"strings"

	"github.com/poiesic/wayfind/core"
)

// Relevance of a single field against the whole query.
const (
	scoreExact      = 100
	scorePrefix     = 80
	scoreWordPrefix = 60
	scoreSubstring  = 40
	scoreNone       = 0

	// scoreComposite is awarded when every query term appears across the fields.
	scoreComposite = 80

	// scoreOutOfScope marks candidates excluded by the category selection.
	scoreOutOfScope = -1
)

// Field weights, in percent.
const (
	weightName     = 100
	weightBuilding = 90
	weightType     = 80
	weightFloor    = 70
)

// fields holds the lowercased searchable text of one utility.
type fields struct {
	name     string
	building string
	floor    string
	kind     string
}

func searchableFields(u *core.Utility) fields {
	return fields{
		name:     strings.ToLower(u.Name),
		building: strings.ToLower(u.Building),
		floor:    strings.ToLower(u.Floor),
		kind:     strings.ToLower(u.Type),
	}
}

// composite joins all fields for multi-term matching.
func (f fields) composite() string {
	return f.name + " " + f.building + " " + f.floor + " " + f.kind
}

// fieldScore rates how well one lowercased field matches the normalized query.
func fieldScore(field, query string) int {
	if field == "" || query == "" {
		return scoreNone
	}
	switch {
	case field == query:
		return scoreExact
	case strings.HasPrefix(field, query):
		return scorePrefix
	case anyWordHasPrefix(field, query):
		return scoreWordPrefix
	case strings.Contains(field, query):
		return scoreSubstring
	}
	return scoreNone
}

// weight scales score by a percentage, truncating toward zero.
func weight(score, percent int) int {
	return score * percent / 100
}

// weightedScore is the best weighted field score. Every field is scored.
func weightedScore(f fields, query string) int {
	return max(
		weight(fieldScore(f.name, query), weightName),
		weight(fieldScore(f.building, query), weightBuilding),
		weight(fieldScore(f.kind, query), weightType),
		weight(fieldScore(f.floor, query), weightFloor),
	)
}

// compositeScore rewards multi-term queries whose terms are spread across fields.
// Single-term queries never earn a composite score.
func compositeScore(f fields, terms []string) int {
	if len(terms) < 2 {
		return scoreNone
	}
	if containsAllTerms(f.composite(), terms) {
		return scoreComposite
	}
	return scoreNone
}

// Score returns the relevance of u for q, ignoring category scope.
func Score(u core.Utility, q Query) int {
	f := searchableFields(&u)
	return max(weightedScore(f, q.Text), compositeScore(f, q.Terms))
}
