package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/wayfind/core"
)

// scope is the set of selected category ids. An empty scope is global.
type scope map[string]struct{}

func newScope(selected []string) scope {
	s := make(scope, len(selected))
	for _, id := range selected {
		s[id] = struct{}{}
	}
	return s
}

func (s scope) global() bool {
	return len(s) == 0
}

func (s scope) includes(u *core.Utility) bool {
	if s.global() {
		return true
	}
	_, ok := s[u.Type]
	return ok
}

// Search returns the utilities matching the selected categories and query,
// most relevant first. It never modifies utilities.
//
//   - no categories, empty query: nothing
//   - categories, empty query: every utility of those categories, in input order
//   - no categories, query: all utilities ranked by relevance
//   - categories, query: utilities of those categories ranked by relevance
func Search(utilities []core.Utility, selected []string, query string) []core.Utility {
	results := Rank(utilities, selected, query)
	out := make([]core.Utility, len(results))
	for i, r := range results {
		out[i] = r.Utility
	}
	return out
}

// Rank is Search with the scores attached.
func Rank(utilities []core.Utility, selected []string, query string) []core.SearchResult {
	return rank(utilities, selected, query, &noopMonitor{})
}

func rank(utilities []core.Utility, selected []string, query string, monitor SearchMonitor) []core.SearchResult {
	q := Normalize(query)
	sc := newScope(selected)
	monitor.Start(q, selected)

	// Without a query there is nothing to rank: filter by category only.
	if q.IsEmpty() {
		results := []core.SearchResult{}
		if !sc.global() {
			for i := range utilities {
				if sc.includes(&utilities[i]) {
					results = append(results, core.SearchResult{Utility: utilities[i]})
				}
			}
		}
		monitor.AfterScoping(len(results))
		monitor.Finish(results)
		return results
	}

	candidates := 0
	results := make([]core.SearchResult, 0, len(utilities))
	for i := range utilities {
		u := utilities[i]
		score := scoreOutOfScope
		if sc.includes(&u) {
			candidates++
			score = Score(u, q)
			monitor.Scored(u, score)
		}
		if score > 0 {
			results = append(results, core.SearchResult{Utility: u, Score: score})
		}
	}
	monitor.AfterScoping(candidates)

	// Stable: equal scores keep input order.
	slices.SortStableFunc(results, func(a, b core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	monitor.Finish(results)

	return results
}
