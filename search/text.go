package search

import "strings"

// Query is a normalized search query.
type Query struct {
	Text  string   // Lowercased, trimmed query
	Terms []string // Text split on runs of whitespace
}

// Normalize lowercases and trims raw and splits it into terms.
// A whitespace-only query normalizes to the empty query.
func Normalize(raw string) Query {
	text := strings.ToLower(strings.TrimSpace(raw))
	return Query{
		Text:  text,
		Terms: strings.Fields(text),
	}
}

// IsEmpty reports whether the query has no text.
func (q Query) IsEmpty() bool {
	return q.Text == ""
}

// anyWordHasPrefix reports whether a whitespace-delimited word of text starts with prefix.
func anyWordHasPrefix(text, prefix string) bool {
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, prefix) {
			return true
		}
	}
	return false
}

// containsAllTerms reports whether every term appears somewhere in text.
func containsAllTerms(text string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}
