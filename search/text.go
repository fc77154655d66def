package search

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docent/core"
)

// Snippet returns the first n runes of text with whitespace runs
// collapsed, adding "..." when text was cut.
func Snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

// Sources returns the distinct fragment sources of results in rank order.
func Sources(results []*core.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		if r.Fragment == nil || seen[r.Fragment.Source] {
			continue
		}
		seen[r.Fragment.Source] = true
		sources = append(sources, r.Fragment.Source)
	}
	return sources
}
