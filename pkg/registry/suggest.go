package registry

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// maxSuggestions bounds how many close names a not-found error offers.
	maxSuggestions = 3
	// suggestionMaxDistance is the edit-distance cutoff for "close enough".
	suggestionMaxDistance = 4
)

// SuggestNames returns up to maxSuggestions registered names closest to
// the unknown name, ranked by edit distance. Names sharing a prefix or
// substring with the query are always considered close.
func SuggestNames(unknown string, names []string) []string {
	type candidate struct {
		name string
		dist int
	}

	query := strings.ToLower(unknown)
	var candidates []candidate
	for _, name := range names {
		lower := strings.ToLower(name)
		dist := editDistance(query, lower)
		if strings.Contains(lower, query) || strings.Contains(query, lower) {
			dist = 0
		}
		if dist <= suggestionMaxDistance {
			candidates = append(candidates, candidate{name: name, dist: dist})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	suggestions := make([]string, 0, maxSuggestions)
	for _, c := range candidates {
		suggestions = append(suggestions, c.name)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}

// NotFoundMessage formats a not-found error for an unknown tool name,
// embedding close-match suggestions when any exist and pointing the
// caller at search_tools otherwise.
func NotFoundMessage(unknown string, names []string) string {
	suggestions := SuggestNames(unknown, names)
	if len(suggestions) == 0 {
		return fmt.Sprintf("tool not found: %s. Use search_tools to discover available tools.", unknown)
	}
	return fmt.Sprintf("tool not found: %s. Did you mean: %s?", unknown, strings.Join(suggestions, ", "))
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
