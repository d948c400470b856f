package collector

import (
	"strings"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// Relevant reports whether a place plausibly belongs to the niche. Exclusion
// terms are checked first and always reject; with no search terms configured
// everything else is accepted. Matching is case-insensitive substring over
// the name and categories together.
func Relevant(name string, categories []string, niche discovery.Niche) bool {
	var b strings.Builder
	b.WriteString(strings.ToLower(name))
	for _, c := range categories {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(c))
	}
	haystack := b.String()

	for _, term := range niche.ExcludeTerms {
		if term == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(term)) {
			return false
		}
	}

	if len(niche.SearchTerms) == 0 {
		return true
	}
	for _, term := range niche.SearchTerms {
		if term == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
