// Package intel assembles the meeting dossier: evidence aggregation,
// prompt construction, model response reconciliation and the analyze
// pipeline that ties them together.
package intel

import (
	"sort"
	"strings"

	"meeting-intel/internal/models"
)

const dedupeSnippetPrefix = 120

var sourceWeights = map[string]int{
	models.SourceCompanySite: 5,
	models.SourceDDGNews:     4,
	models.SourceDDGHiring:   4,
	models.SourceDDGCompany:  3,
	models.SourceDDGPerson:   3,
	models.SourceDDGGitHub:   3,
}

// SourceWeight is the ranking priority of a source tag; unlisted sources weigh 1.
func SourceWeight(source string) int {
	if w, ok := sourceWeights[source]; ok {
		return w
	}
	return 1
}

// DedupeAndRank drops later items sharing a (url, snippet prefix) key with
// an earlier one, orders the rest by descending source weight keeping
// input order among ties, and keeps at most maxItems.
func DedupeAndRank(items []models.EvidenceItem, maxItems int) []models.EvidenceItem {
	type key struct{ url, snippet string }

	seen := make(map[key]bool, len(items))
	out := make([]models.EvidenceItem, 0, len(items))
	for _, it := range items {
		k := key{
			url:     strings.TrimSpace(it.URL),
			snippet: prefixRunes(strings.TrimSpace(it.Snippet), dedupeSnippetPrefix),
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return SourceWeight(out[i].Source) > SourceWeight(out[j].Source)
	})
	if maxItems >= 0 && len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}

// SourceCounts tallies items per source tag.
func SourceCounts(items []models.EvidenceItem) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		src := it.Source
		if src == "" {
			src = "unknown"
		}
		counts[src]++
	}
	return counts
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
