package search

import "sort"

// MergedHit is a ranked hit tagged with the category it came from.
type MergedHit struct {
	RankedHit
	Category Category
}

// Merge combines per-category ranked lists into one list of at most topN hits, highest
// score first. Ties keep each category's own order and then fall back to the category
// label in lexical order, so the result does not depend on map iteration.
func Merge(lists map[Category][]RankedHit, topN int) []MergedHit {
	if topN <= 0 {
		return []MergedHit{}
	}
	labels := make([]Category, 0, len(lists))
	total := 0
	for c, hits := range lists {
		labels = append(labels, c)
		total += len(hits)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	merged := make([]MergedHit, 0, total)
	for _, c := range labels {
		for _, h := range lists[c] {
			merged = append(merged, MergedHit{RankedHit: h, Category: c})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return truncate(merged, topN)
}
