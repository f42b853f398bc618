package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(id int64, score float64) RankedHit {
	return RankedHit{Key: Key{ID: id}, Score: score}
}

func TestMergeGlobalTopN(t *testing.T) {
	lists := map[Category][]RankedHit{
		CategorySummary: {hit(1, 0.99), hit(2, 0.98), hit(3, 0.97), hit(4, 0.96), hit(5, 0.95)},
		CategoryFacts:   {hit(11, 0.5), hit(12, 0.4), hit(13, 0.3), hit(14, 0.2), hit(15, 0.1)},
	}
	merged := Merge(lists, 5)
	require.Len(t, merged, 5)
	for _, m := range merged {
		assert.Equal(t, CategorySummary, m.Category)
	}
}

func TestMergeIsRefinementOfInputs(t *testing.T) {
	lists := map[Category][]RankedHit{
		CategorySummary:    {hit(1, 0.9), hit(2, 0.3)},
		CategoryFacts:      {hit(1, 0.8), hit(7, 0.2)},
		CategoryRuling:     {hit(4, 0.7)},
		CategoryLegalBasis: {},
	}
	merged := Merge(lists, 10)
	require.Len(t, merged, 5)
	for _, m := range merged {
		found := false
		for _, h := range lists[m.Category] {
			if h == m.RankedHit {
				found = true
			}
		}
		assert.True(t, found, "hit %v not in %s", m.Key, m.Category)
	}
	for i := 1; i < len(merged); i++ {
		assert.GreaterOrEqual(t, merged[i-1].Score, merged[i].Score)
	}
}

func TestMergeTieBreakByLabel(t *testing.T) {
	lists := map[Category][]RankedHit{
		CategorySummary: {hit(1, 0.5), hit(2, 0.5)},
		CategoryFacts:   {hit(3, 0.5)},
		CategoryRuling:  {hit(4, 0.5)},
	}
	merged := Merge(lists, 10)
	var got []Category
	var gotIDs []int64
	for _, m := range merged {
		got = append(got, m.Category)
		gotIDs = append(gotIDs, m.Key.ID)
	}
	// Entscheide < Sachverhalt < Summary
	assert.Equal(t, []Category{CategoryRuling, CategoryFacts, CategorySummary, CategorySummary}, got)
	assert.Equal(t, []int64{4, 3, 1, 2}, gotIDs)
}

func TestMergeDeterministic(t *testing.T) {
	lists := map[Category][]RankedHit{
		CategorySummary:    {hit(1, 0.4), hit(2, 0.2)},
		CategoryFacts:      {hit(3, 0.4), hit(4, 0.1)},
		CategoryRuling:     {hit(5, 0.2)},
		CategoryLegalBasis: {hit(6, 0.4)},
	}
	first := Merge(lists, 4)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Merge(lists, 4))
	}
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, 5))
	assert.Empty(t, Merge(map[Category][]RankedHit{CategorySummary: {hit(1, 1)}}, 0))
}
