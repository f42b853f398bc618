package search

import (
	"context"
	"fmt"
)

// CategoryRanker returns the topN hits of one category for a query vector.
// Implementations must return higher-is-better scores sorted highest first.
type CategoryRanker interface {
	RankCategory(ctx context.Context, query []float32, category Category, topN int) ([]RankedHit, error)
}

// Enumerator lists every stored vector of a category, already decoded.
type Enumerator interface {
	Enumerate(ctx context.Context, category Category) ([]VectorRecord, error)
}

// ScanRanker ranks in process over everything an Enumerator returns.
type ScanRanker struct {
	store Enumerator
}

// NewScanRanker wraps store as a CategoryRanker.
func NewScanRanker(store Enumerator) *ScanRanker {
	return &ScanRanker{store: store}
}

func (r *ScanRanker) RankCategory(ctx context.Context, query []float32, category Category, topN int) ([]RankedHit, error) {
	records, err := r.store.Enumerate(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", category, err)
	}
	return Rank(query, records, topN)
}

// RankerFunc adapts a function to CategoryRanker.
type RankerFunc func(ctx context.Context, query []float32, category Category, topN int) ([]RankedHit, error)

func (f RankerFunc) RankCategory(ctx context.Context, query []float32, category Category, topN int) ([]RankedHit, error) {
	return f(ctx, query, category, topN)
}
