package search

import (
	"sort"
	"strconv"
)

// Key identifies the row behind a vector. Judgment vectors set ID (summary row) and
// ParentID (parsed document); article vectors set ID (vector row) and Article.
type Key struct {
	ID       int64
	ParentID int64
	Article  *ArticleRef
}

func (k Key) String() string {
	if k.Article != nil {
		return k.Article.String()
	}
	return strconv.FormatInt(k.ID, 10) + "/" + strconv.FormatInt(k.ParentID, 10)
}

// VectorRecord is one stored vector of a category.
type VectorRecord struct {
	Key      Key
	Category Category
	Vector   []float32
}

// RankedHit is a scored key. Score is always higher-is-better.
type RankedHit struct {
	Key   Key
	Score float64
}

// Rank scores every candidate against query with cosine similarity and returns the
// topN best, highest first. Equal scores keep candidate order. A candidate whose length
// differs from the query is an integrity error and aborts the ranking.
func Rank(query []float32, candidates []VectorRecord, topN int) ([]RankedHit, error) {
	if topN <= 0 || len(candidates) == 0 {
		return []RankedHit{}, nil
	}
	hits := make([]RankedHit, 0, len(candidates))
	for _, c := range candidates {
		score, err := CosineSimilarity(query, c.Vector)
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Category = c.Category
				de.Key = c.Key.String()
			}
			return nil, err
		}
		hits = append(hits, RankedHit{Key: c.Key, Score: score})
	}
	sortHits(hits)
	return truncate(hits, topN), nil
}

func sortHits(hits []RankedHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
