package repository

import (
	"context"

	"github.com/mesopotato/enrich-justice/internal/search"
)

// VectorStore enumerates the blob-encoded vectors of every category for in-process ranking.
type VectorStore struct {
	judgments JudgmentRepository
	articles  ArticleRepository
}

// NewVectorStore combines the judgment and article repositories into a search.Enumerator.
func NewVectorStore(judgments JudgmentRepository, articles ArticleRepository) *VectorStore {
	return &VectorStore{judgments: judgments, articles: articles}
}

func (s *VectorStore) Enumerate(ctx context.Context, category search.Category) ([]search.VectorRecord, error) {
	if category == search.CategoryArticles {
		return s.articles.EnumerateVectors(ctx)
	}
	return s.judgments.EnumerateVectors(ctx, category)
}
