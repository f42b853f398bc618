package repository

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PgvectorStore ranks inside Postgres with the pgvector cosine distance operator (<=>)
// and mirrors vectors written during enrichment.
type PgvectorStore struct {
	db   *gorm.DB
	dims int
}

// NewPgvectorStore wraps a Postgres handle whose tables carry vector(N) columns.
func NewPgvectorStore(db *gorm.DB, dims int) *PgvectorStore {
	return &PgvectorStore{db: db, dims: dims}
}

type pgJudgmentHit struct {
	ID       int64
	ParsedID int64
	Distance *float64
}

type pgArticleHit struct {
	ID          int64
	SRN         string
	ArtID       string
	TypeCD      string
	TypeID      string
	SourceTable string
	Distance    *float64
}

// RankCategory returns the topN nearest rows. Distances are converted to similarities
// (1 - distance) before returning, so the result sorts highest first like every other ranker.
func (s *PgvectorStore) RankCategory(ctx context.Context, query []float32, category search.Category, topN int) ([]search.RankedHit, error) {
	if topN <= 0 {
		return []search.RankedHit{}, nil
	}
	if s.dims > 0 && len(query) != s.dims {
		return nil, &search.DecodeError{Category: category, Len: len(query), Want: s.dims, Err: search.ErrDimensionMismatch}
	}
	if category == search.CategoryArticles {
		return s.rankArticles(ctx, query, topN)
	}
	if !category.IsJudgment() {
		return nil, fmt.Errorf("category %s is not ranked by pgvector", category)
	}

	col := category.Column()
	var rows []pgJudgmentHit
	q := s.db.WithContext(ctx).Model(&model.PgSummary{}).Where(col + " IS NOT NULL")
	if search.IsZero(query) {
		// cosine distance to a zero vector is undefined in pgvector
		q = q.Select("id, parsed_id, NULL AS distance").Order("id")
	} else {
		vec := pgvector.NewVector(query)
		q = q.Select("id, parsed_id, "+col+" <=> ? AS distance", vec).Order(byDistance(col, vec))
	}
	if err := q.Limit(topN).Scan(&rows).Error; err != nil {
		return nil, storageErr("pgvector rank "+string(category), err)
	}

	hits := make([]search.RankedHit, len(rows))
	for i, row := range rows {
		hits[i] = search.RankedHit{
			Key:   search.Key{ID: row.ID, ParentID: row.ParsedID},
			Score: similarity(row.Distance),
		}
	}
	resort(hits)
	return hits, nil
}

func (s *PgvectorStore) rankArticles(ctx context.Context, query []float32, topN int) ([]search.RankedHit, error) {
	var rows []pgArticleHit
	q := s.db.WithContext(ctx).Model(&model.PgArticleVector{}).Where("vector IS NOT NULL")
	if search.IsZero(query) {
		q = q.Select("id, srn, art_id, type_cd, type_id, source_table, NULL AS distance").Order("id")
	} else {
		vec := pgvector.NewVector(query)
		q = q.Select("id, srn, art_id, type_cd, type_id, source_table, vector <=> ? AS distance", vec).
			Order(byDistance("vector", vec))
	}
	if err := q.Limit(topN).Scan(&rows).Error; err != nil {
		return nil, storageErr("pgvector rank articles", err)
	}

	hits := make([]search.RankedHit, 0, len(rows))
	for _, row := range rows {
		schema, err := search.ParseArticleSchema(row.SourceTable)
		if err != nil {
			continue
		}
		ref := &search.ArticleRef{SRN: row.SRN, ArtID: row.ArtID, TypeCD: row.TypeCD, TypeID: row.TypeID, Schema: schema}
		hits = append(hits, search.RankedHit{Key: search.Key{ID: row.ID, Article: ref}, Score: similarity(row.Distance)})
	}
	resort(hits)
	return hits, nil
}

// similarity maps a pgvector cosine distance onto 1 - distance. NULL and NaN (zero-norm
// rows) score 0, matching the in-process ranker.
func similarity(d *float64) float64 {
	if d == nil || math.IsNaN(*d) {
		return 0
	}
	return search.SimilarityFromCosineDistance(*d)
}

// byDistance orders rows nearest first. Zero-norm rows have a NaN distance, which
// Postgres sorts after every number; they are ranked at distance 1 (similarity 0) instead
// so LIMIT keeps them ahead of negatively similar rows, as the in-process ranker does.
func byDistance(col string, vec pgvector.Vector) clause.OrderBy {
	return clause.OrderBy{Expression: clause.Expr{
		SQL:  "COALESCE(NULLIF(" + col + " <=> ?, 'NaN'::float8), 1) ASC, id ASC",
		Vars: []interface{}{vec},
	}}
}

// resort restores descending order after NaN distances were mapped to 0.
func resort(hits []search.RankedHit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}

// MirrorSummary upserts a summary row and its field vectors.
func (s *PgvectorStore) MirrorSummary(ctx context.Context, sum *model.Summary, vectors map[search.Category][]float32) error {
	row := model.PgSummary{
		ID:                sum.ID,
		ParsedID:          sum.ParsedID,
		Model:             sum.Model,
		SummaryText:       sum.SummaryText,
		Sachverhalt:       sum.Sachverhalt,
		Entscheid:         sum.Entscheid,
		Grundlagen:        sum.Grundlagen,
		SummaryVector:     toPg(vectors[search.CategorySummary]),
		SachverhaltVector: toPg(vectors[search.CategoryFacts]),
		EntscheidVector:   toPg(vectors[search.CategoryRuling]),
		GrundlagenVector:  toPg(vectors[search.CategoryLegalBasis]),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return storageErr("pgvector mirror summary", err)
	}
	return nil
}

// MirrorArticle upserts one article vector under the id it has in the primary store.
func (s *PgvectorStore) MirrorArticle(ctx context.Context, id int64, ref search.ArticleRef, vector []float32) error {
	row := model.PgArticleVector{
		ID:          id,
		SRN:         ref.SRN,
		ArtID:       ref.ArtID,
		TypeCD:      ref.TypeCD,
		TypeID:      ref.TypeID,
		Vector:      toPg(vector),
		SourceTable: ref.Schema.Table(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return storageErr("pgvector mirror article", err)
	}
	return nil
}

func toPg(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	pv := pgvector.NewVector(v)
	return &pv
}
