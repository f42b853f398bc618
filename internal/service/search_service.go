// Package service contains the application logic behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// ErrEmptyQuery is returned for a blank search text.
var ErrEmptyQuery = errors.New("query must not be empty")

// Searcher runs one similarity query; *search.Pipeline implements it.
type Searcher interface {
	Run(ctx context.Context, q search.Query, observe search.Observer) (*search.Result, error)
	TopN(requested int) int
}

// SearchService answers similarity queries with display-ready results.
type SearchService interface {
	Search(ctx context.Context, query string, topN int, observe search.Observer) (*model.SearchResponseDTO, error)
}

type searchService struct {
	searcher  Searcher
	precision int
}

// NewSearchService creates a SearchService; scores are rendered with precision decimals.
func NewSearchService(searcher Searcher, precision int) SearchService {
	return &searchService{searcher: searcher, precision: precision}
}

func (s *searchService) Search(ctx context.Context, query string, topN int, observe search.Observer) (*model.SearchResponseDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	topN = s.searcher.TopN(topN)
	log.Infof("[SearchService] query: '%s', topN: %d", query, topN)

	res, err := s.searcher.Run(ctx, search.Query{Text: query, TopN: topN}, observe)
	if err != nil {
		return nil, err
	}

	out := &model.SearchResponseDTO{
		Query:     query,
		TopN:      topN,
		Documents: make([]model.JudgmentResultDTO, 0, len(res.Documents)),
		Articles:  make([]model.ArticleResultDTO, 0, len(res.Articles)),
		Warnings:  make([]string, 0, len(res.Warnings)),
	}
	for i, d := range res.Documents {
		out.Documents = append(out.Documents, model.JudgmentResultDTO{
			Rank:        i + 1,
			SummaryID:   d.Record.SummaryID,
			ParsedID:    d.Record.ParsedID,
			Category:    string(d.Category),
			Score:       d.Score,
			ScoreText:   s.formatScore(d.Score),
			Summary:     d.Record.Summary,
			Sachverhalt: d.Record.Facts,
			Entscheid:   d.Record.Ruling,
			Grundlagen:  d.Record.LegalBasis,
			Forderung:   d.Record.Claim,
			FileName:    d.Record.FileName,
			FilePath:    d.Record.FilePath,
		})
	}
	for i, a := range res.Articles {
		dto := model.ArticleResultDTO{
			Rank:           i + 1,
			VectorID:       a.Key.ID,
			Score:          a.Score,
			ScoreText:      s.formatScore(a.Score),
			SRN:            a.Record.SRN,
			ShortName:      a.Record.ShortName,
			BookName:       a.Record.BookName,
			PartName:       a.Record.PartName,
			TitleName:      a.Record.TitleName,
			SubTitleName:   a.Record.SubTitleName,
			ChapterName:    a.Record.ChapterName,
			SubChapterName: a.Record.SubChapterName,
			SectionName:    a.Record.SectionName,
			SubSectionName: a.Record.SubSectionName,
			ArtID:          a.Record.ArtID,
			FullArticle:    a.Record.FullArticle,
			SourceTable:    a.Record.SourceTable,
		}
		if a.Key.Article != nil {
			dto.TypeCD = a.Key.Article.TypeCD
		}
		out.Articles = append(out.Articles, dto)
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	log.Infof("[SearchService] returning %d documents, %d articles, %d warnings", len(out.Documents), len(out.Articles), len(out.Warnings))
	return out, nil
}

func (s *searchService) formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', s.precision, 64)
}
