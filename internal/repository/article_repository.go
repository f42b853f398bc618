package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"gorm.io/gorm"
)

// ArticleText is a unit of statute text waiting for an embedding: a single paragraph
// (TypeCD "abs") or a whole article (TypeCD "art").
type ArticleText struct {
	Ref  search.ArticleRef
	Text string
}

// ArticleRepository reads statute articles and their vectors.
type ArticleRepository interface {
	search.ArticleSource

	EnumerateVectors(ctx context.Context) ([]search.VectorRecord, error)
	FindUnembeddedParagraphs(ctx context.Context, schema search.ArticleSchema) ([]ArticleText, error)
	FindUnembeddedArticles(ctx context.Context, schema search.ArticleSchema) ([]ArticleText, error)
	InsertVector(ctx context.Context, ref search.ArticleRef, blob []byte) (int64, error)
}

type articleRepository struct {
	db   *gorm.DB
	dims int
}

// NewArticleRepository creates an ArticleRepository over the federal and cantonal tables.
func NewArticleRepository(db *gorm.DB, dims int) ArticleRepository {
	return &articleRepository{db: db, dims: dims}
}

// EnumerateVectors decodes every article vector. Rows pointing at an unknown source table
// are skipped with a warning.
func (r *articleRepository) EnumerateVectors(ctx context.Context) ([]search.VectorRecord, error) {
	var rows []model.ArticleVector
	err := r.db.WithContext(ctx).
		Where("vector IS NOT NULL").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("enumerate articles", err)
	}

	records := make([]search.VectorRecord, 0, len(rows))
	for _, row := range rows {
		schema, err := search.ParseArticleSchema(row.SourceTable)
		if err != nil {
			log.Warnf("[ArticleRepository] skipping vector %d: %v", row.ID, err)
			continue
		}
		ref := &search.ArticleRef{SRN: row.SRN, ArtID: row.ArtID, TypeCD: row.TypeCD, TypeID: row.TypeID, Schema: schema}
		key := search.Key{ID: row.ID, Article: ref}
		v, err := search.DecodeVector(row.Vector, r.dims)
		if err != nil {
			var de *search.DecodeError
			if errors.As(err, &de) {
				de.Category = search.CategoryArticles
				de.Key = key.String()
			}
			return nil, err
		}
		records = append(records, search.VectorRecord{Key: key, Category: search.CategoryArticles, Vector: v})
	}
	return records, nil
}

// FindArticle aggregates all paragraph rows of one article, ordered by row id, into a
// single space-joined text. The citation metadata comes from the first row.
func (r *articleRepository) FindArticle(ctx context.Context, ref search.ArticleRef) (*search.ArticleRecord, error) {
	switch ref.Schema.(type) {
	case search.FederalArticleSchema:
		return r.findFederal(ctx, ref)
	case search.CantonalArticleSchema:
		return r.findCantonal(ctx, ref)
	}
	return nil, search.ErrNotFound
}

func (r *articleRepository) findFederal(ctx context.Context, ref search.ArticleRef) (*search.ArticleRecord, error) {
	var rows []model.FederalArticle
	err := r.db.WithContext(ctx).
		Where("srn = ? AND article_id = ?", ref.SRN, ref.ArtID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("find federal article", err)
	}
	if len(rows) == 0 {
		return nil, search.ErrNotFound
	}
	parts := make([]string, 0, len(rows))
	for _, a := range rows {
		parts = append(parts, federalRowText(a))
	}
	first := rows[0]
	return &search.ArticleRecord{
		SRN:            first.SRN,
		ShortName:      first.ShortName,
		BookName:       first.BookName,
		PartName:       first.PartName,
		TitleName:      first.TitleName,
		SubTitleName:   first.SubTitleName,
		ChapterName:    first.ChapterName,
		SubChapterName: first.SubChapterName,
		SectionName:    first.SectionName,
		SubSectionName: first.SubSectionName,
		ArtID:          first.ArticleID,
		FullArticle:    joinNonEmpty(parts...),
		SourceTable:    search.FederalArticleSchema{}.Table(),
	}, nil
}

func (r *articleRepository) findCantonal(ctx context.Context, ref search.ArticleRef) (*search.ArticleRecord, error) {
	var rows []model.CantonalArticle
	err := r.db.WithContext(ctx).
		Where("systematic_number = ? AND article_number = ?", ref.SRN, ref.ArtID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("find cantonal article", err)
	}
	if len(rows) == 0 {
		return nil, search.ErrNotFound
	}
	parts := make([]string, 0, len(rows))
	for _, a := range rows {
		parts = append(parts, cantonalRowText(a))
	}
	first := rows[0]
	return &search.ArticleRecord{
		SRN:            first.SystematicNumber,
		ShortName:      first.Abbreviation,
		BookName:       first.BookName,
		PartName:       first.PartName,
		TitleName:      first.TitleName,
		SubTitleName:   first.SubTitleName,
		ChapterName:    first.ChapterName,
		SubChapterName: first.SubChapterName,
		SectionName:    first.SectionName,
		SubSectionName: first.SubSectionName,
		ArtID:          first.ArticleNumber,
		FullArticle:    joinNonEmpty(parts...),
		SourceTable:    search.CantonalArticleSchema{}.Table(),
	}, nil
}

func federalRowText(a model.FederalArticle) string {
	return joinNonEmpty(a.ArticleName, a.Reference, a.ZifferName, a.Absatz, deref(a.TextWFootnotes))
}

func cantonalRowText(a model.CantonalArticle) string {
	return joinNonEmpty(a.ArticleTitle, deref(a.ParagraphText))
}

// FindUnembeddedParagraphs returns paragraph rows that carry text but have no "abs" vector yet.
func (r *articleRepository) FindUnembeddedParagraphs(ctx context.Context, schema search.ArticleSchema) ([]ArticleText, error) {
	existing, err := r.existingKeys(ctx, schema, search.ArticleTypeParagraph)
	if err != nil {
		return nil, err
	}

	var out []ArticleText
	switch schema.(type) {
	case search.FederalArticleSchema:
		var rows []model.FederalArticle
		err = r.db.WithContext(ctx).
			Where("text_w_footnotes IS NOT NULL AND absatz IS NOT NULL AND absatz <> ''").
			Order("id").
			Find(&rows).Error
		for _, a := range rows {
			ref := search.ArticleRef{SRN: a.SRN, ArtID: a.ArticleID, TypeCD: search.ArticleTypeParagraph, TypeID: strconv.FormatInt(a.ID, 10), Schema: schema}
			if _, ok := existing[vectorKey(ref)]; !ok {
				out = append(out, ArticleText{Ref: ref, Text: deref(a.TextWFootnotes)})
			}
		}
	case search.CantonalArticleSchema:
		var rows []model.CantonalArticle
		err = r.db.WithContext(ctx).
			Where("paragraph_text IS NOT NULL").
			Order("id").
			Find(&rows).Error
		for _, a := range rows {
			ref := search.ArticleRef{SRN: a.SystematicNumber, ArtID: a.ArticleNumber, TypeCD: search.ArticleTypeParagraph, TypeID: strconv.FormatInt(a.ID, 10), Schema: schema}
			if _, ok := existing[vectorKey(ref)]; !ok {
				out = append(out, ArticleText{Ref: ref, Text: deref(a.ParagraphText)})
			}
		}
	}
	if err != nil {
		return nil, storageErr("find unembedded paragraphs", err)
	}
	return out, nil
}

// FindUnembeddedArticles returns whole articles, paragraphs joined in row order, that have
// no "art" vector yet.
func (r *articleRepository) FindUnembeddedArticles(ctx context.Context, schema search.ArticleSchema) ([]ArticleText, error) {
	existing, err := r.existingKeys(ctx, schema, search.ArticleTypeArticle)
	if err != nil {
		return nil, err
	}

	type group struct {
		ref   search.ArticleRef
		parts []string
	}
	var order []string
	groups := make(map[string]*group)
	add := func(srn, artID, text string) {
		ref := search.ArticleRef{SRN: srn, ArtID: artID, TypeCD: search.ArticleTypeArticle, TypeID: artID, Schema: schema}
		k := vectorKey(ref)
		if _, ok := existing[k]; ok {
			return
		}
		g, ok := groups[k]
		if !ok {
			g = &group{ref: ref}
			groups[k] = g
			order = append(order, k)
		}
		g.parts = append(g.parts, text)
	}

	switch schema.(type) {
	case search.FederalArticleSchema:
		var rows []model.FederalArticle
		err = r.db.WithContext(ctx).Where("text_w_footnotes IS NOT NULL").Order("id").Find(&rows).Error
		for _, a := range rows {
			add(a.SRN, a.ArticleID, federalRowText(a))
		}
	case search.CantonalArticleSchema:
		var rows []model.CantonalArticle
		err = r.db.WithContext(ctx).Where("paragraph_text IS NOT NULL").Order("id").Find(&rows).Error
		for _, a := range rows {
			add(a.SystematicNumber, a.ArticleNumber, cantonalRowText(a))
		}
	}
	if err != nil {
		return nil, storageErr("find unembedded articles", err)
	}

	out := make([]ArticleText, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out = append(out, ArticleText{Ref: g.ref, Text: joinNonEmpty(g.parts...)})
	}
	return out, nil
}

func (r *articleRepository) InsertVector(ctx context.Context, ref search.ArticleRef, blob []byte) (int64, error) {
	row := model.ArticleVector{
		SRN:         ref.SRN,
		ArtID:       ref.ArtID,
		TypeCD:      ref.TypeCD,
		TypeID:      ref.TypeID,
		Vector:      blob,
		SourceTable: ref.Schema.Table(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, storageErr("insert article vector", err)
	}
	return row.ID, nil
}

func (r *articleRepository) existingKeys(ctx context.Context, schema search.ArticleSchema, typeCD string) (map[string]struct{}, error) {
	var rows []model.ArticleVector
	err := r.db.WithContext(ctx).
		Select("srn, art_id, type_cd, type_id").
		Where("source_table = ? AND type_cd = ?", schema.Table(), typeCD).
		Find(&rows).Error
	if err != nil {
		return nil, storageErr("load article vector keys", err)
	}
	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keys[vectorKey(search.ArticleRef{SRN: row.SRN, ArtID: row.ArtID, TypeCD: row.TypeCD, TypeID: row.TypeID, Schema: schema})] = struct{}{}
	}
	return keys, nil
}

func vectorKey(ref search.ArticleRef) string {
	return strings.Join([]string{ref.SRN, ref.ArtID, ref.TypeCD, ref.TypeID}, "\x00")
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
