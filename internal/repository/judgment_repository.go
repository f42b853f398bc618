package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"gorm.io/gorm"
)

// JudgmentRepository reads and writes judgments and their per-field vectors.
type JudgmentRepository interface {
	search.JudgmentSource

	// EnumerateVectors returns every stored vector of a judgment category, decoded.
	EnumerateVectors(ctx context.Context, category search.Category) ([]search.VectorRecord, error)

	FindPendingParsedIDs(ctx context.Context, language string, maxTokens int, model string) ([]int64, error)
	FindParsed(ctx context.Context, id int64) (*model.ParsedDocument, error)
	UpdateParsedText(ctx context.Context, id int64, text string, tokens int) error
	IsSummarized(ctx context.Context, parsedID int64, model string) (bool, error)
	CreateSummary(ctx context.Context, s *model.Summary) error
	FindSummary(ctx context.Context, id int64) (*model.Summary, error)
	FindSummariesMissingVectors(ctx context.Context, limit int) ([]model.Summary, error)
	UpdateVector(ctx context.Context, summaryID int64, category search.Category, blob []byte) error
}

type judgmentRepository struct {
	db   *gorm.DB
	dims int
}

// NewJudgmentRepository creates a JudgmentRepository. dims is the expected vector length;
// dims <= 0 disables the length check.
func NewJudgmentRepository(db *gorm.DB, dims int) JudgmentRepository {
	return &judgmentRepository{db: db, dims: dims}
}

type summaryVectorRow struct {
	ID       int64
	ParsedID int64
	Vector   []byte
}

func (r *judgmentRepository) EnumerateVectors(ctx context.Context, category search.Category) ([]search.VectorRecord, error) {
	if !category.IsJudgment() {
		return nil, fmt.Errorf("category %s is not a judgment category", category)
	}
	col := category.Column()
	var rows []summaryVectorRow
	err := r.db.WithContext(ctx).
		Model(&model.Summary{}).
		Select("id, parsed_id, " + col + " AS vector").
		Where(col + " IS NOT NULL").
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("enumerate "+string(category), err)
	}

	records := make([]search.VectorRecord, 0, len(rows))
	for _, row := range rows {
		key := search.Key{ID: row.ID, ParentID: row.ParsedID}
		v, err := search.DecodeVector(row.Vector, r.dims)
		if err != nil {
			var de *search.DecodeError
			if errors.As(err, &de) {
				de.Category = category
				de.Key = key.String()
			}
			return nil, err
		}
		records = append(records, search.VectorRecord{Key: key, Category: category, Vector: v})
	}
	return records, nil
}

type judgmentRow struct {
	SummaryID   int64
	ParsedID    int64
	SummaryText string
	Sachverhalt string
	Entscheid   string
	Grundlagen  string
	Forderung   string
	FileName    string
	FilePath    string
}

// FindJudgment joins the summary to its parsed document and, by file name, to the raw
// intake record. A judgment without intake record is still returned with an empty claim.
func (r *judgmentRepository) FindJudgment(ctx context.Context, key search.Key) (*search.JudgmentRecord, error) {
	var rows []judgmentRow
	err := r.db.WithContext(ctx).
		Table("e_bern_summary AS s").
		Select(`s.id AS summary_id, s.parsed_id AS parsed_id,
			COALESCE(s.summary_text, '') AS summary_text,
			COALESCE(s.sachverhalt, '') AS sachverhalt,
			COALESCE(s.entscheid, '') AS entscheid,
			COALESCE(s.grundlagen, '') AS grundlagen,
			COALESCE(r.forderung, '') AS forderung,
			COALESCE(p.file_name, '') AS file_name,
			COALESCE(p.file_path, '') AS file_path`).
		Joins("JOIN e_bern_parsed AS p ON s.parsed_id = p.id").
		Joins("LEFT JOIN e_bern_raw AS r ON p.file_name = r.file_name").
		Where("s.id = ?", key.ID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("find judgment", err)
	}
	if len(rows) == 0 {
		return nil, search.ErrNotFound
	}
	row := rows[0]
	return &search.JudgmentRecord{
		SummaryID:  row.SummaryID,
		ParsedID:   row.ParsedID,
		Summary:    row.SummaryText,
		Facts:      row.Sachverhalt,
		Ruling:     row.Entscheid,
		LegalBasis: row.Grundlagen,
		Claim:      row.Forderung,
		FileName:   row.FileName,
		FilePath:   row.FilePath,
	}, nil
}

// FindPendingParsedIDs lists parsed documents in the given language, shorter than maxTokens,
// that have no summary produced by model yet. Documents whose text was never extracted
// (tokens NULL) are included so the processor can extract them first.
func (r *judgmentRepository) FindPendingParsedIDs(ctx context.Context, language string, maxTokens int, modelName string) ([]int64, error) {
	var ids []int64
	sub := r.db.Model(&model.Summary{}).Select("1").Where("e_bern_summary.parsed_id = e_bern_parsed.id AND e_bern_summary.model = ?", modelName)
	err := r.db.WithContext(ctx).
		Model(&model.ParsedDocument{}).
		Where("language = ? AND (tokens IS NULL OR tokens < ?)", language, maxTokens).
		Where("NOT EXISTS (?)", sub).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, storageErr("find pending parsed", err)
	}
	return ids, nil
}

func (r *judgmentRepository) FindParsed(ctx context.Context, id int64) (*model.ParsedDocument, error) {
	var doc model.ParsedDocument
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, search.ErrNotFound
		}
		return nil, storageErr("find parsed", err)
	}
	return &doc, nil
}

// UpdateParsedText stores text extracted on demand for a document that had none.
func (r *judgmentRepository) UpdateParsedText(ctx context.Context, id int64, text string, tokens int) error {
	err := r.db.WithContext(ctx).
		Model(&model.ParsedDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"text_cleaned": text, "tokens": tokens}).Error
	if err != nil {
		return storageErr("update parsed text", err)
	}
	return nil
}

func (r *judgmentRepository) IsSummarized(ctx context.Context, parsedID int64, modelName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Summary{}).
		Where("parsed_id = ? AND model = ?", parsedID, modelName).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, storageErr("check summarized", err)
	}
	return count > 0, nil
}

func (r *judgmentRepository) CreateSummary(ctx context.Context, s *model.Summary) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return storageErr("create summary", err)
	}
	return nil
}

func (r *judgmentRepository) FindSummary(ctx context.Context, id int64) (*model.Summary, error) {
	var s model.Summary
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, search.ErrNotFound
		}
		return nil, storageErr("find summary", err)
	}
	return &s, nil
}

// FindSummariesMissingVectors returns summaries with at least one empty vector column.
func (r *judgmentRepository) FindSummariesMissingVectors(ctx context.Context, limit int) ([]model.Summary, error) {
	var out []model.Summary
	q := r.db.WithContext(ctx).
		Where("summary_vector IS NULL OR sachverhalt_vector IS NULL OR entscheid_vector IS NULL OR grundlagen_vector IS NULL").
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storageErr("find summaries missing vectors", err)
	}
	return out, nil
}

func (r *judgmentRepository) UpdateVector(ctx context.Context, summaryID int64, category search.Category, blob []byte) error {
	if !category.IsJudgment() {
		return fmt.Errorf("category %s is not a judgment category", category)
	}
	err := r.db.WithContext(ctx).
		Model(&model.Summary{}).
		Where("id = ?", summaryID).
		Update(category.Column(), blob).Error
	if err != nil {
		return storageErr("update "+category.Column(), err)
	}
	return nil
}
