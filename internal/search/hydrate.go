package search

import (
	"context"
	"errors"

	"github.com/mesopotato/enrich-justice/pkg/log"
	"golang.org/x/sync/errgroup"
)

// JudgmentRecord is the display form of a judgment: the generated fields plus intake provenance.
type JudgmentRecord struct {
	SummaryID  int64  `json:"id"`
	ParsedID   int64  `json:"parsed_id"`
	Summary    string `json:"text"`
	Facts      string `json:"sachverhalt"`
	Ruling     string `json:"entscheid"`
	LegalBasis string `json:"grundlagen"`
	Claim      string `json:"forderung"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
}

// ArticleRecord is the display form of a statute article with its paragraphs joined.
type ArticleRecord struct {
	SRN            string `json:"srn"`
	ShortName      string `json:"short_name"`
	BookName       string `json:"book_name"`
	PartName       string `json:"part_name"`
	TitleName      string `json:"title_name"`
	SubTitleName   string `json:"sub_title_name"`
	ChapterName    string `json:"chapter_name"`
	SubChapterName string `json:"sub_chapter_name"`
	SectionName    string `json:"section_name"`
	SubSectionName string `json:"sub_section_name"`
	ArtID          string `json:"art_id"`
	FullArticle    string `json:"full_article"`
	SourceTable    string `json:"source_table"`
}

// JudgmentHit is a merged hit with its hydrated record.
type JudgmentHit struct {
	MergedHit
	Record JudgmentRecord
}

// ArticleHit is an article hit with its hydrated record.
type ArticleHit struct {
	RankedHit
	Record ArticleRecord
}

// JudgmentSource loads judgment text by key. A missing row is reported as ErrNotFound.
type JudgmentSource interface {
	FindJudgment(ctx context.Context, key Key) (*JudgmentRecord, error)
}

// ArticleSource loads article text by reference. A missing article is reported as ErrNotFound.
type ArticleSource interface {
	FindArticle(ctx context.Context, ref ArticleRef) (*ArticleRecord, error)
}

// Hydrator turns ranked hits into display records using a bounded number of workers.
type Hydrator struct {
	judgments JudgmentSource
	articles  ArticleSource
	workers   int
}

// NewHydrator creates a Hydrator. workers <= 0 means one worker.
func NewHydrator(judgments JudgmentSource, articles ArticleSource, workers int) *Hydrator {
	if workers <= 0 {
		workers = 1
	}
	return &Hydrator{judgments: judgments, articles: articles, workers: workers}
}

// HydrateJudgments resolves hits in rank order. Hits whose rows are missing or whose store
// read failed are dropped and returned as warnings. Decode errors and context errors abort.
func (h *Hydrator) HydrateJudgments(ctx context.Context, hits []MergedHit) ([]JudgmentHit, []error, error) {
	return hydrateOrdered(ctx, h.workers, hits,
		func(ctx context.Context, hit MergedHit) (JudgmentHit, error) {
			rec, err := h.judgments.FindJudgment(ctx, hit.Key)
			if err != nil {
				return JudgmentHit{}, err
			}
			return JudgmentHit{MergedHit: hit, Record: *rec}, nil
		},
		func(hit MergedHit) (Category, string) { return hit.Category, hit.Key.String() },
	)
}

// HydrateArticles resolves article hits in rank order with the same drop rules as HydrateJudgments.
func (h *Hydrator) HydrateArticles(ctx context.Context, hits []RankedHit) ([]ArticleHit, []error, error) {
	return hydrateOrdered(ctx, h.workers, hits,
		func(ctx context.Context, hit RankedHit) (ArticleHit, error) {
			if hit.Key.Article == nil {
				return ArticleHit{}, ErrNotFound
			}
			rec, err := h.articles.FindArticle(ctx, *hit.Key.Article)
			if err != nil {
				return ArticleHit{}, err
			}
			return ArticleHit{RankedHit: hit, Record: *rec}, nil
		},
		func(hit RankedHit) (Category, string) { return CategoryArticles, hit.Key.String() },
	)
}

func hydrateOrdered[H, R any](
	ctx context.Context,
	workers int,
	hits []H,
	fetch func(context.Context, H) (R, error),
	describe func(H) (Category, string),
) ([]R, []error, error) {
	results := make([]R, len(hits))
	failures := make([]error, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, hit := range hits {
		g.Go(func() error {
			r, err := fetch(gctx, hit)
			if err == nil {
				results[i] = r
				return nil
			}
			category, key := describe(hit)
			stageErr := &StageError{Stage: StageHydrating, Category: category, Key: key, Err: err}
			if IsDecodeError(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return stageErr
			}
			failures[i] = stageErr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]R, 0, len(hits))
	var warnings []error
	for i := range hits {
		if failures[i] != nil {
			log.Warnf("[Hydrator] dropping hit: %v", failures[i])
			warnings = append(warnings, failures[i])
			continue
		}
		out = append(out, results[i])
	}
	return out, warnings, nil
}
