package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mesopotato/enrich-justice/pkg/log"
	"golang.org/x/sync/errgroup"
)

// State is a step of a single query's lifecycle.
type State int

const (
	StateAwaitingQuery State = iota
	StateEmbedding
	StateRankingPerCategory
	StateMerging
	StateHydrating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingQuery:
		return "AwaitingQuery"
	case StateEmbedding:
		return "Embedding"
	case StateRankingPerCategory:
		return "RankingPerCategory"
	case StateMerging:
		return "Merging"
	case StateHydrating:
		return "Hydrating"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer is notified of every state the pipeline enters, in order.
type Observer func(State)

// Embedder turns text into a vector.
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// FailurePolicy decides what happens when a single category cannot be ranked.
type FailurePolicy int

const (
	// FailLenient drops the failed category with a warning. The query still fails when no
	// judgment category could be ranked at all.
	FailLenient FailurePolicy = iota
	// FailStrict fails the whole query on the first category failure.
	FailStrict
)

// ParseFailurePolicy parses "lenient" (the default for "") or "strict".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return FailLenient, nil
	case "strict":
		return FailStrict, nil
	}
	return FailLenient, fmt.Errorf("unknown category failure policy %q", s)
}

func (p FailurePolicy) String() string {
	if p == FailStrict {
		return "strict"
	}
	return "lenient"
}

// Options tunes a Pipeline. Zero values fall back to the defaults below.
type Options struct {
	DefaultTopN    int
	MaxTopN        int
	Dimensions     int
	Timeout        time.Duration
	FailurePolicy  FailurePolicy
	Categories     []Category
	SearchArticles bool
}

const (
	defaultTopN    = 5
	defaultMaxTopN = 100
)

func (o Options) withDefaults() Options {
	if o.DefaultTopN <= 0 {
		o.DefaultTopN = defaultTopN
	}
	if o.MaxTopN <= 0 {
		o.MaxTopN = defaultMaxTopN
	}
	if len(o.Categories) == 0 {
		o.Categories = JudgmentCategories()
	}
	return o
}

// Query is a single similarity search request.
type Query struct {
	Text string
	TopN int
}

// Result holds the ordered judgments and articles for a query.
type Result struct {
	Documents []JudgmentHit
	Articles  []ArticleHit
	Warnings  []error
}

// Pipeline runs embed, rank per category, merge and hydrate for one query at a time.
type Pipeline struct {
	embedder Embedder
	ranker   CategoryRanker
	hydrator *Hydrator
	opts     Options
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(embedder Embedder, ranker CategoryRanker, hydrator *Hydrator, opts Options) *Pipeline {
	return &Pipeline{embedder: embedder, ranker: ranker, hydrator: hydrator, opts: opts.withDefaults()}
}

// TopN clamps a requested result count to the configured bounds.
func (p *Pipeline) TopN(requested int) int {
	if requested <= 0 {
		return p.opts.DefaultTopN
	}
	if requested > p.opts.MaxTopN {
		return p.opts.MaxTopN
	}
	return requested
}

// Run executes the query. On failure no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, q Query, observe Observer) (*Result, error) {
	if observe == nil {
		observe = func(State) {}
	}
	observe(StateAwaitingQuery)
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	res, err := p.run(ctx, q, observe)
	if err != nil {
		observe(StateFailed)
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		log.Errorf("[QueryPipeline] query failed: %v", err)
		return nil, err
	}
	observe(StateDone)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, q Query, observe Observer) (*Result, error) {
	topN := p.TopN(q.TopN)
	log.Infof("[QueryPipeline] start, query: '%s', topN: %d", q.Text, topN)

	observe(StateEmbedding)
	vector, err := p.embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	observe(StateRankingPerCategory)
	lists, articleHits, warnings, err := p.rankAll(ctx, vector, topN)
	if err != nil {
		return nil, err
	}

	observe(StateMerging)
	merged := Merge(lists, topN)
	log.Infof("[QueryPipeline] merged %d categories into %d hits", len(lists), len(merged))
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageMerging, Err: err}
	}

	observe(StateHydrating)
	docs, docWarnings, err := p.hydrator.HydrateJudgments(ctx, merged)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, docWarnings...)

	var articles []ArticleHit
	if p.opts.SearchArticles {
		var artWarnings []error
		articles, artWarnings, err = p.hydrator.HydrateArticles(ctx, articleHits)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, artWarnings...)
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageHydrating, Err: err}
	}

	log.Infof("[QueryPipeline] done, %d documents, %d articles, %d warnings", len(docs), len(articles), len(warnings))
	return &Result{Documents: docs, Articles: articles, Warnings: warnings}, nil
}

func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &StageError{Stage: StageEmbedding, Err: ctxErr}
		}
		return nil, &StageError{Stage: StageEmbedding, Err: fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)}
	}
	if len(vector) == 0 {
		return nil, &StageError{Stage: StageEmbedding, Err: ErrEmbeddingFailed}
	}
	if p.opts.Dimensions > 0 && len(vector) != p.opts.Dimensions {
		de := &DecodeError{Len: len(vector), Want: p.opts.Dimensions, Err: ErrDimensionMismatch}
		return nil, &StageError{Stage: StageEmbedding, Err: fmt.Errorf("%w: %w", ErrEmbeddingFailed, de)}
	}
	return vector, nil
}

// rankAll fans out one ranking per category. Judgment categories and the article
// category are ranked concurrently; nothing is shared except the result maps.
func (p *Pipeline) rankAll(ctx context.Context, vector []float32, topN int) (map[Category][]RankedHit, []RankedHit, []error, error) {
	categories := append([]Category(nil), p.opts.Categories...)
	if p.opts.SearchArticles {
		categories = append(categories, CategoryArticles)
	}

	var (
		mu       sync.Mutex
		lists    = make(map[Category][]RankedHit, len(categories))
		failures = make(map[Category]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range categories {
		g.Go(func() error {
			hits, err := p.ranker.RankCategory(gctx, vector, c, topN)
			if err != nil {
				stageErr := &StageError{Stage: StageRanking, Category: c, Err: err}
				if IsDecodeError(err) || gctx.Err() != nil || p.opts.FailurePolicy == FailStrict {
					return stageErr
				}
				mu.Lock()
				failures[c] = stageErr
				mu.Unlock()
				return nil
			}
			mu.Lock()
			lists[c] = hits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, nil, &StageError{Stage: StageRanking, Err: ctxErr}
		}
		return nil, nil, nil, err
	}

	var warnings []error
	for _, c := range categories {
		if err, ok := failures[c]; ok {
			log.Warnf("[QueryPipeline] category skipped: %v", err)
			warnings = append(warnings, err)
		}
	}
	judgmentOK := false
	for _, c := range p.opts.Categories {
		if _, ok := lists[c]; ok {
			judgmentOK = true
			break
		}
	}
	if !judgmentOK {
		return nil, nil, nil, &StageError{Stage: StageRanking, Err: fmt.Errorf("%w: no category could be ranked", ErrStorageUnavailable)}
	}

	articleHits := lists[CategoryArticles]
	delete(lists, CategoryArticles)
	return lists, articleHits, warnings, nil
}
