package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJudgments struct {
	rows   map[int64]JudgmentRecord
	errs   map[int64]error
	delay  func(id int64) time.Duration
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeJudgments) FindJudgment(ctx context.Context, key Key) (*JudgmentRecord, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay != nil {
		select {
		case <-time.After(f.delay(key.ID)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[key.ID]; ok {
		return nil, err
	}
	r, ok := f.rows[key.ID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

type fakeArticles map[string]ArticleRecord

func (f fakeArticles) FindArticle(_ context.Context, ref ArticleRef) (*ArticleRecord, error) {
	r, ok := f[ref.Schema.Table()+"/"+ref.SRN+"/"+ref.ArtID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func judgmentRows(ids ...int64) map[int64]JudgmentRecord {
	rows := make(map[int64]JudgmentRecord, len(ids))
	for _, id := range ids {
		rows[id] = JudgmentRecord{SummaryID: id, Summary: fmt.Sprintf("summary %d", id)}
	}
	return rows
}

func merged(ids ...int64) []MergedHit {
	out := make([]MergedHit, len(ids))
	for i, id := range ids {
		out[i] = MergedHit{RankedHit: RankedHit{Key: Key{ID: id}, Score: 1 - float64(i)/10}, Category: CategorySummary}
	}
	return out
}

func TestHydrateDropsMissingAndKeepsOrder(t *testing.T) {
	src := &fakeJudgments{rows: judgmentRows(1, 3)} // X=1, Y=2 missing, Z=3
	h := NewHydrator(src, fakeArticles{}, 4)

	docs, warnings, err := h.HydrateJudgments(context.Background(), merged(1, 2, 3))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(1), docs[0].Record.SummaryID)
	assert.Equal(t, int64(3), docs[1].Record.SummaryID)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrNotFound)
}

func TestHydrateOrderIndependentOfCompletion(t *testing.T) {
	src := &fakeJudgments{
		rows: judgmentRows(1, 2, 3, 4, 5, 6),
		// earlier ranks finish last
		delay: func(id int64) time.Duration { return time.Duration(7-id) * 5 * time.Millisecond },
	}
	h := NewHydrator(src, nil, 3)
	docs, _, err := h.HydrateJudgments(context.Background(), merged(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	require.Len(t, docs, 6)
	for i, d := range docs {
		assert.Equal(t, int64(i+1), d.Record.SummaryID)
		assert.Equal(t, d.Key.ID, d.Record.SummaryID)
	}
	assert.LessOrEqual(t, src.peak.Load(), int32(3))
}

func TestHydrateStorageFailureDropsHit(t *testing.T) {
	src := &fakeJudgments{
		rows: judgmentRows(1, 2),
		errs: map[int64]error{2: fmt.Errorf("%w: connection reset", ErrStorageUnavailable)},
	}
	docs, warnings, err := NewHydrator(src, nil, 2).HydrateJudgments(context.Background(), merged(1, 2))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, warnings, 1)
	var se *StageError
	require.True(t, errors.As(warnings[0], &se))
	assert.Equal(t, StageHydrating, se.Stage)
	assert.Equal(t, CategorySummary, se.Category)
	assert.ErrorIs(t, warnings[0], ErrStorageUnavailable)
}

func TestHydrateDecodeErrorIsSurfaced(t *testing.T) {
	src := &fakeJudgments{
		rows: judgmentRows(1),
		errs: map[int64]error{2: &DecodeError{Len: 3, Want: 4}},
	}
	_, _, err := NewHydrator(src, nil, 2).HydrateJudgments(context.Background(), merged(1, 2))
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestHydrateArticlesDispatchesOnSchema(t *testing.T) {
	articles := fakeArticles{
		"articles/220/41":     {SRN: "220", ArtID: "41", SourceTable: "articles"},
		"articles_bern/101/5": {SRN: "101", ArtID: "5", SourceTable: "articles_bern"},
	}
	hits := []RankedHit{
		{Key: Key{ID: 1, Article: &ArticleRef{SRN: "101", ArtID: "5", Schema: CantonalArticleSchema{}}}, Score: 0.9},
		{Key: Key{ID: 2, Article: &ArticleRef{SRN: "999", ArtID: "1", Schema: FederalArticleSchema{}}}, Score: 0.8},
		{Key: Key{ID: 3, Article: &ArticleRef{SRN: "220", ArtID: "41", Schema: FederalArticleSchema{}}}, Score: 0.7},
	}
	out, warnings, err := NewHydrator(nil, articles, 2).HydrateArticles(context.Background(), hits)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "articles_bern", out[0].Record.SourceTable)
	assert.Equal(t, "articles", out[1].Record.SourceTable)
	assert.Len(t, warnings, 1)
}
