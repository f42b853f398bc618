package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/pkg/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	batches [][]tasks.EnrichmentTask
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, ts ...tasks.EnrichmentTask) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, ts)
	return nil
}

type fakePending struct {
	ids                []int64
	language, gotModel string
	maxTokens          int
}

func (f *fakePending) FindPendingParsedIDs(_ context.Context, language string, maxTokens int, model string) ([]int64, error) {
	f.language, f.maxTokens, f.gotModel = language, maxTokens, model
	return f.ids, nil
}

var adminCfg = config.EnrichmentConfig{Model: "llama3.1", Language: "de", MaxSourceTokens: 128000}

func TestEnqueuePendingJudgmentsBatches(t *testing.T) {
	ids := make([]int64, publishBatch+3)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	pub := &fakePublisher{}
	pending := &fakePending{ids: ids}

	res, err := NewAdminService(pub, pending, adminCfg).EnqueuePendingJudgments(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, len(ids), res.Tasks)
	assert.Len(t, res.TaskIDs, len(ids))
	require.Len(t, pub.batches, 2)
	assert.Len(t, pub.batches[1], 3)
	assert.Equal(t, "de", pending.language)
	assert.Equal(t, 128000, pending.maxTokens)
	assert.Equal(t, "llama3.1", pending.gotModel)
	assert.Equal(t, tasks.KindJudgment, pub.batches[0][0].Kind)
	assert.Equal(t, int64(1), pub.batches[0][0].ParsedID)
}

func TestEnqueueExplicitModel(t *testing.T) {
	pub := &fakePublisher{}
	pending := &fakePending{ids: []int64{4}}
	_, err := NewAdminService(pub, pending, adminCfg).EnqueuePendingJudgments(context.Background(), "mistral")
	require.NoError(t, err)
	assert.Equal(t, "mistral", pending.gotModel)
	assert.Equal(t, "mistral", pub.batches[0][0].Model)
}

func TestEnqueueArticlesAndVectors(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewAdminService(pub, &fakePending{}, adminCfg)

	res, err := svc.EnqueueArticleEmbedding(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tasks)
	_, err = svc.EnqueueSummaryVectors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tasks.KindArticles, pub.batches[0][0].Kind)
	assert.Equal(t, tasks.KindSummaryVectors, pub.batches[1][0].Kind)
}

func TestEnqueuePublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	_, err := NewAdminService(pub, &fakePending{}, adminCfg).EnqueueArticleEmbedding(context.Background())
	assert.Error(t, err)
}
