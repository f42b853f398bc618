package search

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int64, v ...float32) VectorRecord {
	return VectorRecord{Key: Key{ID: id, ParentID: id * 10}, Category: CategorySummary, Vector: v}
}

func ids(hits []RankedHit) []int64 {
	out := make([]int64, len(hits))
	for i, h := range hits {
		out[i] = h.Key.ID
	}
	return out
}

func TestRankConcreteScenario(t *testing.T) {
	candidates := []VectorRecord{
		rec(1, 1, 0, 0),  // A
		rec(2, 0, 1, 0),  // B
		rec(3, -1, 0, 0), // C
	}
	hits, err := Rank([]float32{1, 0, 0}, candidates, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, ids(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.0, hits[1].Score, 1e-9)
}

func TestRankOrderAndBound(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	query := randomVector(r, 16)
	var candidates []VectorRecord
	for i := 0; i < 40; i++ {
		candidates = append(candidates, rec(int64(i), randomVector(r, 16)...))
	}
	for _, n := range []int{1, 5, 40, 100} {
		hits, err := Rank(query, candidates, n)
		require.NoError(t, err)
		assert.Len(t, hits, min(n, len(candidates)))
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
	}
}

func TestRankTiesKeepCandidateOrder(t *testing.T) {
	candidates := []VectorRecord{rec(5, 1, 0), rec(3, 2, 0), rec(9, 0, 1), rec(1, 3, 0)}
	hits, err := Rank([]float32{1, 0}, candidates, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 3, 1, 9}, ids(hits))
}

func TestRankEmptyCandidates(t *testing.T) {
	hits, err := Rank([]float32{1, 0}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRankZeroQuery(t *testing.T) {
	hits, err := Rank([]float32{0, 0}, []VectorRecord{rec(1, 1, 0), rec(2, 0, 1)}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(hits))
	for _, h := range hits {
		assert.Equal(t, 0.0, h.Score)
	}
}

func TestRankDimensionMismatch(t *testing.T) {
	query := make([]float32, DefaultDimensions)
	query[0] = 1
	_, err := Rank(query, []VectorRecord{rec(1, make([]float32, 100)...)}, 5)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.Contains(t, err.Error(), "category=Summary")
}

func TestRankDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	query := randomVector(r, 8)
	var candidates []VectorRecord
	for i := 0; i < 25; i++ {
		candidates = append(candidates, rec(int64(i), randomVector(r, 8)...))
	}
	a, err := Rank(query, candidates, 10)
	require.NoError(t, err)
	b, err := Rank(query, candidates, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func randomVector(r *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = r.Float32()*2 - 1
	}
	return v
}
