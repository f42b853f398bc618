package es

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu       sync.Mutex
	searches []map[string]interface{}
	indexed  map[string]model.EsVectorDocument
	failDocs map[string]bool
	response string
}

func newFakeCluster(t *testing.T, response string) (*fakeCluster, *elasticsearch.Client) {
	t.Helper()
	fc := &fakeCluster{indexed: map[string]model.EsVectorDocument{}, failDocs: map[string]bool{}, response: response}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		fc.mu.Lock()
		defer fc.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/_search"):
			var body map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			fc.searches = append(fc.searches, body)
			fmt.Fprint(w, fc.response)
		case strings.Contains(r.URL.Path, "/_doc/"):
			var doc model.EsVectorDocument
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			if fc.failDocs[doc.DocID] || (doc.Vector != nil && search.IsZero(doc.Vector)) {
				// cosine dense_vector fields reject zero magnitude vectors
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":{"type":"document_parsing_exception"}}`)
				return
			}
			fc.indexed[doc.DocID] = doc
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"_id":%q,"result":"created"}`, doc.DocID)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return fc, client
}

func TestRankCategoryConvertsScores(t *testing.T) {
	fc, client := newFakeCluster(t, `{"hits":{"hits":[
		{"_score":0.75,"_source":{"doc_id":"summary-2-entscheid_vector","category":"Entscheide","summary_id":2,"parsed_id":20}},
		{"_score":1.0,"_source":{"doc_id":"summary-1-entscheid_vector","category":"Entscheide","summary_id":1,"parsed_id":10}}
	]}}`)
	idx := NewVectorIndex(client, "judgment_vectors", 3)

	hits, err := idx.RankCategory(context.Background(), []float32{1, 0, 0}, search.CategoryRuling, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, search.Key{ID: 1, ParentID: 10}, hits[0].Key)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-9)

	require.Len(t, fc.searches, 1)
	knn := fc.searches[0]["knn"].(map[string]interface{})
	assert.EqualValues(t, 5, knn["k"])
	assert.EqualValues(t, 100, knn["num_candidates"])
	filter := knn["filter"].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "Entscheide", filter["category"])
}

func TestRankCategoryArticles(t *testing.T) {
	_, client := newFakeCluster(t, `{"hits":{"hits":[
		{"_score":0.9,"_source":{"doc_id":"article-7","category":"Artikel","srn":"220","art_id":"41","type_cd":"abs","type_id":"3","source_table":"articles"}},
		{"_score":0.8,"_source":{"doc_id":"article-8","category":"Artikel","srn":"x","source_table":"articles_history"}}
	]}}`)
	idx := NewVectorIndex(client, "judgment_vectors", 3)

	hits, err := idx.RankCategory(context.Background(), []float32{0, 1, 0}, search.CategoryArticles, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0].Key.Article)
	assert.Equal(t, int64(7), hits[0].Key.ID)
	assert.Equal(t, search.FederalArticleSchema{}, hits[0].Key.Article.Schema)
	assert.Equal(t, "41", hits[0].Key.Article.ArtID)
}

func TestRankCategoryZeroQuery(t *testing.T) {
	fc, client := newFakeCluster(t, `{"hits":{"hits":[
		{"_score":null,"_source":{"doc_id":"summary-1-summary_vector","category":"Summary","summary_id":1,"parsed_id":10}}
	]}}`)
	idx := NewVectorIndex(client, "judgment_vectors", 3)

	hits, err := idx.RankCategory(context.Background(), []float32{0, 0, 0}, search.CategorySummary, 2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.0, hits[0].Score)
	_, hasKnn := fc.searches[0]["knn"]
	assert.False(t, hasKnn)
	assert.Equal(t, []interface{}{map[string]interface{}{"vector_id": "asc"}}, fc.searches[0]["sort"])
}

func TestRankCategoryZeroQueryArticlesUseNumericID(t *testing.T) {
	_, client := newFakeCluster(t, `{"hits":{"hits":[
		{"_score":null,"_source":{"doc_id":"article-9","vector_id":9,"category":"Artikel","srn":"220","source_table":"articles"}},
		{"_score":null,"_source":{"doc_id":"article-10","vector_id":10,"category":"Artikel","srn":"220","source_table":"articles"}}
	]}}`)
	idx := NewVectorIndex(client, "judgment_vectors", 3)

	hits, err := idx.RankCategory(context.Background(), []float32{0, 0, 0}, search.CategoryArticles, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(9), hits[0].Key.ID)
	assert.Equal(t, int64(10), hits[1].Key.ID)
}

func TestRankCategoryDimensionMismatch(t *testing.T) {
	_, client := newFakeCluster(t, `{}`)
	_, err := NewVectorIndex(client, "judgment_vectors", 1536).RankCategory(context.Background(), make([]float32, 100), search.CategorySummary, 2)
	assert.True(t, search.IsDecodeError(err))
}

func TestRankCategoryClusterError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	}))
	defer srv.Close()
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 0, DisableRetry: true})
	require.NoError(t, err)

	_, err = NewVectorIndex(client, "judgment_vectors", 0).RankCategory(context.Background(), []float32{1}, search.CategoryFacts, 1)
	assert.ErrorIs(t, err, search.ErrStorageUnavailable)
}

func TestMirrorSummaryIndexesEachField(t *testing.T) {
	fc, client := newFakeCluster(t, `{}`)
	idx := NewVectorIndex(client, "judgment_vectors", 2)

	sum := &model.Summary{ID: 4, ParsedID: 40, Model: "llama3.1"}
	err := idx.MirrorSummary(context.Background(), sum, map[search.Category][]float32{
		search.CategorySummary: {1, 0},
		search.CategoryRuling:  {0, 1},
	})
	require.NoError(t, err)
	assert.Len(t, fc.indexed, 2)
	doc := fc.indexed["summary-4-entscheid_vector"]
	assert.Equal(t, "Entscheide", doc.Category)
	assert.Equal(t, int64(40), doc.ParsedID)

	ref := search.ArticleRef{SRN: "220", ArtID: "41", TypeCD: "art", TypeID: "41", Schema: search.CantonalArticleSchema{}}
	require.NoError(t, idx.MirrorArticle(context.Background(), 9, ref, []float32{1, 1}))
	assert.Equal(t, "articles_bern", fc.indexed["article-9"].SourceTable)
}

func TestMirrorSummaryKeepsZeroVectorFieldsWithoutVector(t *testing.T) {
	fc, client := newFakeCluster(t, `{}`)
	idx := NewVectorIndex(client, "judgment_vectors", 3)

	sum := &model.Summary{ID: 1, ParsedID: 10}
	err := idx.MirrorSummary(context.Background(), sum, map[search.Category][]float32{
		search.CategorySummary:    {1, 0, 0},
		search.CategoryFacts:      {0, 1, 0},
		search.CategoryRuling:     {0, 0, 0},
		search.CategoryLegalBasis: {0, 0, 1},
	})
	require.NoError(t, err)
	require.Len(t, fc.indexed, 4)
	assert.Nil(t, fc.indexed["summary-1-entscheid_vector"].Vector)
	assert.Equal(t, []float32{0, 0, 1}, fc.indexed["summary-1-grundlagen_vector"].Vector)
	assert.Equal(t, int64(1), fc.indexed["summary-1-grundlagen_vector"].VectorID)

	ref := search.ArticleRef{SRN: "220", ArtID: "1", TypeCD: "abs", TypeID: "1", Schema: search.FederalArticleSchema{}}
	require.NoError(t, idx.MirrorArticle(context.Background(), 3, ref, []float32{0, 0, 0}))
	assert.Nil(t, fc.indexed["article-3"].Vector)
	assert.Equal(t, int64(3), fc.indexed["article-3"].VectorID)
}

func TestMirrorSummaryContinuesAfterFailedField(t *testing.T) {
	fc, client := newFakeCluster(t, `{}`)
	fc.failDocs["summary-2-sachverhalt_vector"] = true
	idx := NewVectorIndex(client, "judgment_vectors", 2)

	err := idx.MirrorSummary(context.Background(), &model.Summary{ID: 2, ParsedID: 20}, map[search.Category][]float32{
		search.CategorySummary:    {1, 0},
		search.CategoryFacts:      {0, 1},
		search.CategoryRuling:     {1, 1},
		search.CategoryLegalBasis: {1, 2},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "summary-2-sachverhalt_vector")
	assert.Len(t, fc.indexed, 3)
	assert.Contains(t, fc.indexed, "summary-2-grundlagen_vector")
}
