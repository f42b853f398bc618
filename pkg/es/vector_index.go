package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// maxCandidates is the Elasticsearch ceiling for knn.num_candidates.
const maxCandidates = 10000

// VectorIndex keeps one document per (row, category) vector and ranks a category with
// approximate kNN. It implements search.CategoryRanker.
type VectorIndex struct {
	client *elasticsearch.Client
	index  string
	dims   int
}

// NewVectorIndex wraps an existing index created by EnsureIndex.
func NewVectorIndex(client *elasticsearch.Client, index string, dims int) *VectorIndex {
	return &VectorIndex{client: client, index: index, dims: dims}
}

type searchHit struct {
	Score  *float64               `json:"_score"`
	Source model.EsVectorDocument `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// RankCategory returns the topN most similar vectors of category. Elasticsearch reports
// cosine as (1+cos)/2; scores are converted back to cosine similarity.
func (v *VectorIndex) RankCategory(ctx context.Context, query []float32, category search.Category, topN int) ([]search.RankedHit, error) {
	if topN <= 0 {
		return []search.RankedHit{}, nil
	}
	if v.dims > 0 && len(query) != v.dims {
		return nil, &search.DecodeError{Category: category, Len: len(query), Want: v.dims, Err: search.ErrDimensionMismatch}
	}

	body, err := json.Marshal(v.searchBody(query, category, topN))
	if err != nil {
		return nil, fmt.Errorf("marshal knn query: %w", err)
	}
	res, err := v.client.Search(
		v.client.Search.WithContext(ctx),
		v.client.Search.WithIndex(v.index),
		v.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, storageErr("es search "+string(category), err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		log.Errorf("[ES] search returned %s: %s", res.Status(), string(b))
		return nil, storageErr("es search "+string(category), fmt.Errorf("status %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, storageErr("es decode "+string(category), err)
	}

	hits := make([]search.RankedHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		key, err := keyOf(h.Source)
		if err != nil {
			log.Warnf("[ES] skipping document %s: %v", h.Source.DocID, err)
			continue
		}
		score := 0.0
		if h.Score != nil {
			score = search.SimilarityFromNormalizedCosine(*h.Score)
		}
		hits = append(hits, search.RankedHit{Key: key, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

func (v *VectorIndex) searchBody(query []float32, category search.Category, topN int) map[string]interface{} {
	filter := map[string]interface{}{"term": map[string]interface{}{"category": string(category)}}
	if search.IsZero(query) {
		// cosine is undefined for a zero query: every vector scores 0, ordered by id
		return map[string]interface{}{
			"size":    topN,
			"query":   map[string]interface{}{"constant_score": map[string]interface{}{"filter": filter, "boost": 0}},
			"sort":    []interface{}{map[string]interface{}{"vector_id": "asc"}},
			"_source": map[string]interface{}{"excludes": []string{"vector"}},
		}
	}
	candidates := topN * 10
	if candidates < 100 {
		candidates = 100
	}
	if candidates > maxCandidates {
		candidates = maxCandidates
	}
	k := topN
	if k > candidates {
		k = candidates
	}
	return map[string]interface{}{
		"size": k,
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   query,
			"k":              k,
			"num_candidates": candidates,
			"filter":         filter,
		},
		"_source": map[string]interface{}{"excludes": []string{"vector"}},
	}
}

func keyOf(doc model.EsVectorDocument) (search.Key, error) {
	if doc.Category != string(search.CategoryArticles) {
		return search.Key{ID: doc.SummaryID, ParentID: doc.ParsedID}, nil
	}
	schema, err := search.ParseArticleSchema(doc.SourceTable)
	if err != nil {
		return search.Key{}, err
	}
	id := doc.VectorID
	if id == 0 {
		var err error
		if id, err = strconv.ParseInt(strings.TrimPrefix(doc.DocID, "article-"), 10, 64); err != nil {
			return search.Key{}, fmt.Errorf("malformed article doc id %q", doc.DocID)
		}
	}
	ref := &search.ArticleRef{SRN: doc.SRN, ArtID: doc.ArtID, TypeCD: doc.TypeCD, TypeID: doc.TypeID, Schema: schema}
	return search.Key{ID: id, Article: ref}, nil
}

// MirrorSummary indexes one document per non-empty field vector of sum. A failing field
// does not stop the others; all failures are returned joined.
func (v *VectorIndex) MirrorSummary(ctx context.Context, sum *model.Summary, vectors map[search.Category][]float32) error {
	var errs []error
	for _, c := range search.JudgmentCategories() {
		vec := vectors[c]
		if len(vec) == 0 {
			continue
		}
		doc := model.EsVectorDocument{
			DocID:     fmt.Sprintf("summary-%d-%s", sum.ID, c.Column()),
			Category:  string(c),
			VectorID:  sum.ID,
			SummaryID: sum.ID,
			ParsedID:  sum.ParsedID,
			Vector:    indexable(vec),
			Model:     sum.Model,
		}
		if err := v.indexDocument(ctx, doc); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MirrorArticle indexes an article vector under the id it has in articles_vector.
func (v *VectorIndex) MirrorArticle(ctx context.Context, id int64, ref search.ArticleRef, vector []float32) error {
	return v.indexDocument(ctx, model.EsVectorDocument{
		DocID:       fmt.Sprintf("article-%d", id),
		Category:    string(search.CategoryArticles),
		SRN:         ref.SRN,
		ArtID:       ref.ArtID,
		TypeCD:      ref.TypeCD,
		TypeID:      ref.TypeID,
		VectorID:    id,
		SourceTable: ref.Schema.Table(),
		Vector:      indexable(vector),
	})
}

// indexable drops zero vectors: the document is still listed for zero queries but kNN
// never returns it.
func indexable(vec []float32) []float32 {
	if search.IsZero(vec) {
		return nil
	}
	return vec
}

func (v *VectorIndex) indexDocument(ctx context.Context, doc model.EsVectorDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      v.index,
		DocumentID: doc.DocID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, v.client)
	if err != nil {
		return storageErr("es index "+doc.DocID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] indexing %s returned %s", doc.DocID, res.String())
		return storageErr("es index "+doc.DocID, fmt.Errorf("status %s", res.Status()))
	}
	return nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, search.ErrStorageUnavailable, err)
}
