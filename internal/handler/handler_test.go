package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/internal/service"
	"github.com/mesopotato/enrich-justice/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearchService struct {
	res *model.SearchResponseDTO
	err error
}

func (f *fakeSearchService) Search(_ context.Context, query string, topN int, observe search.Observer) (*model.SearchResponseDTO, error) {
	if observe != nil {
		observe(search.StateEmbedding)
		observe(search.StateDone)
	}
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.Query, res.TopN = query, topN
	return &res, nil
}

type fakeChatService struct{}

func (fakeChatService) StreamAnswer(_ context.Context, _ string, _ *model.SearchResponseDTO, w llm.MessageWriter, _ func() bool) error {
	return w.WriteMessage(websocket.TextMessage, []byte(`{"type":"chunk","chunk":"Antwort"}`))
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestSearchHandler(t *testing.T) {
	svc := &fakeSearchService{res: &model.SearchResponseDTO{Documents: []model.JudgmentResultDTO{{Rank: 1, SummaryID: 3, ScoreText: "0.9000"}}}}
	r := newEngine()
	r.GET("/search", NewSearchHandler(svc).Search)

	w, env := serve(r, http.MethodGet, "/search?query=Miete&topN=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	var dto model.SearchResponseDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, "Miete", dto.Query)
	assert.Equal(t, 7, dto.TopN)
	assert.Equal(t, "0.9000", dto.Documents[0].ScoreText)
}

func TestSearchHandlerErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrEmptyQuery, http.StatusBadRequest},
		{fmt.Errorf("%w: deadline", search.ErrTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("embed: %w", search.ErrEmbeddingFailed), http.StatusBadGateway},
		{&search.DecodeError{Category: search.CategorySummary, Len: 3, Want: 4}, http.StatusInternalServerError},
		{fmt.Errorf("rank: %w", search.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := newEngine()
		r.GET("/search", NewSearchHandler(&fakeSearchService{err: tc.err}).Search)
		w, env := serve(r, http.MethodGet, "/search?query=x", "")
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.status, env.Code)
	}
}

func TestSearchSocket(t *testing.T) {
	svc := &fakeSearchService{res: &model.SearchResponseDTO{Documents: []model.JudgmentResultDTO{}}}
	r := newEngine()
	r.GET("/ws", NewSearchSocketHandler(svc, fakeChatService{}).Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(socketRequest{Query: "Kündigung", TopN: 2, Answer: true}))
	var frames []map[string]interface{}
	for i := 0; i < 4; i++ {
		var f map[string]interface{}
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
	}
	assert.Equal(t, "state", frames[0]["type"])
	assert.Equal(t, "Embedding", frames[0]["state"])
	assert.Equal(t, "Done", frames[1]["state"])
	assert.Equal(t, "result", frames[2]["type"])
	assert.Equal(t, "Kündigung", frames[2]["data"].(map[string]interface{})["query"])
	assert.Equal(t, "chunk", frames[3]["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var f map[string]interface{}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "error", f["type"])
}

type fakeDocumentService struct{ err error }

func (f fakeDocumentService) GenerateDownloadURL(_ context.Context, id int64) (*model.DownloadInfoDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.DownloadInfoDTO{SummaryID: id, DownloadURL: "https://minio/x"}, nil
}

func TestDownloadDecision(t *testing.T) {
	r := newEngine()
	r.GET("/decisions/:id/download", NewDocumentHandler(fakeDocumentService{}).DownloadDecision)
	w, env := serve(r, http.MethodGet, "/decisions/5/download", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "https://minio/x")

	w, _ = serve(r, http.MethodGet, "/decisions/abc/download", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = newEngine()
	r.GET("/decisions/:id/download", NewDocumentHandler(fakeDocumentService{err: search.ErrNotFound}).DownloadDecision)
	w, _ = serve(r, http.MethodGet, "/decisions/5/download", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeUserService struct{}

func (fakeUserService) Login(username, password string) (string, string, error) {
	if username == "admin" && password == "pw" {
		return "access", "refresh", nil
	}
	return "", "", service.ErrInvalidCredentials
}

func (fakeUserService) RefreshToken(refresh string) (string, error) {
	if refresh == "refresh" {
		return "access2", nil
	}
	return "", errors.New("bad token")
}

func TestAuthHandler(t *testing.T) {
	h := NewAuthHandler(fakeUserService{})
	r := newEngine()
	r.POST("/login", h.Login)
	r.POST("/refresh", h.RefreshToken)

	w, env := serve(r, http.MethodPost, "/login", `{"username":"admin","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"access","refreshToken":"refresh"}`, string(env.Data))

	w, _ = serve(r, http.MethodPost, "/login", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = serve(r, http.MethodPost, "/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = serve(r, http.MethodPost, "/refresh", `{"refreshToken":"refresh"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"access2"}`, string(env.Data))
	w, _ = serve(r, http.MethodPost, "/refresh", `{"refreshToken":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeAdminService struct {
	model string
	err   error
}

func (f *fakeAdminService) EnqueuePendingJudgments(_ context.Context, modelName string) (*model.EnqueueResponseDTO, error) {
	f.model = modelName
	return &model.EnqueueResponseDTO{Tasks: 2, TaskIDs: []string{"a", "b"}}, f.err
}

func (f *fakeAdminService) EnqueueArticleEmbedding(context.Context) (*model.EnqueueResponseDTO, error) {
	return &model.EnqueueResponseDTO{Tasks: 1, TaskIDs: []string{"c"}}, f.err
}

func (f *fakeAdminService) EnqueueSummaryVectors(context.Context) (*model.EnqueueResponseDTO, error) {
	return &model.EnqueueResponseDTO{Tasks: 1, TaskIDs: []string{"d"}}, f.err
}

func TestAdminHandler(t *testing.T) {
	svc := &fakeAdminService{}
	h := NewAdminHandler(svc)
	r := newEngine()
	r.POST("/enrichment", h.EnqueueEnrichment)
	r.POST("/articles/embed", h.EnqueueArticleEmbedding)
	r.POST("/summaries/embed", h.EnqueueSummaryVectors)

	w, env := serve(r, http.MethodPost, "/enrichment", `{"model":"mistral"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "mistral", svc.model)
	assert.Contains(t, string(env.Data), `"tasks":2`)

	w, _ = serve(r, http.MethodPost, "/enrichment", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "", svc.model)

	w, _ = serve(r, http.MethodPost, "/articles/embed", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	w, _ = serve(r, http.MethodPost, "/summaries/embed", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	svc.err = errors.New("broker down")
	w, env = serve(r, http.MethodPost, "/articles/embed", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "task queue unavailable", env.Message)
}

func TestHealthz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	r := newEngine()
	r.GET("/healthz", NewHealthHandler(map[string]HealthCheck{"mysql": ok}).Healthz)
	w, _ := serve(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	r = newEngine()
	r.GET("/healthz", NewHealthHandler(map[string]HealthCheck{"mysql": ok, "redis": down}).Healthz)
	w, env := serve(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"mysql":"ok","redis":"connection refused"}`, string(env.Data))
}
