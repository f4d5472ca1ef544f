package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/core/rag"
	"docqa/src/core/rag/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubService struct {
	answerFunc func(ctx context.Context, query string) (string, error)
	calls      atomic.Int64
}

func (s *stubService) Answer(ctx context.Context, query string) (string, error) {
	s.calls.Add(1)
	return s.answerFunc(ctx, query)
}

func newTestRouter(svc rag.Service, opts Options) *gin.Engine {
	h := NewHandler(svc, IndexInfo{Chunks: 1, Backend: rag.BackendMemory}, opts)
	return NewRouter(h, logr.Discard())
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQuery_EndToEnd(t *testing.T) {
	ctx := context.Background()
	idx, err := rag.BuildIndex(ctx,
		rag.Document{Name: "my_document.txt", Content: "Paris is the capital of France."},
		mock.NewEmbedder(), rag.NewMemoryStore(), rag.IndexerOptions{})
	require.NoError(t, err)
	r := newTestRouter(rag.NewAnswerer(idx, mock.NewLLM(), rag.DefaultOptions()), Options{})

	t.Run("answer in context", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/query", `{"query": "What is the capital of France?"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"answer":`)
		assert.Contains(t, w.Body.String(), "Paris")
	})

	t.Run("answer not in context", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/query", `{"query": "What is the capital of Mars?"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"answer": "The answer is not available in the context"}`, w.Body.String())
	})

	t.Run("empty body object", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/query", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error": "Query is required"}`, w.Body.String())
	})
}

func TestQuery_BadRequests(t *testing.T) {
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		return "unused", nil
	}}
	r := newTestRouter(svc, Options{})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing query", body: `{"question": "hi"}`},
		{name: "empty query", body: `{"query": ""}`},
		{name: "wrong type", body: `{"query": 42}`},
		{name: "not json", body: `query=hi`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/api/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error": "Query is required"}`, w.Body.String())
		})
	}
	assert.Zero(t, svc.calls.Load())
}

func TestQuery_BlankQueryIsAnswered(t *testing.T) {
	var got string
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		got = query
		return "The answer is not available in the context", nil
	}}
	r := newTestRouter(svc, Options{})

	w := doRequest(r, http.MethodPost, "/api/query", `{"query": "   "}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer": "The answer is not available in the context"}`, w.Body.String())
	assert.Equal(t, int64(1), svc.calls.Load())
	assert.Equal(t, "   ", got)
}

func TestQuery_EmptyAnswer(t *testing.T) {
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		return "", nil
	}}
	r := newTestRouter(svc, Options{})

	w := doRequest(r, http.MethodPost, "/api/query", `{"query": "What is the capital of France?"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer": ""}`, w.Body.String())
}

func TestQuery_FailureKeepsServing(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		if fail.Load() {
			return "", &rag.QueryError{Kind: rag.KindGeneration, Err: errors.New("401 invalid api key sk-secret")}
		}
		return "Paris.", nil
	}}
	r := newTestRouter(svc, Options{})

	w := doRequest(r, http.MethodPost, "/api/query", `{"query": "What is the capital of France?"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "Failed to process the query"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sk-secret")

	fail.Store(false)
	w = doRequest(r, http.MethodPost, "/api/query", `{"query": "What is the capital of France?"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer": "Paris."}`, w.Body.String())
}

func TestQuery_PanicRecovered(t *testing.T) {
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		panic("boom")
	}}
	r := newTestRouter(svc, Options{})

	w := doRequest(r, http.MethodPost, "/api/query", `{"query": "anything"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "Failed to process the query"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		return "ok", nil
	}}
	r := newTestRouter(svc, Options{})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
		req.Header.Set("Origin", "https://example.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("simple request", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/api/query", `{"query": "hi"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestID(t *testing.T) {
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		return "ok", nil
	}}
	r := newTestRouter(svc, Options{})

	w := doRequest(r, http.MethodGet, "/healthz", "")
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestRateLimit(t *testing.T) {
	svc := &stubService{answerFunc: func(ctx context.Context, query string) (string, error) {
		return "ok", nil
	}}
	r := newTestRouter(svc, Options{RateLimit: 0.001, RateBurst: 2})

	for i := 0; i < 2; i++ {
		w := doRequest(r, http.MethodPost, "/api/query", `{"query": "hi"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := doRequest(r, http.MethodPost, "/api/query", `{"query": "hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error": "Too many requests"}`, w.Body.String())

	// health checks are not limited
	w = doRequest(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	h := NewHandler(&stubService{}, IndexInfo{Chunks: 12, Backend: "weaviate"}, Options{})
	r := NewRouter(h, logr.Discard())

	w := doRequest(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok", "chunks": 12, "backend": "weaviate"}`, w.Body.String())
}
