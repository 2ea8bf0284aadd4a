package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/docrag-go/internal/engine"
)

func TestHandleQuery_Success(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.deps.Engine = &fakeAnswerer{answer: &engine.Answer{
		Text: "Torque the casing bolts to 45 Nm [Source 1].",
		Citations: []engine.Citation{
			{Index: 1, SourceDocument: "pump-manual.txt", Page: 2, RelevanceScore: 0.91},
		},
		Confidence: 0.91,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"what torque for the casing bolts?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var ans engine.Answer
	if err := json.NewDecoder(w.Body).Decode(&ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(ans.Text, "45 Nm") {
		t.Errorf("answer text: got %q", ans.Text)
	}
	if len(ans.Citations) != 1 || ans.Citations[0].SourceDocument != "pump-manual.txt" {
		t.Errorf("citations: got %+v", ans.Citations)
	}
	if ans.Confidence != 0.91 {
		t.Errorf("confidence: got %v", ans.Confidence)
	}
}

func TestHandleQuery_PassesOptions(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	fa := &fakeAnswerer{answer: &engine.Answer{Text: "ok"}}
	s.deps.Engine = fa

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"q","top_k":7,"document_ids":["doc-1","doc-2"]}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if fa.lastOpts.TopK != 7 {
		t.Errorf("top_k: got %d", fa.lastOpts.TopK)
	}
	if len(fa.lastOpts.DocumentIDs) != 2 {
		t.Errorf("document_ids: got %v", fa.lastOpts.DocumentIDs)
	}
}

func TestHandleQuery_MissingQuestion(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuery_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`not-json`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuery_EngineError(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.deps.Engine = &fakeAnswerer{err: errors.New("model unavailable")}

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"q"}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestHandleQuery_CachedCountsHit(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.deps.Engine = &fakeAnswerer{answer: &engine.Answer{Text: "ok", Cached: true}}

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"q"}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := counterValue(t, s.metrics.queryCacheHitsTotal); got != 1 {
		t.Errorf("cache hit counter: got %v, want 1", got)
	}
}
