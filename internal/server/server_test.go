package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"document-search/internal/config"
	"document-search/internal/models"
)

type fakeSearcher struct {
	ingestErr error
	queryErr  error
	gotName   string
	gotExt    string
	gotData   string
}

func (f *fakeSearcher) IngestFile(_ context.Context, docName string, data []byte, ext string) (*models.IngestResult, error) {
	f.gotName, f.gotExt, f.gotData = docName, ext, string(data)
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return models.NewIngestResult(docName, 4), nil
}

func (f *fakeSearcher) Query(_ context.Context, text string) (*models.SearchResult, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if text == "" {
		return nil, models.ErrEmptyQuery
	}
	return &models.SearchResult{Query: text, Results: []string{"first", "second"}}, nil
}

func (f *fakeSearcher) Stats() models.Stats {
	return models.Stats{Document: "a.pdf", Chunks: 4, Dimension: 3}
}

func newTestServer(f *fakeSearcher) http.Handler {
	return New(f, &config.ServerConfig{
		Addr:          ":0",
		AllowedOrigin: "http://localhost:3000",
		MaxUploadMB:   1,
	}).Handler()
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestUpload(t *testing.T) {
	f := &fakeSearcher{}
	h := newTestServer(f)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "report.pdf", "%PDF-1.4"))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["message"] != "Stored 4 chunks from report.pdf" || out["chunk_count"] != float64(4) {
		t.Errorf("unexpected body %v", out)
	}
	if f.gotName != "report.pdf" || f.gotExt != ".pdf" || f.gotData != "%PDF-1.4" {
		t.Errorf("unexpected ingest call: %q %q %q", f.gotName, f.gotExt, f.gotData)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	h := newTestServer(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if decode(t, rec)["error"] != "No file uploaded" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestUploadErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("%w: %q", models.ErrUnsupportedType, ".txt"), http.StatusBadRequest, "unsupported file type"},
		{models.ErrEmptyDocument, http.StatusUnprocessableEntity, "document has no text"},
		{fmt.Errorf("%w: bad xref", models.ErrExtractionFailed), http.StatusUnprocessableEntity, "failed to extract text from document"},
		{fmt.Errorf("%w: chunk 3: timeout", models.ErrEmbeddingFailed), http.StatusBadGateway, "failed to generate embeddings"},
		{fmt.Errorf("disk full"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		h := newTestServer(&fakeSearcher{ingestErr: tt.err})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, uploadRequest(t, "report.pdf", "x"))
		if rec.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
		if got := decode(t, rec)["error"]; got != tt.msg {
			t.Errorf("%v: expected message %q, got %q", tt.err, tt.msg, got)
		}
	}
}

func TestSearch(t *testing.T) {
	h := newTestServer(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"cat"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	out := decode(t, rec)
	if out["query"] != "cat" {
		t.Errorf("Expected query echoed, got %v", out["query"])
	}
	results, _ := out["results"].([]any)
	if len(results) != 2 || results[0] != "first" {
		t.Errorf("unexpected results %v", out["results"])
	}
	if _, ok := out["matches"]; ok {
		t.Error("Expected matches not to be serialised")
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"invalid json", `{"query":`, nil, http.StatusBadRequest},
		{"empty query", `{"query":""}`, nil, http.StatusBadRequest},
		{"embedding failed", `{"query":"cat"}`, fmt.Errorf("%w: rate limited", models.ErrEmbeddingFailed), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeSearcher{queryErr: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestSearchBodyLimit(t *testing.T) {
	h := newTestServer(&fakeSearcher{})
	body := `{"query":"` + strings.Repeat("a", maxSearchBytes+1) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeSearcher{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if out := decode(t, rec); out["document"] != "a.pdf" || out["chunks"] != float64(4) {
		t.Errorf("unexpected stats %v", out)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(&fakeSearcher{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(&fakeSearcher{})

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"cat"}`))
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header for foreign origin, got %q", got)
	}
}
