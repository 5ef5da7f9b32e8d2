package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/ubreader/internal/cache"
	"github.com/dgallion1/ubreader/internal/cms"
	"github.com/dgallion1/ubreader/internal/config"
	"github.com/dgallion1/ubreader/internal/metrics"
	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/dgallion1/ubreader/internal/pipeline"
	"github.com/dgallion1/ubreader/internal/transform"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

func newTestServer(t *testing.T, cmsClient *cms.Client) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg := config.Defaults()
	cfg.APIKey = testKey
	cfg.WorkerCount = 1
	cfg.MaxUploadBytes = 1024
	cfg.PassageTokens = 50

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	orch := pipeline.NewOrchestrator(cfg, transform.New(log, rec, parser.Options{}), cache.NewMemory(time.Hour, 100), cmsClient, rec, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return NewServer(orch, metrics.HTTPHandler(reg), log, cfg), orch
}

func multipartRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","queue_depth":0}`, rr.Body.String())
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/stats/transform", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/transform", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = serve(s, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid api key", decode(t, rr)["error"])

	req = httptest.NewRequest(http.MethodGet, "/api/stats/transform", nil)
	req.Header.Set("Authorization", "bearer "+testKey)
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/stats/transform", nil)
	req.Header.Set(apiKeyHeader, testKey)
	assert.Equal(t, http.StatusOK, serve(s, req).Code)
}

func TestTransform(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := multipartRequest(t, "/api/transform", "hello.md", "# Hello\n\nWorld", map[string]string{
		"publication_type": "scientific",
		"metadata":         `{"author":"Ann"}`,
	})
	rr := serve(s, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	out := decode(t, rr)
	assert.Equal(t, false, out["cached"])
	assert.NotEmpty(t, out["doc_id"])
	doc := out["document"].(map[string]any)
	assert.Equal(t, "scientific", doc["publicationType"])
	assert.Contains(t, doc["html"], "<h1>Hello</h1>")
	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, "Hello", meta["title"])
	assert.Equal(t, "Ann", meta["author"])

	// The same upload is served from the cache.
	req = multipartRequest(t, "/api/transform", "hello.md", "# Hello\n\nWorld", map[string]string{
		"publication_type": "scientific",
		"metadata":         `{"author":"Ann"}`,
	})
	rr = serve(s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	again := decode(t, rr)
	assert.Equal(t, true, again["cached"])
	assert.Equal(t, out["doc_id"], again["doc_id"])
}

func TestTransform_ErrorStatuses(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		want     int
	}{
		{"unknown extension", "notes.rtf", "x", nil, http.StatusBadRequest},
		{"unknown document type", "notes.md", "x", map[string]string{"document_type": "rtf"}, http.StatusBadRequest},
		{"payload mismatch", "notes.md", "plain text", map[string]string{"document_type": "docx"}, http.StatusBadRequest},
		{"bad boolean", "notes.md", "x", map[string]string{"sanitize": "maybe"}, http.StatusBadRequest},
		{"bad publication type", "notes.md", "x", map[string]string{"publication_type": "novel"}, http.StatusBadRequest},
		{"bad metadata", "notes.md", "x", map[string]string{"metadata": "[1,2]"}, http.StatusBadRequest},
		{"invalid structure", "empty-link.md", "[empty]()", nil, http.StatusUnprocessableEntity},
		{"too large", "big.txt", strings.Repeat("a", 2048), nil, http.StatusBadRequest},
		{"missing file", "", "", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, multipartRequest(t, "/api/transform", tt.filename, tt.content, tt.fields))
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode(t, rr)["error"])
		})
	}
}

func waitForJob(t *testing.T, s *Server, jobID string) map[string]any {
	t.Helper()
	var snap map[string]any
	require.Eventually(t, func() bool {
		rr := serve(s, authed(http.MethodGet, "/api/ingest/"+jobID+"/status"))
		if rr.Code != http.StatusOK {
			return false
		}
		snap = decode(t, rr)
		return snap["status"] == "completed" || snap["status"] == "failed"
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func TestIngestUploadAndFetchDocument(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := serve(s, multipartRequest(t, "/api/ingest", "paper.md", "# Paper\n\nIntro text.\n\n## Part Two\n\nMore words here.", nil))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	accepted := decode(t, rr)
	jobID := accepted["job_id"].(string)
	docID := accepted["doc_id"].(string)
	assert.Equal(t, "/api/ingest/"+jobID+"/status", accepted["poll_url"])

	snap := waitForJob(t, s, jobID)
	require.Equal(t, "completed", snap["status"], snap)

	rr = serve(s, authed(http.MethodGet, "/api/documents/"+docID))
	require.Equal(t, http.StatusOK, rr.Code)
	doc := decode(t, rr)
	assert.Equal(t, "Paper", doc["metadata"].(map[string]any)["title"])

	rr = serve(s, authed(http.MethodGet, "/api/documents/"+docID+"/outline?passage_tokens=20"))
	require.Equal(t, http.StatusOK, rr.Code)
	ol := decode(t, rr)
	sections := ol["sections"].([]any)
	require.Len(t, sections, 2)
	assert.Equal(t, "paper", sections[0].(map[string]any)["anchor"])
	assert.Equal(t, "part-two", sections[1].(map[string]any)["anchor"])
	assert.NotEmpty(t, ol["passages"])
}

func TestIngestStatus_NotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := serve(s, authed(http.MethodGet, "/api/ingest/nope/status"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDocument_NotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := serve(s, authed(http.MethodGet, "/api/documents/missing"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = serve(s, authed(http.MethodGet, "/api/documents/missing/outline"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIngestCMS(t *testing.T) {
	cmsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entries/gem-1":
			w.Write([]byte(`{"slug":"gem-1","title":"Gem One","document_type":"html","publication_type":"ubgems","body":"<html><body><h2>Gem</h2><p>Shining words.</p></body></html>"}`))
		case "/entries":
			w.Write([]byte(`{"entries":[{"slug":"gem-1","title":"Gem One","document_type":"html"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer cmsSrv.Close()

	s, _ := newTestServer(t, cms.NewClient(cmsSrv.URL, "", time.Second, cms.DefaultRetryPolicy()))

	form := url.Values{"cms_slug": {"gem-1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+testKey)
	rr := serve(s, req)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	snap := waitForJob(t, s, decode(t, rr)["job_id"].(string))
	require.Equal(t, "completed", snap["status"], snap)
	assert.Equal(t, "html", snap["document_type"])

	rr = serve(s, authed(http.MethodGet, "/api/documents/"+snap["doc_id"].(string)))
	require.Equal(t, http.StatusOK, rr.Code)
	doc := decode(t, rr)
	assert.Equal(t, "ubgems", doc["publicationType"])
	assert.Equal(t, "Gem One", doc["metadata"].(map[string]any)["title"])

	rr = serve(s, authed(http.MethodGet, "/api/cms/entries?limit=5"))
	require.Equal(t, http.StatusOK, rr.Code)
	entries := decode(t, rr)["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "gem-1", entries[0].(map[string]any)["slug"])
}

func TestIngestCMS_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := serve(s, multipartRequest(t, "/api/ingest", "", "", map[string]string{"cms_slug": "gem-1"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(s, authed(http.MethodGet, "/api/cms/entries"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStatsAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rr := serve(s, multipartRequest(t, "/api/transform", "a.txt", "Some plain text.", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(s, authed(http.MethodGet, "/api/stats/transform"))
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	stats := out["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["all"].(map[string]any)["count"])
	assert.Contains(t, stats["by_type"], "text")
	assert.EqualValues(t, 0, out["queue_depth"])

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `ubreader_transform_outcomes_total{document_type="text",result="success"} 1`)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"paper.md":           "paper.md",
		"../../etc/passwd":   "passwd",
		`dir\evil..name.txt`: "dir_evil_name.txt",
		"":                   "unnamed",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
