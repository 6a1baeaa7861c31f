package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/essay-grader/internal/config"
)

func standaloneConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("similarity:\n  provider: lexical\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNew_Standalone(t *testing.T) {
	a, err := New(context.Background(), standaloneConfig(t), zerolog.Nop(), ModeServe)
	require.NoError(t, err)
	require.NotNil(t, a.server)
	assert.Nil(t, a.gradingWorker)
	assert.Nil(t, a.db)

	body := `{
		"essay_text": "Renewable energy reduces greenhouse gas emissions.",
		"key_points": {"points": "Renewable energy reduces greenhouse gas emissions."},
		"rubric": {"criteria": [{"name": "Content", "weight": 1, "scores": {"4": "Excellent"}}]}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_score":4`)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestNew_WorkerModeNeedsQueue(t *testing.T) {
	_, err := New(context.Background(), standaloneConfig(t), zerolog.Nop(), ModeWorker)
	assert.ErrorContains(t, err, "rabbitmq")
}

// The default provider calls the embeddings endpoint; paraphrases that share
// few words still grade high when their embeddings are close.
func TestNew_DefaultProviderUsesEmbeddings(t *testing.T) {
	var calls int32
	embedder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Input []string `json:"input"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			vec := []float32{1, 0.3}
			if strings.Contains(text, "canine") {
				vec = []float32{1, 0.25}
			}
			data[i] = item{Index: i, Embedding: vec}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
	}))
	defer embedder.Close()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "similarity:\n  embedding:\n    url: " + embedder.URL + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.ProviderEmbedding, cfg.Similarity.Provider)

	a, err := New(context.Background(), cfg, zerolog.Nop(), ModeServe)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/grade", strings.NewReader(`{
		"essay_text": "The quick brown fox jumps over the lazy dog.",
		"key_points": {"points": ["A fast brown fox leaps over a sleepy canine."]},
		"rubric": {"criteria": [{"name": "C", "weight": 1, "scores": {"4": "Excellent"}}]}
	}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_score":4`)
	assert.NotContains(t, rec.Body.String(), "Elaborate more")
	assert.Positive(t, atomic.LoadInt32(&calls))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestNew_SampleFilesServed(t *testing.T) {
	dir := t.TempDir()
	rubricPath := filepath.Join(dir, "rubric.yaml")
	require.NoError(t, os.WriteFile(rubricPath, []byte(`
name: Lab Report Rubric
criteria:
  - name: Method
    weight: 1
    scores:
      1: Missing.
      4: Complete.
`), 0o644))
	pointsPath := filepath.Join(dir, "keypoints.json")
	require.NoError(t, os.WriteFile(pointsPath, []byte(`{"topic":"Titration","points":["Indicator choice matters."]}`), 0o644))

	cfg := standaloneConfig(t)
	cfg.Grading.SampleRubricFile = rubricPath
	cfg.Grading.SampleKeyPointsFile = pointsPath

	a, err := New(context.Background(), cfg, zerolog.Nop(), ModeServe)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sample-rubric", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lab Report Rubric")

	rec = httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sample-keypoints", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Indicator choice matters.")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestNew_BadSampleFile(t *testing.T) {
	cfg := standaloneConfig(t)
	cfg.Grading.SampleRubricFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, zerolog.Nop(), ModeServe)
	assert.ErrorContains(t, err, "sample rubric")
}
