package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrirag/internal/config"
	"nutrirag/internal/domain"
)

const testKeyEnv = "NUTRIRAG_CLI_TEST_KEY"

// fakeChat answers chat completions: meal prompts get a labeled reply,
// everything else a fixed answer.
type fakeChat struct{ calls atomic.Int32 }

func (f *fakeChat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	body, _ := io.ReadAll(r.Body)
	content := "Leafy greens are high in folate."
	if strings.Contains(string(body), "Analyze this food") {
		content = `NAME: Boiled eggs\nPROTEIN: 12\nCARBS: 1\nFATS: 10\nADVICE: Add vegetables`
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"%s"},"finish_reason":"stop"}]}`, content)
}

type env struct {
	cfgPath string
	dataDir string
	chat    *fakeChat
}

func setupEnv(t *testing.T) env {
	t.Helper()
	chat := &fakeChat{}
	srv := httptest.NewServer(chat)
	t.Cleanup(srv.Close)
	t.Setenv(testKeyEnv, "test-key")

	dir := t.TempDir()
	cfg := fmt.Sprintf(`data_dir: %[1]s/data
embedder:
  type: hashing
  dimension: 64
generator:
  type: openai
  model: gpt-4o-mini
  api_key_env: %[2]s
  base_url: %[3]s/v1
vector_store:
  type: sqlite
  path: %[1]s/vector_db
meal_log:
  path: %[1]s/Nutrition.db
log:
  level: error
`, dir, testKeyEnv, srv.URL)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return env{cfgPath: cfgPath, dataDir: filepath.Join(dir, "data"), chat: chat}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIngestCreatesDataDir(t *testing.T) {
	e := setupEnv(t)
	out, err := e.run(t, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.DirExists(t, e.dataDir)
}

func TestAskBeforeAndAfterIngest(t *testing.T) {
	e := setupEnv(t)

	out, err := e.run(t, "ask", "what", "is", "folate?")
	require.NoError(t, err)
	assert.Contains(t, out, "haven't been trained")
	assert.Zero(t, e.chat.calls.Load())

	require.NoError(t, os.MkdirAll(e.dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.dataDir, "folate.txt"), []byte("Folate is found in spinach and lentils."), 0o644))
	out, err = e.run(t, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 1 of 1 files, 1 chunks.")

	out, err = e.run(t, "ask", "--sources", "where is folate found?")
	require.NoError(t, err)
	assert.Contains(t, out, "Leafy greens are high in folate.")
	assert.Contains(t, out, "folate.txt page 0")
	assert.Equal(t, int32(1), e.chat.calls.Load())
}

func TestAnalyzeUsesCacheOnSecondCall(t *testing.T) {
	e := setupEnv(t)

	out, err := e.run(t, "analyze", "2", "eggs")
	require.NoError(t, err)
	assert.Contains(t, out, "Boiled eggs (source: model)")

	out, err = e.run(t, "analyze", "2 eggs")
	require.NoError(t, err)
	assert.Contains(t, out, "2 eggs (source: cache)")
	assert.Equal(t, int32(1), e.chat.calls.Load())

	out, err = e.run(t, "today")
	require.NoError(t, err)
	assert.Contains(t, out, "1 meals")
	assert.Contains(t, out, "Protein: 12.0g")

	out, err = e.run(t, "history", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "2 eggs")
}

func TestAnalyzeWithoutInputWarns(t *testing.T) {
	e := setupEnv(t)
	out, err := e.run(t, "analyze")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, e.chat.calls.Load())
}

func TestAskMissingCredential(t *testing.T) {
	e := setupEnv(t)
	t.Setenv(testKeyEnv, "")
	_, err := e.run(t, "ask", "anything")
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
}

func TestNewVectorStore(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     config.VectorStoreConfig
		wantErr bool
	}{
		{"sqlite", config.VectorStoreConfig{Type: "sqlite", Path: t.TempDir()}, false},
		{"qdrant defaults", config.VectorStoreConfig{Type: "qdrant"}, false},
		{"memory does not outlive the process", config.VectorStoreConfig{Type: "memory"}, true},
		{"unknown", config.VectorStoreConfig{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := newVectorStore(ctx, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, store)
		})
	}
}

func TestWithRetries(t *testing.T) {
	old := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = old })
	ctx := context.Background()

	calls := 0
	err := withRetries(ctx, 2, func(context.Context) error {
		calls++
		return fmt.Errorf("%w: 503", domain.ErrUpstreamUnavailable)
	})
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetries(ctx, 2, func(context.Context) error {
		calls++
		return domain.ErrMissingCredential
	})
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
	assert.Equal(t, 1, calls)

	calls = 0
	err = withRetries(ctx, 3, func(context.Context) error {
		calls++
		if calls < 2 {
			return domain.ErrUpstreamUnavailable
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
