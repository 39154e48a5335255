package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/knowledge"
	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/store"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	return cfg
}

func TestBuildEngine(t *testing.T) {
	cfg := testConfig()

	e, err := buildEngine(context.Background(), cfg, knowledge.Demo(), true)
	require.NoError(t, err)

	assert.Equal(t, 4, e.store.Len())
	assert.True(t, e.searcher.Initialized())
	assert.NotNil(t, e.qa)
	assert.Equal(t, "ollama/"+config.DefaultOllamaLLMModel, e.model)
}

func TestBuildEngineWithoutLLM(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Anthropic.APIKey = ""

	e, err := buildEngine(context.Background(), cfg, nil, false)
	require.NoError(t, err)
	assert.Nil(t, e.qa)

	_, err = buildEngine(context.Background(), cfg, nil, true)
	assert.Error(t, err)
}

func TestBuildEngineCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.Store.MaxDocuments = 2

	_, err := buildEngine(context.Background(), cfg, knowledge.Demo(), false)
	assert.ErrorIs(t, err, store.ErrCapacityExceeded)
}

func TestBuildEngineBadEmbedder(t *testing.T) {
	cfg := testConfig()
	cfg.Embeddings.Provider = "nope"

	_, err := buildEngine(context.Background(), cfg, nil, false)
	assert.Error(t, err)
}

func TestSeedRecordsBuiltin(t *testing.T) {
	records, err := seedRecords(testConfig())
	require.NoError(t, err)
	assert.Equal(t, knowledge.Default(), records)
}

func TestOutputJSON(t *testing.T) {
	results := []search.Result{
		{Document: store.Document{ID: "doc-1", Text: "George Russell", Source: "wiki"}, Score: 0.5},
	}

	var buf bytes.Buffer
	require.NoError(t, outputJSON(&buf, results))

	var decoded []jsonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []jsonResult{{ID: "doc-1", Source: "wiki", Score: 0.5, Text: "George Russell"}}, decoded)

	buf.Reset()
	require.NoError(t, outputJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestHighlightJSON(t *testing.T) {
	out, err := highlightJSON(`{"id": "doc-1"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "\x1b[")
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "a b", truncateLine("a\n  b", 10))
	assert.Equal(t, "abcdefg...", truncateLine("abcdefghijklmnop", 10))
	assert.Equal(t, "Fédé...", truncateLine("Fédération", 7))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, "x", valueOr("x", "y"))
	assert.Equal(t, "y", valueOr("", "y"))
}

func TestAnswerError(t *testing.T) {
	cause := errors.New("401 invalid api key sk-secret")
	err := answerError(&llm.GenerationError{Question: "q", Err: cause})

	assert.ErrorIs(t, err, errCouldNotAnswer)
	assert.NotErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "sk-secret")

	retrieval := errors.New("retrieval failed: index unavailable")
	assert.Equal(t, retrieval, answerError(retrieval))
}
