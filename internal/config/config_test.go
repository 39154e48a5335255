package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)

	// Embeddings defaults
	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embeddings.Provider)
	assert.Equal(t, DefaultHashDimensions, cfg.Embeddings.Hash.Dimensions)
	assert.Equal(t, DefaultOllamaURL, cfg.Embeddings.Ollama.URL)
	assert.Equal(t, DefaultOpenAIEmbedModel, cfg.Embeddings.OpenAI.Model)

	// LLM defaults
	assert.Equal(t, DefaultLLMProvider, cfg.LLM.Provider)
	assert.Equal(t, DefaultOpenAIBaseURL, cfg.LLM.OpenAI.BaseURL)
	assert.Equal(t, DefaultOpenAILLMModel, cfg.LLM.OpenAI.Model)
	assert.Equal(t, DefaultAnthropicModel, cfg.LLM.Anthropic.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 500, cfg.LLM.MaxTokens)

	// Retrieval defaults
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, 0, cfg.Store.MaxDocuments)
	assert.True(t, cfg.Seed.Builtin)

	// Server defaults
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout)
}

func TestDefaultPaths(t *testing.T) {
	assert.Contains(t, DefaultConfigDir(), "lrag")
	assert.Contains(t, DefaultDataDir(), "lrag")
	assert.Contains(t, DefaultLogFile(), DefaultLogPattern)
}

func TestLoadWithConfigFile(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
embeddings:
  provider: hash
  hash:
    dimensions: 128
llm:
  provider: anthropic
  temperature: 0.1
  anthropic:
    model: claude-3-opus-20240229
store:
  max_documents: 50
search:
  top_k: 5
  min_score: 0.2
server:
  addr: 127.0.0.1:9090
  read_timeout: 5s
logging:
  file: /tmp/lrag-%Y.log
  rotation: 1h
seed:
  builtin: false
  documents:
    - text: "George Russell drives for Mercedes."
      source: wiki
    - text: "Qatar hosts a Grand Prix."
      source: wiki
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	require.NoError(t, Load(configPath))

	loaded := Get()

	assert.Equal(t, "hash", loaded.Embeddings.Provider)
	assert.Equal(t, 128, loaded.Embeddings.Hash.Dimensions)
	assert.Equal(t, "anthropic", loaded.LLM.Provider)
	assert.Equal(t, 0.1, loaded.LLM.Temperature)
	assert.Equal(t, "claude-3-opus-20240229", loaded.LLM.Anthropic.Model)
	assert.Equal(t, 50, loaded.Store.MaxDocuments)
	assert.Equal(t, 5, loaded.Search.TopK)
	assert.Equal(t, 0.2, loaded.Search.MinScore)
	assert.Equal(t, "127.0.0.1:9090", loaded.Server.Addr)
	assert.Equal(t, 5*time.Second, loaded.Server.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, loaded.Server.WriteTimeout)
	assert.Equal(t, "/tmp/lrag-%Y.log", loaded.Logging.File)
	assert.Equal(t, time.Hour, loaded.Logging.Rotation)
	assert.False(t, loaded.Seed.Builtin)
	require.Len(t, loaded.Seed.Documents, 2)
	assert.Equal(t, "George Russell drives for Mercedes.", loaded.Seed.Documents[0].Text)
	assert.Equal(t, "wiki", loaded.Seed.Documents[1].Source)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	viper.Reset()
	cfg = nil

	t.Setenv("LRAG_LLM_PROVIDER", "ollama")
	t.Setenv("LRAG_SEARCH_TOP_K", "7")
	t.Setenv("OPENAI_API_KEY", "test-openai-key")
	t.Setenv("OPENROUTER_API_KEY", "test-openrouter-key")
	t.Setenv("ANTHROPIC_API_KEY", "test-anthropic-key")

	require.NoError(t, Load(""))

	loaded := Get()

	assert.Equal(t, "ollama", loaded.LLM.Provider)
	assert.Equal(t, 7, loaded.Search.TopK)
	assert.Equal(t, "test-openai-key", loaded.Embeddings.OpenAI.APIKey)
	assert.Equal(t, "test-openrouter-key", loaded.LLM.OpenAI.APIKey)
	assert.Equal(t, "test-anthropic-key", loaded.LLM.Anthropic.APIKey)
}

func TestLoadFallsBackToOpenAIKey(t *testing.T) {
	viper.Reset()
	cfg = nil

	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "only-openai")

	require.NoError(t, Load(""))
	assert.Equal(t, "only-openai", Get().LLM.OpenAI.APIKey)
}

func TestLoadMissingConfigFile(t *testing.T) {
	viper.Reset()
	cfg = nil

	require.NoError(t, Load(""))

	loaded := Get()
	assert.Equal(t, DefaultEmbeddingProvider, loaded.Embeddings.Provider)
	assert.Equal(t, DefaultLLMProvider, loaded.LLM.Provider)
	assert.Equal(t, DefaultHashDimensions, loaded.Embeddings.Hash.Dimensions)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	viper.Reset()
	cfg = nil

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("search:\n  top_k: -1\n"), 0644))

	err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.top_k")
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	c.Embeddings.Hash.Dimensions = 0
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Store.MaxDocuments = -5
	assert.Error(t, c.Validate())

	// Dimensions only matter for the hash provider
	c = DefaultConfig()
	c.Embeddings.Provider = "openai"
	c.Embeddings.Hash.Dimensions = 0
	assert.NoError(t, c.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	const key = "LRAG_DOTENV_TEST_KEY"
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(key+"=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv(key) })

	loadDotEnv(envPath)
	assert.Equal(t, "from-dotenv", os.Getenv(key))

	// Missing files are ignored
	loadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}

func TestGet(t *testing.T) {
	cfg = nil

	c1 := Get()
	assert.NotNil(t, c1)

	c2 := Get()
	assert.Same(t, c1, c2)
}

func TestGlobalConfigPath(t *testing.T) {
	path := GlobalConfigPath()
	assert.Contains(t, path, "lrag")
	assert.Contains(t, path, "config.yaml")
}
