package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values
const (
	// Embedding defaults
	DefaultEmbeddingProvider = "hash"
	DefaultHashDimensions    = 384
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultOllamaEmbedModel  = "nomic-embed-text"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"

	// LLM defaults (OpenRouter through the OpenAI-compatible client)
	DefaultLLMProvider    = "openai"
	DefaultOpenAIBaseURL  = "https://openrouter.ai/api/v1"
	DefaultOpenAILLMModel = "openai/gpt-4o-mini"
	DefaultOllamaLLMModel = "llama3"
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultTemperature    = 0.3
	DefaultMaxTokens      = 500
	DefaultReferer        = "http://localhost:3000"
	DefaultAppTitle       = "F1 RAG AI"

	// Retrieval defaults
	DefaultTopK         = 3
	DefaultMinScore     = 0.0
	DefaultMaxDocuments = 0

	// Server defaults
	DefaultServerAddr   = ":3000"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 2 * time.Minute

	// Logging defaults
	DefaultLogRotation = 24 * time.Hour
	DefaultLogMaxAge   = 7 * 24 * time.Hour
	DefaultLogPattern  = "lrag-%Y-%m-%d.log"
)

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/lrag"
	}
	return filepath.Join(home, ".config", "lrag")
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/lrag"
	}
	return filepath.Join(home, ".local", "share", "lrag")
}

// DefaultLogFile returns the default rotating log file pattern.
func DefaultLogFile() string {
	return filepath.Join(DefaultDataDir(), "logs", DefaultLogPattern)
}
