// Package config handles configuration loading and validation for lrag.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete lrag configuration.
type Config struct {
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Store      StoreConfig      `mapstructure:"store"`
	Search     SearchConfig     `mapstructure:"search"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider string            `mapstructure:"provider"`
	Hash     HashEmbedConfig   `mapstructure:"hash"`
	Ollama   OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI   OpenAIEmbedConfig `mapstructure:"openai"`
}

// HashEmbedConfig configures the local hashing embedder.
type HashEmbedConfig struct {
	Dimensions int `mapstructure:"dimensions"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig configures the LLM used to generate answers.
type LLMConfig struct {
	Provider    string          `mapstructure:"provider"`
	Temperature float64         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Ollama      OllamaLLMConfig `mapstructure:"ollama"`
	OpenAI      OpenAILLMConfig `mapstructure:"openai"`
	Anthropic   AnthropicConfig `mapstructure:"anthropic"`
}

// OllamaLLMConfig configures Ollama LLM.
type OllamaLLMConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAILLMConfig configures an OpenAI-compatible chat API (OpenAI, OpenRouter).
type OpenAILLMConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Referer string `mapstructure:"referer"`
	Title   string `mapstructure:"title"`
}

// AnthropicConfig configures Anthropic LLM.
type AnthropicConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// StoreConfig configures the in-memory document store.
type StoreConfig struct {
	// MaxDocuments caps the store size. Zero means unlimited.
	MaxDocuments int `mapstructure:"max_documents"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float64 `mapstructure:"min_score"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig configures the optional rotating log file.
type LoggingConfig struct {
	File     string        `mapstructure:"file"` // strftime pattern, empty disables file logging
	Rotation time.Duration `mapstructure:"rotation"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// SeedConfig configures the records loaded into the store at startup.
type SeedConfig struct {
	// File is a yaml/json/toml file with a top-level "documents" list.
	File string `mapstructure:"file"`

	// Builtin seeds the built-in knowledge base when no other records are given.
	Builtin bool `mapstructure:"builtin"`

	// Documents are inline seed records.
	Documents []SeedDocument `mapstructure:"documents"`
}

// SeedDocument is a single inline seed record.
type SeedDocument struct {
	Text   string `mapstructure:"text"`
	Source string `mapstructure:"source"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Embeddings: EmbeddingsConfig{
			Provider: DefaultEmbeddingProvider,
			Hash: HashEmbedConfig{
				Dimensions: DefaultHashDimensions,
			},
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		LLM: LLMConfig{
			Provider:    DefaultLLMProvider,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Ollama: OllamaLLMConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaLLMModel,
			},
			OpenAI: OpenAILLMConfig{
				Model:   DefaultOpenAILLMModel,
				BaseURL: DefaultOpenAIBaseURL,
				Referer: DefaultReferer,
				Title:   DefaultAppTitle,
			},
			Anthropic: AnthropicConfig{
				Model: DefaultAnthropicModel,
			},
		},
		Store: StoreConfig{
			MaxDocuments: DefaultMaxDocuments,
		},
		Search: SearchConfig{
			TopK:     DefaultTopK,
			MinScore: DefaultMinScore,
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Logging: LoggingConfig{
			Rotation: DefaultLogRotation,
			MaxAge:   DefaultLogMaxAge,
		},
		Seed: SeedConfig{
			Builtin: true,
		},
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	// .env is optional, same as the config file
	loadDotEnv(".env")

	// Set defaults
	setDefaults()

	// Set config file if specified
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")

		// Also check for .lragrc.yaml in current directory and parents
		if rcPath := findRCFile(); rcPath != "" {
			viper.SetConfigFile(rcPath)
		}
	}

	// Environment variables
	viper.SetEnvPrefix("LRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	// Unmarshal into config struct
	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	// Load API keys from environment if not in config
	loadAPIKeysFromEnv()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail deep inside the engine.
func (c *Config) Validate() error {
	if c.Embeddings.Provider == "hash" && c.Embeddings.Hash.Dimensions <= 0 {
		return fmt.Errorf("embeddings.hash.dimensions must be positive, got %d", c.Embeddings.Hash.Dimensions)
	}
	if c.Search.TopK < 0 {
		return fmt.Errorf("search.top_k must not be negative, got %d", c.Search.TopK)
	}
	if c.Store.MaxDocuments < 0 {
		return fmt.Errorf("store.max_documents must not be negative, got %d", c.Store.MaxDocuments)
	}
	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	// Embeddings
	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.hash.dimensions", DefaultHashDimensions)
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	// LLM
	viper.SetDefault("llm.provider", DefaultLLMProvider)
	viper.SetDefault("llm.temperature", DefaultTemperature)
	viper.SetDefault("llm.max_tokens", DefaultMaxTokens)
	viper.SetDefault("llm.ollama.url", DefaultOllamaURL)
	viper.SetDefault("llm.ollama.model", DefaultOllamaLLMModel)
	viper.SetDefault("llm.openai.model", DefaultOpenAILLMModel)
	viper.SetDefault("llm.openai.base_url", DefaultOpenAIBaseURL)
	viper.SetDefault("llm.openai.referer", DefaultReferer)
	viper.SetDefault("llm.openai.title", DefaultAppTitle)
	viper.SetDefault("llm.anthropic.model", DefaultAnthropicModel)

	// Store and search
	viper.SetDefault("store.max_documents", DefaultMaxDocuments)
	viper.SetDefault("search.top_k", DefaultTopK)
	viper.SetDefault("search.min_score", DefaultMinScore)

	// Server
	viper.SetDefault("server.addr", DefaultServerAddr)
	viper.SetDefault("server.read_timeout", DefaultReadTimeout)
	viper.SetDefault("server.write_timeout", DefaultWriteTimeout)

	// Logging
	viper.SetDefault("logging.rotation", DefaultLogRotation)
	viper.SetDefault("logging.max_age", DefaultLogMaxAge)

	// Seed
	viper.SetDefault("seed.builtin", true)
}

// findRCFile searches for .lragrc.yaml starting from current directory.
func findRCFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		rcPath := filepath.Join(dir, ".lragrc.yaml")
		if _, err := os.Stat(rcPath); err == nil {
			return rcPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// loadDotEnv exports variables from an env file without overriding the process environment.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Failed to load env file", "file", path, "error", err)
		}
		return
	}
	log.Debug("Loaded environment from", "file", path)
}

// loadAPIKeysFromEnv loads API keys from environment variables if not already set.
func loadAPIKeysFromEnv() {
	// OpenAI API key
	if cfg.Embeddings.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embeddings.OpenAI.APIKey = key
		}
	}

	// The chat client defaults to OpenRouter, so its key wins over OpenAI's
	if cfg.LLM.OpenAI.APIKey == "" {
		for _, name := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"} {
			if key := os.Getenv(name); key != "" {
				cfg.LLM.OpenAI.APIKey = key
				break
			}
		}
	}

	// Anthropic API key
	if cfg.LLM.Anthropic.APIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.LLM.Anthropic.APIKey = key
		}
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
