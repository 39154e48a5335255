package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Display current configuration settings and config file locations.

Every key can also be set from the environment with the LRAG_ prefix,
for example LRAG_LLM_PROVIDER=ollama or LRAG_SEARCH_TOP_K=5.

Examples:
  # Show current configuration
  lrag config

  # Show config file paths
  lrag config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configShowPath {
		fmt.Println(ui.SectionTitle.Render("Configuration Paths"))
		fmt.Println()
		fmt.Printf("Global config: %s\n", config.GlobalConfigPath())
		fmt.Printf("Local config:  .lragrc.yaml (searched from cwd upward)\n")
		fmt.Printf("Active config: %s\n", config.ConfigFilePath())
		fmt.Printf("Log file:      %s (when enabled)\n", config.DefaultLogFile())
		return nil
	}

	cfg := config.Get()

	fmt.Println(ui.SectionTitle.Render("Current Configuration"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Embeddings:"))
	fmt.Printf("  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  Hash Dimensions: %d\n", cfg.Embeddings.Hash.Dimensions)
	fmt.Printf("  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Printf("  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("LLM:"))
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
	fmt.Printf("  Max Tokens: %d\n", cfg.LLM.MaxTokens)
	fmt.Printf("  OpenAI Model: %s\n", cfg.LLM.OpenAI.Model)
	fmt.Printf("  OpenAI Base URL: %s\n", cfg.LLM.OpenAI.BaseURL)
	fmt.Printf("  OpenAI API Key: %s\n", ui.FormatStatus(cfg.LLM.OpenAI.APIKey != "", "set", "not set"))
	fmt.Printf("  Ollama Model: %s\n", cfg.LLM.Ollama.Model)
	fmt.Printf("  Anthropic Model: %s\n", cfg.LLM.Anthropic.Model)
	fmt.Printf("  Anthropic API Key: %s\n", ui.FormatStatus(cfg.LLM.Anthropic.APIKey != "", "set", "not set"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Retrieval:"))
	fmt.Printf("  Top K: %d\n", cfg.Search.TopK)
	fmt.Printf("  Min Score: %.2f\n", cfg.Search.MinScore)
	if cfg.Store.MaxDocuments > 0 {
		fmt.Printf("  Max Documents: %d\n", cfg.Store.MaxDocuments)
	} else {
		fmt.Printf("  Max Documents: unlimited\n")
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("Seed:"))
	fmt.Printf("  File: %s\n", valueOr(cfg.Seed.File, "(none)"))
	fmt.Printf("  Inline Documents: %d\n", len(cfg.Seed.Documents))
	fmt.Printf("  Built-in Fallback: %t\n", cfg.Seed.Builtin)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Server:"))
	fmt.Printf("  Address: %s\n", cfg.Server.Addr)
	fmt.Printf("  Read Timeout: %s\n", cfg.Server.ReadTimeout)
	fmt.Printf("  Write Timeout: %s\n", cfg.Server.WriteTimeout)
	fmt.Printf("  Log File: %s\n", valueOr(cfg.Logging.File, "(stderr only)"))

	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
