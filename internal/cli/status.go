package cli

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base and provider status",
	Long: `Seed the store as the other commands would and report:
- Number of stored documents and the capacity
- Documents per source
- Embedding provider and model
- LLM provider, model and whether an API key is set`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	seed, err := seedRecords(cfg)
	if err != nil {
		return err
	}

	e, err := buildEngine(ctx, cfg, seed, false)
	if err != nil {
		return err
	}

	stats := e.store.Stats()
	log.Debug("Store stats", "stats", stats)

	fmt.Println(ui.SectionTitle.Render("Knowledge Base"))
	fmt.Println()

	capacity := "unlimited"
	if stats.MaxDocuments > 0 {
		capacity = fmt.Sprintf("%d", stats.MaxDocuments)
	}
	fmt.Printf("  Documents:    %d (capacity %s)\n", stats.DocumentCount, capacity)
	fmt.Printf("  Unique texts: %d\n", stats.UniqueTexts)
	fmt.Printf("  Size:         %s\n", formatBytes(stats.TotalBytes))

	if len(stats.Sources) > 0 {
		sources := make([]string, 0, len(stats.Sources))
		for s := range stats.Sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)

		fmt.Println("  Sources:")
		for _, s := range sources {
			label := s
			if label == "" {
				label = "(none)"
			}
			fmt.Printf("    %-20s %d\n", label, stats.Sources[s])
		}
	}
	fmt.Println()

	fmt.Println(ui.SectionTitle.Render("Embeddings"))
	fmt.Println()
	fmt.Printf("  Model:      %s (%s)\n", stats.EmbeddingName, e.embedder.Provider())
	fmt.Printf("  Dimensions: %d\n", stats.Dimensions)
	fmt.Println()

	fmt.Println(ui.SectionTitle.Render("LLM"))
	fmt.Println()
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	if e.qa != nil {
		fmt.Printf("  Model:    %s\n", e.model)
	}
	fmt.Printf("  Status:   %s\n", ui.FormatStatus(e.qa != nil, "ready", "unavailable (check the API key)"))

	return nil
}

// formatBytes formats bytes as human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
