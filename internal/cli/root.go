// Package cli implements the command-line interface for lrag.
package cli

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
)

var (
	// Version information set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lrag [question]",
	Short: "Minimal retrieval-augmented question answering",
	Long: `lrag answers questions from a small in-memory knowledge base.

Passages are embedded with a local hashing embedder (or Ollama/OpenAI),
ranked by cosine similarity, and the best matches are handed to an LLM
as context for the answer.

Examples:
  # Ask a question against the built-in Formula 1 knowledge base
  lrag "Who drives for Mercedes?"

  # Show the passages that would be used as context
  lrag search "Red Bull Racing"

  # Serve the HTTP API and reload the seed file on change
  lrag serve --seed-file docs.yaml --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runAsk(cmd, args)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetDebug(debug)
		if debug {
			log.Debug("Debug logging enabled")
		}

		if err := config.Load(cfgFile); err != nil {
			return err
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	ui.InitLogger()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/lrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.PersistentFlags().String("seed-file", "", "yaml/json/toml file with a top-level documents list")
	rootCmd.PersistentFlags().Int("max-documents", 0, "maximum number of stored documents (0 = unlimited)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("seed.file", rootCmd.PersistentFlags().Lookup("seed-file"))
	_ = viper.BindPFlag("store.max_documents", rootCmd.PersistentFlags().Lookup("max-documents"))

	rootCmd.Flags().BoolVarP(&askStream, "stream", "s", false, "stream the answer as it is generated")
	rootCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages used as context (default from config)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lrag %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}
