package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/mcp"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/watcher"
)

var (
	mcpWatch        bool
	mcpClientConfig string
	mcpServerName   string
)

// mcpCmd represents the MCP server command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server for integration with AI agents.

The server communicates via stdin/stdout using JSON-RPC 2.0 and provides tools for:
  - lrag_search: Rank stored passages against a query
  - lrag_ask: Answer a question from the stored passages
  - lrag_ingest: Add a passage to the knowledge base

With --watch the seed file is reloaded on change.

This command is typically invoked by an agent and not run directly by users.`,
	RunE: runMcpCmd,
}

// mcpInstallCmd registers lrag in an MCP client config file.
var mcpInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register lrag in an MCP client config",
	Long: `Add lrag to the "mcpServers" section of an MCP client config file
(for example ~/.claude.json or claude_desktop_config.json). Other entries
are preserved. When a seed file is configured the server is registered
with --seed-file and --watch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seedFile := config.Get().Seed.File
		if seedFile != "" {
			abs, err := filepath.Abs(seedFile)
			if err != nil {
				return err
			}
			seedFile = abs
		}

		if err := mcp.Register(mcpClientConfig, mcpServerName, mcp.DefaultEntry(seedFile)); err != nil {
			return err
		}

		fmt.Printf("Registered %s in %s\n", mcpServerName, mcpClientConfig)
		return nil
	},
}

// mcpUninstallCmd removes lrag from an MCP client config file.
var mcpUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove lrag from an MCP client config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := mcp.Unregister(mcpClientConfig, mcpServerName)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("%s is not registered in %s, nothing to uninstall\n", mcpServerName, mcpClientConfig)
			return nil
		}

		fmt.Printf("Removed %s from %s\n", mcpServerName, mcpClientConfig)
		return nil
	},
}

func init() {
	mcpCmd.Flags().BoolVarP(&mcpWatch, "watch", "w", false, "reload the seed file when it changes")

	for _, c := range []*cobra.Command{mcpInstallCmd, mcpUninstallCmd} {
		c.Flags().StringVar(&mcpClientConfig, "client-config", "", "path to the MCP client config file")
		c.Flags().StringVar(&mcpServerName, "name", mcp.ServerName, "server name in the client config")
		_ = c.MarkFlagRequired("client-config")
		mcpCmd.AddCommand(c)
	}
}

func runMcpCmd(cmd *cobra.Command, args []string) error {
	// MCP server uses stdin/stdout for communication, so logs must stay on stderr
	log.SetOutput(os.Stderr)

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

	if mcpWatch && cfg.Seed.File != "" {
		go startBackgroundWatcher(ctx, cfg.Seed.File, e.searcher)
	}

	server := mcp.NewServer(e.searcher, e.qa, cfg.Search.TopK)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startBackgroundWatcher reloads the seed file until ctx is cancelled.
func startBackgroundWatcher(ctx context.Context, path string, searcher *search.Searcher) {
	w, err := watcher.New(path, searcher,
		watcher.WithSyncCallback(func(added int, err error) {
			log.Debug("Background watcher sync", "added", added, "error", err)
		}),
	)
	if err != nil {
		log.Error("Failed to create watcher", "error", err)
		return
	}

	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error("Watcher error", "error", err)
	}
}
