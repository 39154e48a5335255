package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nickcecere/lrag/internal/api"
	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/ui"
	"github.com/nickcecere/lrag/internal/watcher"
)

var (
	serveAddr    string
	serveWatch   bool
	serveLogFile string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat, search and embeddings HTTP API",
	Long: `Start the HTTP API.

Routes:
  POST /api/chat        {"question": "..."} -> {"answer": "...", "sources": [...]}
  POST /api/search      {"query": "...", "top_k": 3}
  POST /api/documents   {"text": "...", "source": "..."}
  POST /v1/embeddings   OpenAI-compatible embeddings
  GET  /health
  GET  /stats

With --watch the seed file is reloaded on change and new records are added.

Examples:
  lrag serve
  lrag serve --addr :8080 --seed-file docs.yaml --watch`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "reload the seed file when it changes")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "also log to a rotating file (strftime pattern)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveLogFile != "" {
		cfg.Logging.File = serveLogFile
	}

	closer, err := ui.InitFileLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signalContext()
	defer cancel()

	seed, err := seedRecords(cfg)
	if err != nil {
		return err
	}

	e, err := buildEngine(ctx, cfg, seed, true)
	if err != nil {
		return err
	}

	var w *watcher.Watcher
	if serveWatch {
		if cfg.Seed.File == "" {
			return fmt.Errorf("--watch requires a seed file (--seed-file or seed.file)")
		}
		if w, err = watcher.New(cfg.Seed.File, e.searcher); err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
	}

	server := api.NewServer(e.searcher, e.qa, e.embedder, api.OptionsFromConfig(cfg))
	httpServer := server.HTTPServer(cfg.Server)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP API listening", "addr", httpServer.Addr, "documents", e.store.Len(), "model", e.model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP API")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if w != nil {
		g.Go(func() error {
			if err := w.Start(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("watcher failed: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
