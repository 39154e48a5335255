package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/knowledge"
	"github.com/nickcecere/lrag/internal/llm"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/store"
)

// engine bundles the components every command needs.
type engine struct {
	embedder embeddings.Service
	store    *store.MemoryStore
	searcher *search.Searcher

	// qa is nil when no language model could be configured.
	qa    *llm.QAService
	model string
}

// buildEngine creates the embedder and store, seeds the store, and wires the
// answer orchestrator when an LLM is available. With requireLLM a missing
// model is an error instead of a warning.
func buildEngine(ctx context.Context, cfg *config.Config, seed []store.Record, requireLLM bool) (*engine, error) {
	emb, err := embeddings.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	st := store.NewMemoryStore(emb, store.WithMaxDocuments(cfg.Store.MaxDocuments))
	searcher := search.New(st, emb)

	if err := searcher.Initialize(ctx, seed); err != nil {
		return nil, err
	}

	e := &engine{
		embedder: emb,
		store:    st,
		searcher: searcher,
	}

	svc, err := llm.NewService(cfg)
	if err != nil {
		if requireLLM {
			return nil, fmt.Errorf("failed to create LLM service: %w", err)
		}
		log.Warn("No language model available, answers are disabled", "error", err)
		return e, nil
	}

	gen := llm.NewChatGenerator(svc, llm.CompletionOptionsFromConfig(cfg))
	e.qa = llm.NewQAService(searcher, gen)
	e.model = gen.ModelName()

	log.Debug("Engine ready",
		"embedder", emb.ModelName(),
		"documents", st.Len(),
		"model", e.model,
	)
	return e, nil
}

// seedRecords resolves the startup records from the configuration.
func seedRecords(cfg *config.Config) ([]store.Record, error) {
	records, err := knowledge.Seed(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed records: %w", err)
	}
	return records, nil
}

// signalContext returns a context cancelled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
