// Package search provides similarity ranking and the retrieval facade for lrag.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/store"
)

// DefaultTopK is the number of results returned when no k is given.
const DefaultTopK = 3

// ErrAlreadyInitialized is returned by a second call to Initialize.
var ErrAlreadyInitialized = errors.New("searcher already initialized")

// Searcher ingests documents into a store and answers similarity queries over it.
// All document state lives in the wrapped store.
type Searcher struct {
	store    store.Store
	embedder embeddings.Service

	initMu      sync.Mutex
	initialized bool
}

// SearchOptions configures the search.
type SearchOptions struct {
	// TopK is the maximum number of results to return. 0 means unset and
	// falls back to DefaultTopK; call Query directly for a k of 0.
	TopK int

	// MinScore filters results below this similarity score.
	MinScore float64
}

// DefaultSearchOptions returns sensible defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:     DefaultTopK,
		MinScore: 0.0,
	}
}

// New creates a new Searcher.
func New(st store.Store, emb embeddings.Service) *Searcher {
	return &Searcher{
		store:    st,
		embedder: emb,
	}
}

// Store returns the underlying document store.
func (s *Searcher) Store() store.Store {
	return s.store
}

// Initialize seeds the store once before queries are served.
// A failed seed leaves the searcher uninitialized so it can be retried.
func (s *Searcher) Initialize(ctx context.Context, records []store.Record) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}

	if _, err := s.store.AddBatch(ctx, records); err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}

	s.initialized = true
	log.Info("Knowledge base initialized", "documents", len(records))
	return nil
}

// Initialized reports whether Initialize has completed.
func (s *Searcher) Initialized() bool {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	return s.initialized
}

// Ingest adds a single document. Identical text may be ingested repeatedly.
func (s *Searcher) Ingest(ctx context.Context, text, source string) (string, error) {
	id, err := s.store.Add(ctx, text, source)
	if err != nil {
		return "", fmt.Errorf("failed to ingest document: %w", err)
	}
	return id, nil
}

// IngestBatch adds records atomically: either all are stored or none are.
func (s *Searcher) IngestBatch(ctx context.Context, records []store.Record) ([]string, error) {
	ids, err := s.store.AddBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest documents: %w", err)
	}
	return ids, nil
}

// Query returns the k documents most similar to question.
// An empty store yields an empty result, not an error.
func (s *Searcher) Query(ctx context.Context, question string, k int) ([]Result, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeK, k)
	}

	docs := s.store.All()
	if len(docs) == 0 {
		return []Result{}, nil
	}

	log.Debug("Generating query embedding", "query", truncate(question, 50))
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := TopK(queryEmbedding, docs, k)
	if err != nil {
		return nil, fmt.Errorf("ranking failed: %w", err)
	}

	log.Debug("Query complete", "candidates", len(docs), "results", len(results))
	return results, nil
}

// Search runs Query with options, dropping results below MinScore.
// A zero TopK uses DefaultTopK.
func (s *Searcher) Search(ctx context.Context, question string, opts SearchOptions) ([]Result, error) {
	topK := opts.TopK
	if topK == 0 {
		topK = DefaultTopK
	}

	ranked, err := s.Query(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		if r.Score < opts.MinScore {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// Texts returns the document texts of results in ranked order.
func Texts(results []Result) []string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Document.Text
	}
	return texts
}

// truncate shortens a string for display without splitting runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
