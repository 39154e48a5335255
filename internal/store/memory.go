package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nickcecere/lrag/internal/embeddings"
)

// MemoryStore implements Store with an in-process slice guarded by a RW lock.
type MemoryStore struct {
	embedder embeddings.Service
	maxDocs  int
	now      func() time.Time

	mu    sync.RWMutex
	docs  []Document
	index map[string]int
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMaxDocuments caps the number of stored documents. Zero means unlimited.
func WithMaxDocuments(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxDocs = n
		}
	}
}

// NewMemoryStore creates an empty store that embeds text with embedder.
func NewMemoryStore(embedder embeddings.Service, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		embedder: embedder,
		now:      time.Now,
		index:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add embeds text and appends it as a new document.
func (s *MemoryStore) Add(ctx context.Context, text, source string) (string, error) {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to embed document: %w", err)
	}

	doc := s.newDocument(text, source)
	doc.Embedding = embedding

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCapacity(1); err != nil {
		return "", err
	}
	s.appendLocked(doc)

	log.Debug("Added document", "id", doc.ID, "source", source, "count", len(s.docs))
	return doc.ID, nil
}

// AddBatch embeds all records with a single batch call and appends them atomically.
func (s *MemoryStore) AddBatch(ctx context.Context, records []Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(records))
	}

	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = s.newDocument(r.Text, r.Source)
		docs[i].Embedding = vectors[i]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCapacity(len(docs)); err != nil {
		return nil, err
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		s.appendLocked(doc)
		ids[i] = doc.ID
	}

	log.Debug("Added documents", "added", len(ids), "count", len(s.docs))
	return ids, nil
}

// All returns a snapshot of the documents in insertion order.
func (s *MemoryStore) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Get returns a document by id.
func (s *MemoryStore) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Document{}, false
	}
	return s.docs[i], true
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Stats returns statistics about the store.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		DocumentCount: len(s.docs),
		MaxDocuments:  s.maxDocs,
		Sources:       make(map[string]int),
		Dimensions:    s.embedder.Dimensions(),
		EmbeddingName: s.embedder.ModelName(),
	}

	seen := make(map[string]struct{}, len(s.docs))
	for _, doc := range s.docs {
		stats.TotalBytes += int64(len(doc.Text))
		stats.Sources[doc.Source]++
		seen[doc.Hash] = struct{}{}
	}
	stats.UniqueTexts = len(seen)

	return stats
}

func (s *MemoryStore) newDocument(text, source string) Document {
	return Document{
		ID:        "doc-" + uuid.NewString(),
		Text:      text,
		Source:    source,
		Hash:      HashContent(text),
		CreatedAt: s.now(),
	}
}

// checkCapacity must be called with the write lock held.
func (s *MemoryStore) checkCapacity(n int) error {
	if s.maxDocs > 0 && len(s.docs)+n > s.maxDocs {
		return fmt.Errorf("%w: %d documents stored, %d more would exceed the limit of %d",
			ErrCapacityExceeded, len(s.docs), n, s.maxDocs)
	}
	return nil
}

// appendLocked must be called with the write lock held.
func (s *MemoryStore) appendLocked(doc Document) {
	s.index[doc.ID] = len(s.docs)
	s.docs = append(s.docs, doc)
}
