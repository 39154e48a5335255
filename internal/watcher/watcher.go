// Package watcher reloads the seed file on change and ingests records the
// store has not seen yet.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/nickcecere/lrag/internal/knowledge"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/store"
)

// Watcher watches a seed file and appends its new records to the store.
// The store is append-only, so records removed from the file stay stored.
type Watcher struct {
	path     string
	searcher *search.Searcher

	// seen holds content hashes already present in the store
	seen   map[string]struct{}
	seenMu sync.Mutex

	// pending is set by file events and cleared by the debounce loop
	pending      bool
	pendingMu    sync.Mutex
	debounceTime time.Duration

	// callback for status updates
	onSync func(added int, err error)
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceTime sets the debounce duration for batching events.
func WithDebounceTime(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceTime = d
	}
}

// WithSyncCallback sets a callback invoked after each reload.
func WithSyncCallback(fn func(added int, err error)) Option {
	return func(w *Watcher) {
		w.onSync = fn
	}
}

// New creates a watcher for the seed file at path. Documents already in the
// searcher's store count as seen.
func New(path string, searcher *search.Searcher, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:         absPath,
		searcher:     searcher,
		seen:         make(map[string]struct{}),
		debounceTime: 500 * time.Millisecond,
		onSync:       func(int, error) {}, // noop default
	}

	for _, opt := range opts {
		opt(w)
	}

	for _, doc := range searcher.Store().All() {
		w.seen[doc.Hash] = struct{}{}
	}

	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching for changes. Blocks until context is cancelled.
// The parent directory is watched so editors that replace the file by rename
// are still picked up.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	log.Info("Watching seed file for changes", "file", w.path)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// handleEvent marks a reload as pending for writes to the watched file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	log.Debug("Seed file event", "op", event.Op.String())

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()
}

// processDebounced reloads at most once per debounce interval.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pendingMu.Lock()
			pending := w.pending
			w.pending = false
			w.pendingMu.Unlock()

			if !pending {
				continue
			}

			added, err := w.Sync(ctx)
			if err != nil {
				log.Error("Failed to reload seed file", "file", w.path, "error", err)
			} else if added > 0 {
				log.Info("Ingested new seed records", "file", w.path, "added", added)
			}
			w.onSync(added, err)
		}
	}
}

// Sync reads the seed file and ingests every record whose text is not yet
// stored. It returns the number of records added. A batch that would exceed
// the store capacity is rejected whole and nothing is marked seen.
func (w *Watcher) Sync(ctx context.Context) (int, error) {
	records, err := knowledge.LoadFile(w.path)
	if err != nil {
		return 0, err
	}

	w.seenMu.Lock()
	defer w.seenMu.Unlock()

	fresh := make([]store.Record, 0, len(records))
	hashes := make(map[string]struct{}, len(records))
	for _, r := range records {
		h := store.HashContent(r.Text)
		if _, ok := w.seen[h]; ok {
			continue
		}
		if _, ok := hashes[h]; ok {
			continue
		}
		hashes[h] = struct{}{}
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	if _, err := w.searcher.IngestBatch(ctx, fresh); err != nil {
		return 0, err
	}

	for h := range hashes {
		w.seen[h] = struct{}{}
	}
	return len(fresh), nil
}
