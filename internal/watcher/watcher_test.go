package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/knowledge"
	"github.com/nickcecere/lrag/internal/search"
	"github.com/nickcecere/lrag/internal/store"
)

const seedV1 = `documents:
  - text: George Russell drives for Mercedes.
    source: wiki
  - text: Max Verstappen drives for Red Bull.
    source: wiki
`

const seedV2 = seedV1 + `  - text: Lando Norris drives for McLaren.
    source: wiki
  - text: Lando Norris drives for McLaren.
    source: wiki
`

func setup(t *testing.T, content string, opts ...store.Option) (string, *search.Searcher) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	emb, err := embeddings.NewHashService(128)
	require.NoError(t, err)

	s := search.New(store.NewMemoryStore(emb, opts...), emb)
	records, err := knowledge.LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background(), records))

	return path, s
}

func TestSyncNoChanges(t *testing.T) {
	path, s := setup(t, seedV1)

	w, err := New(path, s)
	require.NoError(t, err)

	added, err := w.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 2, s.Store().Len())
}

func TestSyncAddsOnlyNewRecords(t *testing.T) {
	path, s := setup(t, seedV1)

	w, err := New(path, s)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(seedV2), 0644))

	added, err := w.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, s.Store().Len())

	added, err = w.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	results, err := s.Query(context.Background(), "McLaren", 1)
	require.NoError(t, err)
	assert.Equal(t, "Lando Norris drives for McLaren.", results[0].Document.Text)
}

func TestSyncRemovedRecordsStay(t *testing.T) {
	path, s := setup(t, seedV1)

	w, err := New(path, s)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("documents: []\n"), 0644))

	added, err := w.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 2, s.Store().Len())
}

func TestSyncCapacity(t *testing.T) {
	path, s := setup(t, seedV1, store.WithMaxDocuments(2))

	w, err := New(path, s)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(seedV2), 0644))

	_, err = w.Sync(context.Background())
	assert.ErrorIs(t, err, store.ErrCapacityExceeded)
	assert.Equal(t, 2, s.Store().Len())
}

func TestSyncInvalidFile(t *testing.T) {
	path, s := setup(t, seedV1)

	w, err := New(path, s)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("documents:\n  - source: wiki\n"), 0644))

	_, err = w.Sync(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, s.Store().Len())
}

func TestNewResolvesPath(t *testing.T) {
	_, s := setup(t, seedV1)

	w, err := New("seed.yaml", s)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Path()))
}

func TestStartReloadsOnWrite(t *testing.T) {
	path, s := setup(t, seedV1)

	var total atomic.Int64
	w, err := New(path, s,
		WithDebounceTime(20*time.Millisecond),
		WithSyncCallback(func(added int, err error) {
			if err == nil {
				total.Add(int64(added))
			}
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(seedV2), 0644))

	require.Eventually(t, func() bool {
		return total.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 3, s.Store().Len())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
