package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/vector"
)

// mockEmbedder implements embeddings.Service with fixed vectors per text.
type mockEmbedder struct {
	vectors    map[string]vector.Vector
	dimensions int
	err        error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (vector.Vector, error) {
	return m.lookup(text)
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) (vector.Vector, error) {
	return m.lookup(text)
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]vector.Vector, error) {
	result := make([]vector.Vector, len(texts))
	for i, text := range texts {
		v, err := m.lookup(text)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int {
	return m.dimensions
}

func (m *mockEmbedder) Provider() embeddings.Provider {
	return embeddings.ProviderHash
}

func (m *mockEmbedder) ModelName() string {
	return "mock"
}

func (m *mockEmbedder) lookup(text string) (vector.Vector, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return vector.New(m.dimensions), nil
}

// Verify mockEmbedder implements embeddings.Service
var _ embeddings.Service = (*mockEmbedder)(nil)

func newHashSearcher(t *testing.T, opts ...store.Option) *Searcher {
	t.Helper()
	emb, err := embeddings.NewHashService(384)
	require.NoError(t, err)
	return New(store.NewMemoryStore(emb, opts...), emb)
}

func doc(id string, v ...float64) store.Document {
	return store.Document{ID: id, Text: id, Embedding: vector.Vector(v)}
}

func assertSorted(t *testing.T, results []Result) {
	t.Helper()
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "results out of order at %d", i)
	}
}

func TestTopKOrdering(t *testing.T) {
	query := vector.Vector{1, 0}
	candidates := []store.Document{
		doc("orthogonal", 0, 1),
		doc("same", 2, 0),
		doc("opposite", -1, 0),
		doc("diagonal", 1, 1),
	}

	results, err := TopK(query, candidates, 4)
	require.NoError(t, err)
	require.Len(t, results, 4)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Document.ID
	}
	assert.Equal(t, []string{"same", "diagonal", "orthogonal", "opposite"}, ids)
	assert.InDelta(t, 1.0, results[0].Score, 1e-12)
	assert.InDelta(t, -1.0, results[3].Score, 1e-12)
	assertSorted(t, results)
}

func TestTopKStableTies(t *testing.T) {
	query := vector.Vector{1, 0}
	candidates := []store.Document{
		doc("low", 0, 1),
		doc("tie-a", 1, 0),
		doc("tie-b", 3, 0),
		doc("tie-c", 0.5, 0),
	}

	results, err := TopK(query, candidates, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "tie-a", results[0].Document.ID)
	assert.Equal(t, "tie-b", results[1].Document.ID)
	assert.Equal(t, "tie-c", results[2].Document.ID)
}

func TestTopKKSemantics(t *testing.T) {
	query := vector.Vector{1, 0}
	candidates := []store.Document{doc("a", 1, 0), doc("b", 0, 1)}

	t.Run("zero", func(t *testing.T) {
		results, err := TopK(query, candidates, 0)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("larger than candidates", func(t *testing.T) {
		results, err := TopK(query, candidates, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := TopK(query, candidates, -1)
		assert.ErrorIs(t, err, ErrNegativeK)
	})

	t.Run("no candidates", func(t *testing.T) {
		results, err := TopK(query, nil, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestTopKDimensionMismatch(t *testing.T) {
	_, err := TopK(vector.Vector{1, 0, 0}, []store.Document{doc("short", 1, 0)}, 1)
	require.ErrorIs(t, err, vector.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "document short")
}

func TestTopKZeroQueryScoresZero(t *testing.T) {
	results, err := TopK(vector.New(2), []store.Document{doc("a", 1, 0), doc("b", 0, 1)}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 0.0, r.Score)
	}
	// Ties keep insertion order
	assert.Equal(t, "a", results[0].Document.ID)
}

func TestQueryEmptyStore(t *testing.T) {
	s := newHashSearcher(t)

	results, err := s.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestQueryEndToEnd(t *testing.T) {
	s := newHashSearcher(t)
	ctx := context.Background()

	for _, text := range []string{
		"Max Verstappen won the championship.",
		"George Russell drives for Mercedes.",
		"Qatar hosts a Grand Prix.",
	} {
		_, err := s.Ingest(ctx, text, "wiki")
		require.NoError(t, err)
	}

	results, err := s.Query(ctx, "Who drives for Mercedes?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "George Russell drives for Mercedes.", results[0].Document.Text)
	assert.Equal(t, "wiki", results[0].Document.Source)

	all, err := s.Query(ctx, "Who drives for Mercedes?", 3)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Greater(t, all[0].Score, all[1].Score)
	assertSorted(t, all)
}

func TestQueryScale(t *testing.T) {
	s := newHashSearcher(t)
	ctx := context.Background()

	records := make([]store.Record, 500)
	for i := range records {
		records[i] = store.Record{
			Text:   fmt.Sprintf("Document %d covers race %d of season %d", i, i%23, 2000+i%25),
			Source: "generated",
		}
	}
	require.NoError(t, s.Initialize(ctx, records))
	require.Equal(t, 500, s.Store().Len())

	for _, k := range []int{0, 1, 3, 10, 499, 500, 501, 1000} {
		results, err := s.Query(ctx, "race 7 of season 2010", k)
		require.NoError(t, err)
		assert.Len(t, results, min(k, 500), "k=%d", k)
		assertSorted(t, results)
	}
}

func TestQueryNegativeK(t *testing.T) {
	s := newHashSearcher(t)
	_, err := s.Query(context.Background(), "q", -2)
	assert.ErrorIs(t, err, ErrNegativeK)
}

func TestQueryEmbedderFailure(t *testing.T) {
	emb := &mockEmbedder{dimensions: 2, vectors: map[string]vector.Vector{"a": {1, 0}}}
	st := store.NewMemoryStore(emb)
	s := New(st, emb)

	_, err := s.Ingest(context.Background(), "a", "test")
	require.NoError(t, err)

	emb.err = errors.New("connection refused")
	_, err = s.Query(context.Background(), "a", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
}

func TestInitialize(t *testing.T) {
	s := newHashSearcher(t)
	ctx := context.Background()

	assert.False(t, s.Initialized())
	require.NoError(t, s.Initialize(ctx, []store.Record{{Text: "Mercedes", Source: "seed"}}))
	assert.True(t, s.Initialized())

	err := s.Initialize(ctx, []store.Record{{Text: "Ferrari", Source: "seed"}})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, 1, s.Store().Len())
}

func TestInitializeEmptySeed(t *testing.T) {
	s := newHashSearcher(t)
	require.NoError(t, s.Initialize(context.Background(), nil))
	assert.True(t, s.Initialized())
	assert.Equal(t, 0, s.Store().Len())
}

func TestInitializeFailureCanRetry(t *testing.T) {
	s := newHashSearcher(t, store.WithMaxDocuments(1))
	ctx := context.Background()

	err := s.Initialize(ctx, []store.Record{{Text: "one"}, {Text: "two"}})
	require.ErrorIs(t, err, store.ErrCapacityExceeded)
	assert.False(t, s.Initialized())

	require.NoError(t, s.Initialize(ctx, []store.Record{{Text: "one"}}))
	assert.True(t, s.Initialized())
}

func TestIngestNoDedup(t *testing.T) {
	s := newHashSearcher(t)
	ctx := context.Background()

	id1, err := s.Ingest(ctx, "Lewis Hamilton", "a")
	require.NoError(t, err)
	id2, err := s.Ingest(ctx, "Lewis Hamilton", "a")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	results, err := s.Query(ctx, "Hamilton", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, id1, results[0].Document.ID)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestIngestCapacity(t *testing.T) {
	s := newHashSearcher(t, store.WithMaxDocuments(1))
	ctx := context.Background()

	_, err := s.Ingest(ctx, "first", "test")
	require.NoError(t, err)

	_, err = s.Ingest(ctx, "second", "test")
	assert.ErrorIs(t, err, store.ErrCapacityExceeded)
}

func TestIngestBatch(t *testing.T) {
	s := newHashSearcher(t, store.WithMaxDocuments(3))
	ctx := context.Background()

	ids, err := s.IngestBatch(ctx, []store.Record{{Text: "a"}, {Text: "b"}})
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = s.IngestBatch(ctx, []store.Record{{Text: "c"}, {Text: "d"}})
	assert.ErrorIs(t, err, store.ErrCapacityExceeded)
	assert.Equal(t, 2, s.Store().Len())
}

func TestSearchOptions(t *testing.T) {
	s := newHashSearcher(t)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, []store.Record{
		{Text: "George Russell drives for Mercedes.", Source: "wiki"},
		{Text: "Qatar hosts a Grand Prix.", Source: "wiki"},
		{Text: "Mercedes won eight constructors titles.", Source: "wiki"},
		{Text: "Monaco is a street circuit.", Source: "wiki"},
	}))

	t.Run("default top k", func(t *testing.T) {
		results, err := s.Search(ctx, "Mercedes", SearchOptions{})
		require.NoError(t, err)
		assert.Len(t, results, DefaultTopK)
	})

	t.Run("min score filters unrelated", func(t *testing.T) {
		results, err := s.Search(ctx, "Mercedes", SearchOptions{TopK: 4, MinScore: 0.1})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Contains(t, r.Document.Text, "Mercedes")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		opts := DefaultSearchOptions()
		assert.Equal(t, 3, opts.TopK)
		assert.Equal(t, 0.0, opts.MinScore)
	})
}

func TestTexts(t *testing.T) {
	results := []Result{
		{Document: store.Document{Text: "first"}, Score: 0.9},
		{Document: store.Document{Text: "second"}, Score: 0.5},
	}
	assert.Equal(t, []string{"first", "second"}, Texts(results))
	assert.Empty(t, Texts(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Fédérat...", truncate("Fédération Internationale", 10))
	assert.Equal(t, "Fédération", truncate("Fédération", 10))
}
