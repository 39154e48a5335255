package search

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/vector"
)

// ErrNegativeK is returned when a negative result count is requested.
var ErrNegativeK = errors.New("k must not be negative")

// Result is a document paired with its similarity to the query.
type Result struct {
	Document store.Document `json:"document"`
	Score    float64        `json:"score"` // cosine similarity in [-1, 1]
}

// TopK scores every candidate against query and returns the k best in
// descending score order. Equal scores keep their candidate order.
// k == 0 yields an empty slice and k >= len(candidates) ranks them all.
func TopK(query vector.Vector, candidates []store.Document, k int) ([]Result, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeK, k)
	}

	results := make([]Result, 0, len(candidates))
	if k == 0 {
		return results, nil
	}

	for _, doc := range candidates {
		score, err := vector.Cosine(query, doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		results = append(results, Result{Document: doc, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
