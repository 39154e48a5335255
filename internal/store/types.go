// Package store provides the append-only in-memory document store.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/nickcecere/lrag/internal/vector"
)

// ErrCapacityExceeded is returned when an append would grow the store past its
// configured maximum. The append is rejected as a whole and nothing is dropped.
var ErrCapacityExceeded = errors.New("document store capacity exceeded")

// Document is a stored passage together with its embedding.
// Documents are immutable once added.
type Document struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Source    string        `json:"source"`
	Hash      string        `json:"hash"` // Content hash (xxh64:...)
	Embedding vector.Vector `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// Record is the input for an append: the text to embed and where it came from.
type Record struct {
	Text   string `json:"text" yaml:"text" mapstructure:"text"`
	Source string `json:"source" yaml:"source" mapstructure:"source"`
}

// Stats contains statistics about a store.
type Stats struct {
	DocumentCount int            `json:"document_count"`
	MaxDocuments  int            `json:"max_documents"` // 0 means unlimited
	TotalBytes    int64          `json:"total_bytes"`
	UniqueTexts   int            `json:"unique_texts"`
	Sources       map[string]int `json:"sources"`
	Dimensions    int            `json:"dimensions"`
	EmbeddingName string         `json:"embedding_model"`
}

// HashContent returns the xxh64 digest of text in the "xxh64:<hex>" form.
func HashContent(text string) string {
	return fmt.Sprintf("xxh64:%016x", xxhash.Sum64String(text))
}
