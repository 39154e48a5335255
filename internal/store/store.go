package store

import "context"

// Store defines the interface for document storage operations.
type Store interface {
	// Add embeds text and appends it as a new document, returning its id.
	Add(ctx context.Context, text, source string) (string, error)

	// AddBatch embeds and appends records in order. Either all are appended or none.
	AddBatch(ctx context.Context, records []Record) ([]string, error)

	// All returns the documents in insertion order.
	// Callers must not mutate the returned documents.
	All() []Document

	// Get returns a document by id.
	Get(id string) (Document, bool)

	// Len returns the number of stored documents.
	Len() int

	// Stats returns store statistics.
	Stats() Stats
}
