// Package vector indexes uploaded files by embedding so a new upload can be
// matched against earlier ones.
package vector

import "context"

// Document is an embedded upload.
type Document struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Query narrows a similarity search.
type Query struct {
	Vector []float32
	TopK   int
	// ExcludeSession drops documents whose "session" metadata equals it.
	ExcludeSession string
}

// Repository provides vector storage and similarity search.
type Repository interface {
	// EnsureCollection creates the backing collection for dim-sized vectors
	// when it does not exist.
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, docs []Document) error
	Search(ctx context.Context, q Query) ([]SearchResult, error)
	Close() error
}
