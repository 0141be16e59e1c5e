// Package store provides vector index storage for knowledge chunks.
package store

import (
	"context"
	"errors"
)

// ErrNoIndex is returned by Load when no persisted index exists yet.
var ErrNoIndex = errors.New("no vector index found")

// Chunk is one embedded slice of a source document.
type Chunk struct {
	// ID uniquely identifies the chunk.
	ID string
	// Filename is the source file the chunk came from.
	Filename string
	// SourceURL is the canonical URL of the source, when known.
	SourceURL string
	// SourceCategory groups sources (glossary, guide, blog).
	SourceCategory string
	// HeaderPath holds the markdown headers governing the chunk,
	// outermost first.
	HeaderPath []string
	// Content is the chunk text.
	Content string
	// Embedding is the chunk vector.
	Embedding []float32
}

// SearchResult is a retrieved chunk with its similarity score.
type SearchResult struct {
	ID             string
	Filename       string
	SourceURL      string
	SourceCategory string
	HeaderPath     []string
	Content        string
	Score          float32
}

// VectorStore is the storage contract for knowledge chunks. Drivers:
// a local persisted index (default) and Milvus.
type VectorStore interface {
	// Load opens an existing index. ErrNoIndex means nothing has been
	// ingested yet.
	Load(ctx context.Context) error

	// Add appends chunks to the index.
	Add(ctx context.Context, chunks []*Chunk) error

	// Search returns the topK most similar chunks to the embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]*SearchResult, error)

	// Persist makes previous Adds durable.
	Persist(ctx context.Context) error

	// Reset drops all stored chunks so a fresh index can be built.
	Reset(ctx context.Context) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
