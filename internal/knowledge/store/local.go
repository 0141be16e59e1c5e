package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tradementor/tradementor/internal/pkg/textutil"
)

// indexFileName is the gob file inside the index directory.
const indexFileName = "index.gob"

// indexFile is the on-disk layout of the local index.
type indexFile struct {
	Dimension int
	Chunks    []*Chunk
}

// LocalStore is an in-memory vector index with gob persistence and
// brute-force cosine search. It fits corpora up to tens of thousands of
// chunks, which covers a curated education library comfortably.
type LocalStore struct {
	dir string
	dim int

	mu     sync.RWMutex
	chunks []*Chunk
}

var _ VectorStore = (*LocalStore)(nil)

// NewLocalStore creates a local store rooted at dir for vectors of the
// given dimension.
func NewLocalStore(dir string, dim int) *LocalStore {
	return &LocalStore{dir: dir, dim: dim}
}

func (s *LocalStore) indexPath() string {
	return filepath.Join(s.dir, indexFileName)
}

// Load reads the persisted index. ErrNoIndex when the directory or file
// is missing.
func (s *LocalStore) Load(_ context.Context) error {
	f, err := os.Open(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoIndex
		}
		return fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = f.Close() }()

	var file indexFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	if file.Dimension != s.dim {
		return fmt.Errorf("index dimension %d does not match configured %d", file.Dimension, s.dim)
	}

	s.mu.Lock()
	s.chunks = file.Chunks
	s.mu.Unlock()
	return nil
}

// Add appends chunks after validating their dimension.
func (s *LocalStore) Add(_ context.Context, chunks []*Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) != s.dim {
			return fmt.Errorf("chunk %s: embedding dimension %d, want %d", c.ID, len(c.Embedding), s.dim)
		}
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, chunks...)
	s.mu.Unlock()
	return nil
}

// Search scores every chunk against the embedding and returns the topK
// by cosine similarity.
func (s *LocalStore) Search(_ context.Context, embedding []float32, topK int) ([]*SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*SearchResult, 0, len(s.chunks))
	for _, c := range s.chunks {
		score := textutil.CosineSimilarity(embedding, c.Embedding)
		results = append(results, &SearchResult{
			ID:             c.ID,
			Filename:       c.Filename,
			SourceURL:      c.SourceURL,
			SourceCategory: c.SourceCategory,
			HeaderPath:     c.HeaderPath,
			Content:        c.Content,
			Score:          float32(score),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Persist writes the index atomically: encode to a temp file in the
// same directory, then rename over the old index.
func (s *LocalStore) Persist(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	s.mu.RLock()
	file := indexFile{Dimension: s.dim, Chunks: s.chunks}
	s.mu.RUnlock()

	tmp, err := os.CreateTemp(s.dir, indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(&file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, s.indexPath()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Reset drops all chunks held in memory.
func (s *LocalStore) Reset(_ context.Context) error {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()
	return nil
}

// Count returns the number of stored chunks.
func (s *LocalStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunks)), nil
}

// Close is a no-op for the local store.
func (s *LocalStore) Close(_ context.Context) error {
	return nil
}
