package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/knowledge/store"
)

func newChunk(id string, embedding []float32) *store.Chunk {
	return &store.Chunk{
		ID:         id,
		Filename:   id + ".html",
		SourceURL:  "https://example.com/" + id,
		HeaderPath: []string{"Options Basics"},
		Content:    "content for " + id,
		Embedding:  embedding,
	}
}

func TestLocalStoreLoadMissing(t *testing.T) {
	s := store.NewLocalStore(t.TempDir(), 3)
	err := s.Load(context.Background())
	assert.ErrorIs(t, err, store.ErrNoIndex)
}

func TestLocalStoreAddDimensionMismatch(t *testing.T) {
	s := store.NewLocalStore(t.TempDir(), 3)
	err := s.Add(context.Background(), []*store.Chunk{newChunk("a", []float32{1, 2})})
	assert.Error(t, err)
}

func TestLocalStoreSearchRanking(t *testing.T) {
	ctx := context.Background()
	s := store.NewLocalStore(t.TempDir(), 3)

	require.NoError(t, s.Add(ctx, []*store.Chunk{
		newChunk("exact", []float32{1, 0, 0}),
		newChunk("close", []float32{0.9, 0.1, 0}),
		newChunk("far", []float32{0, 0, 1}),
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exact", results[0].ID)
	assert.Equal(t, "close", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestLocalStoreSearchTopKBounds(t *testing.T) {
	ctx := context.Background()
	s := store.NewLocalStore(t.TempDir(), 2)

	require.NoError(t, s.Add(ctx, []*store.Chunk{newChunk("only", []float32{1, 0})}))

	results, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLocalStorePersistAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := store.NewLocalStore(dir, 2)
	chunks := make([]*store.Chunk, 0, 5)
	for i := 0; i < 5; i++ {
		chunks = append(chunks, newChunk(fmt.Sprintf("c%d", i), []float32{float32(i), 1}))
	}
	require.NoError(t, s.Add(ctx, chunks))
	require.NoError(t, s.Persist(ctx))

	reloaded := store.NewLocalStore(dir, 2)
	require.NoError(t, reloaded.Load(ctx))

	count, err := reloaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	results, err := reloaded.Search(ctx, []float32{4, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c4", results[0].ID)
	assert.Equal(t, []string{"Options Basics"}, results[0].HeaderPath)
}

func TestLocalStorePersistDimensionGuard(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := store.NewLocalStore(dir, 2)
	require.NoError(t, s.Add(ctx, []*store.Chunk{newChunk("a", []float32{1, 0})}))
	require.NoError(t, s.Persist(ctx))

	mismatched := store.NewLocalStore(dir, 4)
	assert.Error(t, mismatched.Load(ctx))
}

func TestLocalStoreReset(t *testing.T) {
	ctx := context.Background()
	s := store.NewLocalStore(t.TempDir(), 2)

	require.NoError(t, s.Add(ctx, []*store.Chunk{newChunk("a", []float32{1, 0})}))
	require.NoError(t, s.Reset(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
