package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/tradementor/tradementor/pkg/component/milvus"
)

// headerPathSep joins header path levels in the varchar column.
const headerPathSep = " > "

// MilvusStore implements VectorStore on a Milvus collection.
type MilvusStore struct {
	client     *milvus.Client
	collection string
	dim        int
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore creates a Milvus-backed store for the collection.
func NewMilvusStore(client *milvus.Client, collection string, dim int) *MilvusStore {
	return &MilvusStore{client: client, collection: collection, dim: dim}
}

func (s *MilvusStore) schema() *milvus.CollectionSchema {
	return &milvus.CollectionSchema{
		Name:        s.collection,
		Description: "knowledge base chunks",
		Dimension:   s.dim,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "filename", DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: "source_url", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "source_category", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "header_path", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
}

// Load verifies the collection exists; ErrNoIndex when it does not.
func (s *MilvusStore) Load(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNoIndex
	}
	return nil
}

// Add creates the collection on first use and inserts the chunks.
func (s *MilvusStore) Add(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.client.CreateCollection(ctx, s.schema()); err != nil {
		return err
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]string{
		"chunk_id":        make([]string, len(chunks)),
		"filename":        make([]string, len(chunks)),
		"source_url":      make([]string, len(chunks)),
		"source_category": make([]string, len(chunks)),
		"header_path":     make([]string, len(chunks)),
		"content":         make([]string, len(chunks)),
	}
	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["chunk_id"][i] = chunk.ID
		metadata["filename"][i] = chunk.Filename
		metadata["source_url"][i] = chunk.SourceURL
		metadata["source_category"][i] = chunk.SourceCategory
		metadata["header_path"][i] = strings.Join(chunk.HeaderPath, headerPathSep)
		metadata["content"][i] = chunk.Content
	}

	if _, err := s.client.Insert(ctx, s.collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert into milvus: %w", err)
	}
	return nil
}

// Search runs a similarity search over the collection.
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, topK int) ([]*SearchResult, error) {
	outputFields := []string{"chunk_id", "filename", "source_url", "source_category", "header_path", "content"}
	results, err := s.client.Search(ctx, s.collection, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("search milvus: %w", err)
	}

	searchResults := make([]*SearchResult, len(results))
	for i, r := range results {
		var headerPath []string
		if hp := r.Metadata["header_path"]; hp != "" {
			headerPath = strings.Split(hp, headerPathSep)
		}
		searchResults[i] = &SearchResult{
			ID:             r.Metadata["chunk_id"],
			Filename:       r.Metadata["filename"],
			SourceURL:      r.Metadata["source_url"],
			SourceCategory: r.Metadata["source_category"],
			HeaderPath:     headerPath,
			Content:        r.Metadata["content"],
			Score:          r.Score,
		}
	}
	return searchResults, nil
}

// Persist is a no-op; Insert flushes synchronously.
func (s *MilvusStore) Persist(_ context.Context) error {
	return nil
}

// Reset drops the collection so ingestion starts clean.
func (s *MilvusStore) Reset(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return s.client.DropCollection(ctx, s.collection)
}

// Count returns the collection row count.
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	return s.client.GetCollectionStats(ctx, s.collection)
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
