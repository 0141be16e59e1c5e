package biz

import (
	"context"
	"fmt"

	"github.com/tradementor/tradementor/internal/knowledge/metrics"
	"github.com/tradementor/tradementor/internal/knowledge/store"
	"github.com/tradementor/tradementor/pkg/llm"
)

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]*store.SearchResult, error)
}

type vectorRetriever struct {
	embedder llm.EmbeddingProvider
	store    store.VectorStore
	topK     int
	metrics  *metrics.Metrics
}

var _ Retriever = (*vectorRetriever)(nil)

// NewRetriever builds a Retriever that embeds the question and runs a
// top-k similarity search.
func NewRetriever(embedder llm.EmbeddingProvider, st store.VectorStore, topK int) Retriever {
	return &vectorRetriever{
		embedder: embedder,
		store:    st,
		topK:     topK,
		metrics:  metrics.Default(),
	}
}

func (r *vectorRetriever) Retrieve(ctx context.Context, question string) ([]*store.SearchResult, error) {
	vector, err := r.embedder.EmbedSingle(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := r.store.Search(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	r.metrics.IncRetrievals()
	return results, nil
}
