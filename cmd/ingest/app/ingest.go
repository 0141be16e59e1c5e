// Package app provides the ingestion CLI application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/cmd/ingest/app/options"
	"github.com/tradementor/tradementor/internal/ingest"
	"github.com/tradementor/tradementor/internal/knowledge/store"
	"github.com/tradementor/tradementor/pkg/app"
	milvuscomp "github.com/tradementor/tradementor/pkg/component/milvus"
	"github.com/tradementor/tradementor/pkg/llm"
	vsopts "github.com/tradementor/tradementor/pkg/options/vectorstore"
)

const (
	// Name is the name of the application.
	Name = "tradementor-ingest"

	commandDesc = `TradeMentor Ingestion CLI

One-shot index build for the knowledge service.

The run loads HTML documents from the data directory, converts them to
markdown, chunks them along their header structure, embeds every chunk,
and replaces the persisted index and document metadata.`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewIngestOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("TradeMentor index build"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic of the ingestion run.
func run(opts *options.IngestOptions) app.RunFunc {
	return func() error {
		if err := opts.LogOptions.Init(); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		vs, err := newVectorStore(opts)
		if err != nil {
			return err
		}
		defer func() {
			if err := vs.Close(context.Background()); err != nil {
				logger.Warnw("vector store close failed", "error", err)
			}
		}()

		embedder, err := llm.NewEmbeddingProvider(opts.EmbeddingOptions.Provider, opts.EmbeddingOptions.ToConfigMap())
		if err != nil {
			return fmt.Errorf("create embedding provider: %w", err)
		}

		pipeline := ingest.New(&ingest.Config{
			DataDir:      opts.KnowledgeOptions.DataDir,
			IndexDir:     opts.KnowledgeOptions.IndexDir,
			ChunkSize:    opts.KnowledgeOptions.ChunkSize,
			ChunkOverlap: opts.KnowledgeOptions.ChunkOverlap,
			Embedder:     embedder,
			Store:        vs,
		})
		return pipeline.Run(ctx)
	}
}

func newVectorStore(opts *options.IngestOptions) (store.VectorStore, error) {
	switch opts.VectorStoreOptions.Driver {
	case vsopts.DriverMilvus:
		client, err := milvuscomp.New(opts.VectorStoreOptions.Milvus)
		if err != nil {
			return nil, fmt.Errorf("connect milvus: %w", err)
		}
		return store.NewMilvusStore(client, opts.VectorStoreOptions.Collection, opts.KnowledgeOptions.EmbeddingDim), nil
	default:
		return store.NewLocalStore(opts.KnowledgeOptions.IndexDir, opts.KnowledgeOptions.EmbeddingDim), nil
	}
}
