// Package knowledge wires the knowledge service: vector store, LLM
// providers, prompt library, job broker, HTTP transport.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"

	analysisbiz "github.com/tradementor/tradementor/internal/analysis/biz"
	analysishandler "github.com/tradementor/tradementor/internal/analysis/handler"
	analysisrouter "github.com/tradementor/tradementor/internal/analysis/router"
	analysisstore "github.com/tradementor/tradementor/internal/analysis/store"
	"github.com/tradementor/tradementor/internal/knowledge/biz"
	"github.com/tradementor/tradementor/internal/knowledge/handler"
	"github.com/tradementor/tradementor/internal/knowledge/prompt"
	"github.com/tradementor/tradementor/internal/knowledge/router"
	"github.com/tradementor/tradementor/internal/knowledge/store"
	milvuscomp "github.com/tradementor/tradementor/pkg/component/milvus"
	"github.com/tradementor/tradementor/pkg/llm"
	cacheopts "github.com/tradementor/tradementor/pkg/options/cache"
	dbopts "github.com/tradementor/tradementor/pkg/options/db"
	httpopts "github.com/tradementor/tradementor/pkg/options/http"
	knowledgeopts "github.com/tradementor/tradementor/pkg/options/knowledge"
	llmopts "github.com/tradementor/tradementor/pkg/options/llm"
	vsopts "github.com/tradementor/tradementor/pkg/options/vectorstore"
	httpsrv "github.com/tradementor/tradementor/pkg/server/http"
)

const shutdownTimeout = 10 * time.Second

// Config collects everything the knowledge server needs.
type Config struct {
	HTTP        *httpopts.Options
	Knowledge   *knowledgeopts.Options
	VectorStore *vsopts.Options
	Cache       *cacheopts.Options
	DB          *dbopts.Options
	Embedding   *llmopts.ProviderOptions
	Chat        *llmopts.ProviderOptions
}

// Server is a wired knowledge service ready to run.
type Server struct {
	httpServer *httpsrv.Server
	store      store.VectorStore
	prompts    *prompt.Manager
	analysisDB analysisstore.Factory
}

// NewServer builds the service from the config. The context bounds
// connection setup, not the server lifetime.
func (c *Config) NewServer(ctx context.Context) (*Server, error) {
	vs, err := c.newVectorStore(ctx)
	if err != nil {
		return nil, err
	}

	indexLoaded := true
	if err := vs.Load(ctx); err != nil {
		if !errors.Is(err, store.ErrNoIndex) {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
		indexLoaded = false
		logger.Warnw("no vector index found, queries will return the default answer",
			"index_dir", c.Knowledge.IndexDir)
	}
	logger.Infow("vector store ready", "driver", c.VectorStore.Driver, "index_loaded", indexLoaded)

	embedder, err := llm.NewEmbeddingProvider(c.Embedding.Provider, c.Embedding.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}
	chat, err := llm.NewChatProvider(c.Chat.Provider, c.Chat.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("create chat provider: %w", err)
	}
	logger.Infow("LLM providers ready",
		"embedding", c.Embedding.Provider, "chat", c.Chat.Provider)

	answerCache := c.newAnswerCache(ctx)

	prompts, err := prompt.NewManager(c.Knowledge.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("load prompt library: %w", err)
	}
	logger.Info("prompt library loaded")

	broker := biz.NewMemoryBroker()
	retriever := biz.NewRetriever(embedder, vs, c.Knowledge.TopK)
	service := biz.NewService(&biz.ServiceConfig{
		Retriever:    retriever,
		Chat:         chat,
		Prompts:      prompts,
		Store:        vs,
		Cache:        answerCache,
		AnswerSchema: c.Knowledge.AnswerSchema,
		IndexLoaded:  indexLoaded,
	})
	logger.Info("query service initialized")

	analysisDB, err := analysisstore.Open(c.DB)
	if err != nil {
		return nil, fmt.Errorf("open analysis db: %w", err)
	}
	analysisService := analysisbiz.NewService(analysisDB, chat,
		filepath.Join(c.Knowledge.DataDir, "explanations"))
	logger.Infow("analysis service initialized", "db", c.DB.Path)

	engine := httpsrv.NewEngine()
	h := handler.NewKnowledgeHandler(service, broker, prompts)
	router.Register(engine, h)
	analysisrouter.Register(engine, analysishandler.NewAnalysisHandler(analysisService))

	return &Server{
		httpServer: httpsrv.New(engine, c.HTTP),
		store:      vs,
		prompts:    prompts,
		analysisDB: analysisDB,
	}, nil
}

func (c *Config) newVectorStore(_ context.Context) (store.VectorStore, error) {
	switch c.VectorStore.Driver {
	case vsopts.DriverMilvus:
		client, err := milvuscomp.New(c.VectorStore.Milvus)
		if err != nil {
			return nil, fmt.Errorf("connect milvus: %w", err)
		}
		return store.NewMilvusStore(client, c.VectorStore.Collection, c.Knowledge.EmbeddingDim), nil
	default:
		return store.NewLocalStore(c.Knowledge.IndexDir, c.Knowledge.EmbeddingDim), nil
	}
}

// newAnswerCache connects Redis when the cache is enabled. A failed
// ping downgrades to no cache instead of failing startup.
func (c *Config) newAnswerCache(ctx context.Context) biz.AnswerCache {
	if c.Cache == nil || !c.Cache.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         c.Cache.Redis.Addr(),
		Password:     c.Cache.Redis.Password,
		DB:           c.Cache.Redis.Database,
		MaxRetries:   c.Cache.Redis.MaxRetries,
		PoolSize:     c.Cache.Redis.PoolSize,
		MinIdleConns: c.Cache.Redis.MinIdleConns,
		DialTimeout:  c.Cache.Redis.DialTimeout,
		ReadTimeout:  c.Cache.Redis.ReadTimeout,
		WriteTimeout: c.Cache.Redis.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, c.Cache.Redis.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warnw("redis unreachable, running without answer cache",
			"addr", c.Cache.Redis.Addr(), "error", err)
		_ = client.Close()
		return nil
	}

	logger.Infow("answer cache enabled", "addr", c.Cache.Redis.Addr(), "ttl", c.Cache.TTL)
	return biz.NewRedisAnswerCache(client, c.Cache.TTL, c.Cache.KeyPrefix)
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.prompts.Watch(ctx); err != nil {
		return err
	}

	defer func() {
		if err := s.store.Close(context.Background()); err != nil {
			logger.Warnw("vector store close failed", "error", err)
		}
		if err := s.analysisDB.Close(); err != nil {
			logger.Warnw("analysis db close failed", "error", err)
		}
	}()

	return s.httpServer.Start(ctx, shutdownTimeout)
}
