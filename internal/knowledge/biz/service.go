// Package biz implements the knowledge query pipeline: job brokering,
// retrieval, prompt assembly and answer generation.
package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/internal/knowledge/metrics"
	"github.com/tradementor/tradementor/internal/knowledge/prompt"
	"github.com/tradementor/tradementor/internal/knowledge/store"
	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/pkg/jsonutil"
	"github.com/tradementor/tradementor/pkg/llm"
)

// Service answers knowledge questions against the ingested library.
type Service interface {
	// Query runs the sync pipeline and returns a parsed answer. A
	// malformed model response is an error, never a silent default.
	Query(ctx context.Context, req *model.QueryRequest) (*model.StructuredAnswer, error)

	// QueryStream runs the same retrieval and prompt, forwarding raw
	// tokens through emit as they are generated.
	QueryStream(ctx context.Context, req *model.QueryRequest, emit func(token string) error) error

	// Stats reports the index, cache and counter state.
	Stats(ctx context.Context) (*StatsSnapshot, error)
}

// StatsSnapshot is the /stats payload.
type StatsSnapshot struct {
	IndexLoaded  bool             `json:"index_loaded"`
	IndexChunks  int64            `json:"index_chunks"`
	CacheEnabled bool             `json:"cache_enabled"`
	AnswerSchema string           `json:"answer_schema"`
	Metrics      metrics.Snapshot `json:"metrics"`
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Retriever Retriever
	Chat      llm.ChatProvider
	Prompts   *prompt.Manager
	Store     store.VectorStore

	// Cache is optional; nil disables answer caching.
	Cache AnswerCache

	// AnswerSchema is "minimal" or "extended".
	AnswerSchema string

	// IndexLoaded records whether Store.Load succeeded at startup.
	// While false, queries retry the load so an index built by the
	// ingestion CLI is picked up without a restart.
	IndexLoaded bool
}

type service struct {
	retriever Retriever
	chat      llm.ChatProvider
	prompts   *prompt.Manager
	store     store.VectorStore
	cache     AnswerCache
	schema    string
	metrics   *metrics.Metrics

	indexLoaded atomic.Bool
	loadMu      sync.Mutex
}

var _ Service = (*service)(nil)

// NewService builds the query service.
func NewService(cfg *ServiceConfig) Service {
	s := &service{
		retriever: cfg.Retriever,
		chat:      cfg.Chat,
		prompts:   cfg.Prompts,
		store:     cfg.Store,
		cache:     cfg.Cache,
		schema:    cfg.AnswerSchema,
		metrics:   metrics.Default(),
	}
	s.indexLoaded.Store(cfg.IndexLoaded)
	return s
}

// ensureIndex reports whether an index is available, retrying the load
// while none has been seen yet. Only one caller loads at a time.
func (s *service) ensureIndex(ctx context.Context) bool {
	if s.indexLoaded.Load() {
		return true
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.indexLoaded.Load() {
		return true
	}

	if err := s.store.Load(ctx); err != nil {
		if !errors.Is(err, store.ErrNoIndex) {
			logger.Errorw("vector index load failed", "error", err)
		}
		return false
	}
	s.indexLoaded.Store(true)
	logger.Info("vector index loaded")
	return true
}

func (s *service) Query(ctx context.Context, req *model.QueryRequest) (*model.StructuredAnswer, error) {
	s.metrics.IncQueries()

	if !s.ensureIndex(ctx) {
		logger.Warnw("no vector index loaded, returning default answer")
		return model.DefaultAnswer(), nil
	}

	key := ""
	if s.cache != nil {
		key = CacheKey(req, s.schema)
		if answer, ok := s.cache.Get(ctx, key); ok {
			s.metrics.IncCacheHits()
			return answer, nil
		}
	}

	results, err := s.retriever.Retrieve(ctx, req.Question)
	if err != nil {
		s.metrics.IncQueryErrors()
		return nil, err
	}
	if len(results) == 0 {
		return model.DefaultAnswer(), nil
	}

	system, user := s.buildPrompts(req, results)

	resp, err := s.chat.Generate(ctx, user, system)
	if err != nil {
		s.metrics.IncQueryErrors()
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	tokens := 0
	if resp.TokenUsage != nil {
		tokens = resp.TokenUsage.TotalTokens
	}
	s.metrics.IncLLMCall(tokens)

	answer, err := ParseStructuredAnswer(resp.Content)
	if err != nil {
		s.metrics.IncQueryErrors()
		return nil, err
	}
	if s.schema == "minimal" {
		trimToMinimal(answer)
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, answer)
	}
	return answer, nil
}

func (s *service) QueryStream(ctx context.Context, req *model.QueryRequest, emit func(token string) error) error {
	s.metrics.IncQueries()

	if !s.ensureIndex(ctx) {
		return emitDefault(emit)
	}

	results, err := s.retriever.Retrieve(ctx, req.Question)
	if err != nil {
		s.metrics.IncQueryErrors()
		return err
	}
	if len(results) == 0 {
		return emitDefault(emit)
	}

	system, user := s.buildPrompts(req, results)

	s.metrics.IncLLMCall(0)
	if err := s.chat.GenerateStream(ctx, user, system, emit); err != nil {
		s.metrics.IncQueryErrors()
		return fmt.Errorf("stream answer: %w", err)
	}
	return nil
}

func (s *service) Stats(ctx context.Context) (*StatsSnapshot, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index chunks: %w", err)
	}
	return &StatsSnapshot{
		IndexLoaded:  s.indexLoaded.Load(),
		IndexChunks:  count,
		CacheEnabled: s.cache != nil,
		AnswerSchema: s.schema,
		Metrics:      s.metrics.Snapshot(),
	}, nil
}

func (s *service) buildPrompts(req *model.QueryRequest, results []*store.SearchResult) (system, user string) {
	composed := s.prompts.Snapshot().Compose(composeOptionsFrom(req.PromptOverrides))
	system = prompt.Render(composed, prompt.SchemaInstructions(s.schema))
	user = BuildUserPrompt(req.Question, req.TradeAnalysis, FormatContext(results))
	return system, user
}

func composeOptionsFrom(o *model.PromptOverrides) prompt.ComposeOptions {
	opts := prompt.DefaultComposeOptions()
	if o == nil {
		return opts
	}
	opts.Sections = o.Sections
	opts.Difficulty = o.Difficulty
	opts.IncludeExamples = o.WantExamples()
	opts.ExtraRules = o.ExtraRules
	opts.ExtraInstructions = o.ExtraInstructions
	return opts
}

// emitDefault streams the default answer as one JSON token.
func emitDefault(emit func(token string) error) error {
	data, err := jsonutil.Marshal(model.DefaultAnswer())
	if err != nil {
		return err
	}
	return emit(string(data))
}

// ParseStructuredAnswer parses the model output as a structured answer,
// tolerating a surrounding markdown code fence.
func ParseStructuredAnswer(raw string) (*model.StructuredAnswer, error) {
	text := stripJSONFence(strings.TrimSpace(raw))

	var answer model.StructuredAnswer
	if err := jsonutil.Unmarshal([]byte(text), &answer); err != nil {
		return nil, fmt.Errorf("parse structured answer: %w", err)
	}
	if answer.Answer == "" {
		return nil, fmt.Errorf("structured answer has no answer field")
	}
	return &answer, nil
}

func stripJSONFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func trimToMinimal(a *model.StructuredAnswer) {
	a.LessonTitle = ""
	a.KeyTakeaway = ""
	a.ReflectionQuestion = ""
	a.DeepDiveLinks = nil
	a.NextTopics = nil
}
