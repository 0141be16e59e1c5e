package biz_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/knowledge/biz"
	"github.com/tradementor/tradementor/internal/knowledge/prompt"
	"github.com/tradementor/tradementor/internal/knowledge/store"
	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/pkg/llm"
)

type fakeRetriever struct {
	results []*store.SearchResult
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string) ([]*store.SearchResult, error) {
	return f.results, f.err
}

type fakeChat struct {
	response   string
	err        error
	tokens     []string
	lastSystem string
	lastPrompt string
}

func (f *fakeChat) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return f.response, f.err
}

func (f *fakeChat) Generate(_ context.Context, userPrompt, systemPrompt string) (*llm.GenerateResponse, error) {
	f.lastPrompt = userPrompt
	f.lastSystem = systemPrompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResponse{
		Content:    f.response,
		TokenUsage: &llm.TokenUsage{TotalTokens: 42},
	}, nil
}

func (f *fakeChat) GenerateStream(_ context.Context, userPrompt, systemPrompt string, emit func(string) error) error {
	f.lastPrompt = userPrompt
	f.lastSystem = systemPrompt
	if f.err != nil {
		return f.err
	}
	for _, tok := range f.tokens {
		if err := emit(tok); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeChat) Name() string { return "fake" }

func newTestService(t *testing.T, retriever biz.Retriever, chat llm.ChatProvider, indexLoaded bool) biz.Service {
	t.Helper()
	mgr, err := prompt.NewManager("")
	require.NoError(t, err)
	return biz.NewService(&biz.ServiceConfig{
		Retriever:    retriever,
		Chat:         chat,
		Prompts:      mgr,
		Store:        store.NewLocalStore(t.TempDir(), 4),
		AnswerSchema: "extended",
		IndexLoaded:  indexLoaded,
	})
}

func goodResults() []*store.SearchResult {
	return []*store.SearchResult{
		result("https://example.com/rsi", "rsi.html", "RSI measures momentum.", "Indicators"),
	}
}

func TestServiceQueryNoIndexReturnsDefault(t *testing.T) {
	svc := newTestService(t, &fakeRetriever{}, &fakeChat{}, false)

	answer, err := svc.Query(context.Background(), &model.QueryRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, model.InsufficientContext, answer.Answer)
	assert.Equal(t, model.DifficultyUnknown, answer.Difficulty)
	assert.Equal(t, model.ConfidenceLow, answer.Confidence)
	assert.Empty(t, answer.Sources)
}

func TestServiceQueryEmptyRetrievalReturnsDefault(t *testing.T) {
	chat := &fakeChat{response: "should not be called"}
	svc := newTestService(t, &fakeRetriever{}, chat, true)

	answer, err := svc.Query(context.Background(), &model.QueryRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, model.InsufficientContext, answer.Answer)
	assert.Empty(t, chat.lastPrompt, "LLM must not be consulted")
}

func TestServiceQueryParsesAnswer(t *testing.T) {
	chat := &fakeChat{
		response: "```json\n" +
			`{"difficulty":"beginner","answer":"RSI tracks momentum.","confidence":"high","sources":["https://example.com/rsi"]}` +
			"\n```",
	}
	svc := newTestService(t, &fakeRetriever{results: goodResults()}, chat, true)

	answer, err := svc.Query(context.Background(), &model.QueryRequest{
		Question:      "what is RSI?",
		TradeAnalysis: "CALL on V75, won",
	})
	require.NoError(t, err)
	assert.Equal(t, "RSI tracks momentum.", answer.Answer)
	assert.Equal(t, []string{"https://example.com/rsi"}, answer.Sources)

	assert.Contains(t, chat.lastPrompt, "TRADE_ANALYSIS:\nCALL on V75, won")
	assert.Contains(t, chat.lastPrompt, "QUESTION:\nwhat is RSI?")
	assert.Contains(t, chat.lastPrompt, "[https://example.com/rsi]")

	assert.Contains(t, chat.lastSystem, "## Rules")
	assert.NotContains(t, chat.lastSystem, "{format_instructions}",
		"placeholder must be substituted before the call")
	assert.Contains(t, chat.lastSystem, "lesson_title")
}

func TestServiceQueryMalformedOutputFailsLoudly(t *testing.T) {
	chat := &fakeChat{response: "sorry, I cannot answer in JSON"}
	svc := newTestService(t, &fakeRetriever{results: goodResults()}, chat, true)

	_, err := svc.Query(context.Background(), &model.QueryRequest{Question: "q"})
	assert.Error(t, err)
}

func TestServiceQueryRetrieverError(t *testing.T) {
	svc := newTestService(t, &fakeRetriever{err: errors.New("embed failed")}, &fakeChat{}, true)

	_, err := svc.Query(context.Background(), &model.QueryRequest{Question: "q"})
	assert.Error(t, err)
}

func TestServiceQueryMinimalSchemaTrimsLessonFields(t *testing.T) {
	chat := &fakeChat{
		response: `{"difficulty":"beginner","answer":"x","confidence":"high","sources":[],` +
			`"lesson_title":"T","key_takeaway":"K","next_topics":["a"]}`,
	}
	mgr, err := prompt.NewManager("")
	require.NoError(t, err)
	svc := biz.NewService(&biz.ServiceConfig{
		Retriever:    &fakeRetriever{results: goodResults()},
		Chat:         chat,
		Prompts:      mgr,
		Store:        store.NewLocalStore(t.TempDir(), 4),
		AnswerSchema: "minimal",
		IndexLoaded:  true,
	})

	answer, err := svc.Query(context.Background(), &model.QueryRequest{Question: "q"})
	require.NoError(t, err)
	assert.Empty(t, answer.LessonTitle)
	assert.Empty(t, answer.KeyTakeaway)
	assert.Empty(t, answer.NextTopics)
	assert.Equal(t, "x", answer.Answer)
}

func TestServiceQueryStreamForwardsTokens(t *testing.T) {
	chat := &fakeChat{tokens: []string{`{"difficulty"`, `:"beginner"`, `}`}}
	svc := newTestService(t, &fakeRetriever{results: goodResults()}, chat, true)

	var got []string
	err := svc.QueryStream(context.Background(), &model.QueryRequest{Question: "q"}, func(tok string) error {
		got = append(got, tok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, chat.tokens, got)
}

func TestServiceQueryStreamNoIndexEmitsDefaultJSON(t *testing.T) {
	svc := newTestService(t, &fakeRetriever{}, &fakeChat{}, false)

	var got strings.Builder
	err := svc.QueryStream(context.Background(), &model.QueryRequest{Question: "q"}, func(tok string) error {
		got.WriteString(tok)
		return nil
	})
	require.NoError(t, err)

	answer, err := biz.ParseStructuredAnswer(got.String())
	require.NoError(t, err)
	assert.Equal(t, model.InsufficientContext, answer.Answer)
}

func TestServiceQueryPromptOverridesReachComposer(t *testing.T) {
	chat := &fakeChat{
		response: `{"difficulty":"beginner","answer":"x","confidence":"high","sources":[]}`,
	}
	svc := newTestService(t, &fakeRetriever{results: goodResults()}, chat, true)

	noExamples := false
	_, err := svc.Query(context.Background(), &model.QueryRequest{
		Question: "q",
		PromptOverrides: &model.PromptOverrides{
			Difficulty:      "beginner",
			IncludeExamples: &noExamples,
			ExtraRules:      []string{"Respond in Spanish."},
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, chat.lastSystem, "## Few-shot examples")
	assert.Contains(t, chat.lastSystem, "Respond in Spanish.")
	assert.Contains(t, chat.lastSystem, "| beginner |")
	assert.NotContains(t, chat.lastSystem, "| advanced |")
}

func TestServiceQueryPicksUpIndexBuiltAfterStartup(t *testing.T) {
	indexDir := t.TempDir()
	ctx := context.Background()

	chat := &fakeChat{
		response: `{"difficulty":"beginner","answer":"RSI tracks momentum.","confidence":"high","sources":[]}`,
	}
	mgr, err := prompt.NewManager("")
	require.NoError(t, err)
	svc := biz.NewService(&biz.ServiceConfig{
		Retriever:    &fakeRetriever{results: goodResults()},
		Chat:         chat,
		Prompts:      mgr,
		Store:        store.NewLocalStore(indexDir, 4),
		AnswerSchema: "extended",
		IndexLoaded:  false,
	})

	answer, err := svc.Query(ctx, &model.QueryRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, model.InsufficientContext, answer.Answer)

	builder := store.NewLocalStore(indexDir, 4)
	require.NoError(t, builder.Add(ctx, []*store.Chunk{{
		ID:        "c1",
		Filename:  "rsi.html",
		Content:   "RSI measures momentum.",
		Embedding: []float32{1, 0, 0, 0},
	}}))
	require.NoError(t, builder.Persist(ctx))

	answer, err = svc.Query(ctx, &model.QueryRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "RSI tracks momentum.", answer.Answer)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.IndexLoaded)
}

func TestServiceStats(t *testing.T) {
	svc := newTestService(t, &fakeRetriever{}, &fakeChat{}, true)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.IndexLoaded)
	assert.False(t, stats.CacheEnabled)
	assert.Equal(t, "extended", stats.AnswerSchema)
}
