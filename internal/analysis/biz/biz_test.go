package biz_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/analysis/biz"
	"github.com/tradementor/tradementor/internal/analysis/store"
	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/pkg/llm"
	dbopts "github.com/tradementor/tradementor/pkg/options/db"
)

const analystJSON = `{
  "trade_analysis": "The trade was a 5-tick CALL on Volatility 100. Momentum at entry supported the position and the exit landed above the entry spot.",
  "key_factors": ["entry timing", "short duration", "momentum alignment"],
  "win_loss_assessment": "Win, driven by entry timing."
}`

const tutorJSON = `{
  "explanation": "This trade shows how a short CALL contract profits when price closes above the entry spot. The momentum reading at entry was the deciding factor.",
  "learning_points": ["Momentum confirms direction", "Short durations amplify timing", "Exits matter as much as entries"]
}`

// fakeChat answers the analyst and tutor roles from canned responses,
// keyed on the system prompt.
type fakeChat struct {
	analystResp string
	tutorResp   string
	err         error

	analystPrompt string
	tutorPrompt   string
}

var _ llm.ChatProvider = (*fakeChat)(nil)

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeChat) Generate(ctx context.Context, prompt, systemPrompt string) (*llm.GenerateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(systemPrompt, "trading analyst") {
		f.analystPrompt = prompt
		return &llm.GenerateResponse{Content: f.analystResp}, nil
	}
	f.tutorPrompt = prompt
	return &llm.GenerateResponse{Content: f.tutorResp}, nil
}

func (f *fakeChat) GenerateStream(ctx context.Context, prompt, systemPrompt string, emit func(token string) error) error {
	return errors.New("not used")
}

func sampleTransaction() *model.Transaction {
	return &model.Transaction{
		UserID:       "CR100",
		ContractID:   "c-1",
		BuyPrice:     10,
		Payout:       19.5,
		Profit:       9.5,
		Currency:     "USD",
		ContractType: "CALL",
		Shortcode:    "CALL_R_100_19.5_1700000000_5T",
		EntryTick:    "1234.56",
		ExitTick:     "1236.78",
	}
}

func TestRunAnalystParsesFencedOutput(t *testing.T) {
	chat := &fakeChat{analystResp: "```json\n" + analystJSON + "\n```"}

	out, err := biz.RunAnalyst(context.Background(), chat, sampleTransaction())
	require.NoError(t, err)

	assert.Contains(t, out.TradeAnalysis, "5-tick CALL")
	assert.Equal(t, []string{"entry timing", "short duration", "momentum alignment"}, out.KeyFactors)
	assert.Contains(t, chat.analystPrompt, `"contract_id"`)
	assert.Contains(t, chat.analystPrompt, "c-1")
}

func TestRunAnalystRejectsGarbage(t *testing.T) {
	chat := &fakeChat{analystResp: "I cannot produce JSON for this trade."}

	_, err := biz.RunAnalyst(context.Background(), chat, sampleTransaction())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyst agent")
}

func TestRunTutorBuildsPromptFromAnalysis(t *testing.T) {
	chat := &fakeChat{tutorResp: tutorJSON}
	analyst := &biz.AnalystOutput{
		TradeAnalysis:     "Momentum carried the trade.",
		KeyFactors:        []string{"entry timing", "momentum"},
		WinLossAssessment: "Win.",
	}

	out, err := biz.RunTutor(context.Background(), chat, analyst, sampleTransaction())
	require.NoError(t, err)

	assert.Len(t, out.LearningPoints, 3)
	assert.Contains(t, chat.tutorPrompt, "Momentum carried the trade.")
	assert.Contains(t, chat.tutorPrompt, "entry timing, momentum")
	assert.Contains(t, chat.tutorPrompt, "1234.56 -> 1236.78")
}

func TestRunTutorDefaultsMissingTicks(t *testing.T) {
	chat := &fakeChat{tutorResp: tutorJSON}
	tx := sampleTransaction()
	tx.EntryTick = ""
	tx.ExitTick = ""

	_, err := biz.RunTutor(context.Background(), chat, &biz.AnalystOutput{}, tx)
	require.NoError(t, err)
	assert.Contains(t, chat.tutorPrompt, "N/A -> N/A")
}

func newTestService(t *testing.T, chat llm.ChatProvider) (biz.Service, store.Factory, string) {
	t.Helper()
	factory, err := store.Open(&dbopts.Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	dir := t.TempDir()
	return biz.NewService(factory, chat, dir), factory, dir
}

func TestAnalyzePersistsResultAndExplanation(t *testing.T) {
	chat := &fakeChat{analystResp: analystJSON, tutorResp: tutorJSON}
	service, factory, dir := newTestService(t, chat)
	ctx := context.Background()

	_, err := factory.Transactions().Upsert(ctx, sampleTransaction())
	require.NoError(t, err)

	result, err := service.Analyze(ctx, "CR100", "c-1")
	require.NoError(t, err)

	assert.Contains(t, result.TradeAnalysis, "5-tick CALL")
	assert.Equal(t, "Win, driven by entry timing.", result.WinLossAssessment)
	assert.Len(t, result.LearningPoints, 3)
	assert.NotEmpty(t, result.ExplanationFile)

	content, err := os.ReadFile(filepath.Join(dir, result.ExplanationFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Trade Explanation")
	assert.Contains(t, string(content), "1. Momentum confirms direction")

	latest, err := service.LatestResult(ctx, "CR100", "c-1")
	require.NoError(t, err)
	assert.Equal(t, result.TradeAnalysis, latest.TradeAnalysis)
}

func TestAnalyzeUnknownContract(t *testing.T) {
	service, _, _ := newTestService(t, &fakeChat{})

	_, err := service.Analyze(context.Background(), "CR100", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAnalyzeAgentFailure(t *testing.T) {
	chat := &fakeChat{err: errors.New("model unavailable")}
	service, factory, _ := newTestService(t, chat)
	ctx := context.Background()

	_, err := factory.Transactions().Upsert(ctx, sampleTransaction())
	require.NoError(t, err)

	_, err = service.Analyze(ctx, "CR100", "c-1")
	require.Error(t, err)

	_, err = service.LatestResult(ctx, "CR100", "c-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSyncTransactionsReturnsIDs(t *testing.T) {
	service, _, _ := newTestService(t, &fakeChat{})
	ctx := context.Background()

	a := sampleTransaction()
	b := sampleTransaction()
	b.ContractID = "c-2"

	ids, err := service.SyncTransactions(ctx, []*model.Transaction{a, b})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	rows, err := service.ListTransactions(ctx, "CR100", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
