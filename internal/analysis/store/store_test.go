package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/analysis/store"
	"github.com/tradementor/tradementor/internal/model"
	dbopts "github.com/tradementor/tradementor/pkg/options/db"
)

func newTestFactory(t *testing.T) store.Factory {
	t.Helper()
	factory, err := store.Open(&dbopts.Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	return factory
}

func sampleTransaction(userID, contractID string) *model.Transaction {
	return &model.Transaction{
		UserID:       userID,
		ContractID:   contractID,
		RunID:        "run-1",
		BuyPrice:     10,
		Payout:       19.5,
		Profit:       9.5,
		Currency:     "USD",
		ContractType: "CALL",
		Shortcode:    "CALL_R_100_19.5_1700000000_5T",
		DateStart:    "2026-08-01T10:00:00Z",
		DateExpiry:   "2026-08-01T10:05:00Z",
		EntryTick:    "1234.56",
		ExitTick:     "1236.78",
		StrategyIntent: map[string]any{
			"strategy": "momentum",
		},
	}
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	factory := newTestFactory(t)
	ctx := context.Background()
	txs := factory.Transactions()

	created, err := txs.Upsert(ctx, sampleTransaction("CR100", "c-1"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	update := sampleTransaction("CR100", "c-1")
	update.Profit = -10
	update.ExitTick = "1230.00"
	updated, err := txs.Upsert(ctx, update)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, float64(-10), updated.Profit)
	assert.Equal(t, "1230.00", updated.ExitTick)

	rows, err := txs.List(ctx, "CR100", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUpsertKeepsOptionalFieldsWhenOmitted(t *testing.T) {
	factory := newTestFactory(t)
	ctx := context.Background()
	txs := factory.Transactions()

	first := sampleTransaction("CR100", "c-1")
	first.BehavioralSummary = map[string]any{"trade_number": float64(3)}
	first.ChartImageB64 = "aGVsbG8="
	_, err := txs.Upsert(ctx, first)
	require.NoError(t, err)

	update := sampleTransaction("CR100", "c-1")
	update.RunID = ""
	update.StrategyIntent = nil
	update.BehavioralSummary = nil
	update.ChartImageB64 = ""
	saved, err := txs.Upsert(ctx, update)
	require.NoError(t, err)

	assert.Equal(t, "run-1", saved.RunID)
	assert.Equal(t, map[string]any{"strategy": "momentum"}, saved.StrategyIntent)
	assert.Equal(t, map[string]any{"trade_number": float64(3)}, saved.BehavioralSummary)
	assert.Equal(t, "aGVsbG8=", saved.ChartImageB64)
}

func TestUpsertOverwritesOptionalFieldsWhenProvided(t *testing.T) {
	factory := newTestFactory(t)
	ctx := context.Background()
	txs := factory.Transactions()

	_, err := txs.Upsert(ctx, sampleTransaction("CR100", "c-1"))
	require.NoError(t, err)

	update := sampleTransaction("CR100", "c-1")
	update.RunID = "run-2"
	update.StrategyIntent = map[string]any{"strategy": "reversal"}
	update.ChartImageB64 = "bmV3"
	saved, err := txs.Upsert(ctx, update)
	require.NoError(t, err)

	assert.Equal(t, "run-2", saved.RunID)
	assert.Equal(t, map[string]any{"strategy": "reversal"}, saved.StrategyIntent)
	assert.Equal(t, "bmV3", saved.ChartImageB64)
}

func TestListFiltersAndOrder(t *testing.T) {
	factory := newTestFactory(t)
	ctx := context.Background()
	txs := factory.Transactions()

	for i := 1; i <= 5; i++ {
		tx := sampleTransaction("CR100", fmt.Sprintf("c-%d", i))
		if i > 3 {
			tx.RunID = "run-2"
		}
		_, err := txs.Upsert(ctx, tx)
		require.NoError(t, err)
	}
	_, err := txs.Upsert(ctx, sampleTransaction("CR200", "c-other"))
	require.NoError(t, err)

	rows, err := txs.List(ctx, "CR100", nil)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		assert.Greater(t, rows[i-1].ID, rows[i].ID, "rows must be newest first")
	}

	byRun, err := txs.List(ctx, "CR100", &store.ListOptions{RunID: "run-2"})
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	limited, err := txs.List(ctx, "CR100", &store.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	since, err := txs.List(ctx, "CR100", &store.ListOptions{SinceID: rows[len(rows)-1].ID})
	require.NoError(t, err)
	assert.Len(t, since, 4)
}

func TestGetByContract(t *testing.T) {
	factory := newTestFactory(t)
	ctx := context.Background()
	txs := factory.Transactions()

	_, err := txs.Upsert(ctx, sampleTransaction("CR100", "c-1"))
	require.NoError(t, err)

	got, err := txs.GetByContract(ctx, "CR100", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "CALL", got.ContractType)

	_, err = txs.GetByContract(ctx, "CR100", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = txs.GetByContract(ctx, "CR999", "c-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResultsLatestForTransaction(t *testing.T) {
	factory := newTestFactory(t)
	ctx := context.Background()

	tx, err := factory.Transactions().Upsert(ctx, sampleTransaction("CR100", "c-1"))
	require.NoError(t, err)

	_, err = factory.Results().LatestForTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := &model.AnalysisResult{
		TransactionID:     tx.ID,
		TradeAnalysis:     "first pass",
		KeyFactors:        []string{"entry timing"},
		WinLossAssessment: "win",
		TradeExplanation:  "explanation one",
		LearningPoints:    []string{"point one"},
	}
	require.NoError(t, factory.Results().Create(ctx, first))

	second := &model.AnalysisResult{
		TransactionID:     tx.ID,
		TradeAnalysis:     "second pass",
		KeyFactors:        []string{"volatility"},
		WinLossAssessment: "win",
		TradeExplanation:  "explanation two",
		LearningPoints:    []string{"point two"},
	}
	require.NoError(t, factory.Results().Create(ctx, second))

	latest, err := factory.Results().LatestForTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "second pass", latest.TradeAnalysis)
	assert.Equal(t, []string{"volatility"}, latest.KeyFactors)
}
