// Package biz implements the trade-analysis pipeline: transaction
// sync, analyst and tutor agents, result persistence.
package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/internal/analysis/store"
	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/pkg/llm"
)

// Service is the trade-analysis business layer.
type Service interface {
	// SyncTransactions upserts the transactions and returns their row IDs.
	SyncTransactions(ctx context.Context, txs []*model.Transaction) ([]uint64, error)

	// ListTransactions lists a user's transactions, newest first.
	ListTransactions(ctx context.Context, userID string, opts *store.ListOptions) ([]*model.Transaction, error)

	// Analyze runs the analyst and tutor agents over a stored
	// transaction and persists the combined result.
	Analyze(ctx context.Context, userID, contractID string) (*model.AnalysisResult, error)

	// LatestResult returns the most recent analysis for a contract.
	LatestResult(ctx context.Context, userID, contractID string) (*model.AnalysisResult, error)
}

type service struct {
	factory         store.Factory
	chat            llm.ChatProvider
	explanationsDir string
}

var _ Service = (*service)(nil)

// NewService builds the analysis service. explanationsDir receives the
// rendered explanation files; empty disables writing them.
func NewService(factory store.Factory, chat llm.ChatProvider, explanationsDir string) Service {
	return &service{
		factory:         factory,
		chat:            chat,
		explanationsDir: explanationsDir,
	}
}

func (s *service) SyncTransactions(ctx context.Context, txs []*model.Transaction) ([]uint64, error) {
	ids := make([]uint64, 0, len(txs))
	for _, tx := range txs {
		saved, err := s.factory.Transactions().Upsert(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("upsert transaction %s: %w", tx.ContractID, err)
		}
		ids = append(ids, saved.ID)
	}
	return ids, nil
}

func (s *service) ListTransactions(ctx context.Context, userID string, opts *store.ListOptions) ([]*model.Transaction, error) {
	return s.factory.Transactions().List(ctx, userID, opts)
}

func (s *service) Analyze(ctx context.Context, userID, contractID string) (*model.AnalysisResult, error) {
	tx, err := s.factory.Transactions().GetByContract(ctx, userID, contractID)
	if err != nil {
		return nil, err
	}

	analyst, err := RunAnalyst(ctx, s.chat, tx)
	if err != nil {
		return nil, err
	}
	tutor, err := RunTutor(ctx, s.chat, analyst, tx)
	if err != nil {
		return nil, err
	}

	explanationFile := s.writeExplanation(contractID, tutor)

	result := &model.AnalysisResult{
		TransactionID:     tx.ID,
		TradeAnalysis:     analyst.TradeAnalysis,
		KeyFactors:        analyst.KeyFactors,
		WinLossAssessment: analyst.WinLossAssessment,
		TradeExplanation:  tutor.Explanation,
		LearningPoints:    tutor.LearningPoints,
		ExplanationFile:   explanationFile,
	}
	if err := s.factory.Results().Create(ctx, result); err != nil {
		return nil, fmt.Errorf("persist analysis result: %w", err)
	}
	return result, nil
}

func (s *service) LatestResult(ctx context.Context, userID, contractID string) (*model.AnalysisResult, error) {
	tx, err := s.factory.Transactions().GetByContract(ctx, userID, contractID)
	if err != nil {
		return nil, err
	}
	return s.factory.Results().LatestForTransaction(ctx, tx.ID)
}

// writeExplanation renders the tutor output to a text file. Failures
// are logged; the analysis still succeeds without the file.
func (s *service) writeExplanation(contractID string, tutor *TutorOutput) string {
	if s.explanationsDir == "" {
		return ""
	}
	if err := os.MkdirAll(s.explanationsDir, 0o755); err != nil {
		logger.Warnw("create explanations dir failed", "dir", s.explanationsDir, "error", err)
		return ""
	}

	filename := fmt.Sprintf("%s_%s.txt", contractID, time.Now().UTC().Format("20060102_150405"))
	content := fmt.Sprintf("# Trade Explanation\n\n%s\n\n## Learning Points\n", tutor.Explanation)
	for i, pt := range tutor.LearningPoints {
		content += fmt.Sprintf("%d. %s\n", i+1, pt)
	}

	if err := os.WriteFile(filepath.Join(s.explanationsDir, filename), []byte(content), 0o644); err != nil {
		logger.Warnw("write explanation failed", "file", filename, "error", err)
		return ""
	}
	return filename
}
