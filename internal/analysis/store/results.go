package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tradementor/tradementor/internal/model"
)

// ResultStore persists agent analysis results.
type ResultStore interface {
	// Create inserts a result linked to a transaction.
	Create(ctx context.Context, result *model.AnalysisResult) error

	// LatestForTransaction returns the most recent result for the
	// transaction; ErrNotFound when none exists.
	LatestForTransaction(ctx context.Context, transactionID uint64) (*model.AnalysisResult, error)
}

type results struct {
	db *gorm.DB
}

var _ ResultStore = (*results)(nil)

func newResults(db *gorm.DB) *results {
	return &results{db}
}

func (s *results) Create(ctx context.Context, result *model.AnalysisResult) error {
	return s.db.WithContext(ctx).Create(result).Error
}

func (s *results) LatestForTransaction(ctx context.Context, transactionID uint64) (*model.AnalysisResult, error) {
	var row model.AnalysisResult
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}
