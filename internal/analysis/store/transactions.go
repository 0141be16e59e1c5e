package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tradementor/tradementor/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// defaultListLimit bounds unpaginated listings.
const defaultListLimit = 500

// ListOptions filter a transaction listing.
type ListOptions struct {
	// RunID restricts to one ingestion run when set.
	RunID string

	// Limit caps the number of rows (default 500).
	Limit int

	// SinceID returns only rows with id > SinceID.
	SinceID uint64
}

// TransactionStore persists trade transactions.
type TransactionStore interface {
	// Upsert inserts or updates by (user_id, contract_id). The JSON
	// context fields and the chart image only overwrite existing values
	// when provided.
	Upsert(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)

	// List returns a user's transactions, newest first.
	List(ctx context.Context, userID string, opts *ListOptions) ([]*model.Transaction, error)

	// GetByContract fetches one transaction; ErrNotFound when missing.
	GetByContract(ctx context.Context, userID, contractID string) (*model.Transaction, error)
}

type transactions struct {
	db *gorm.DB
}

var _ TransactionStore = (*transactions)(nil)

func newTransactions(db *gorm.DB) *transactions {
	return &transactions{db}
}

func (s *transactions) Upsert(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	var existing model.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND contract_id = ?", tx.UserID, tx.ContractID).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
			return nil, err
		}
		return tx, nil
	}

	if tx.RunID != "" {
		existing.RunID = tx.RunID
	}
	existing.BuyPrice = tx.BuyPrice
	existing.Payout = tx.Payout
	existing.Profit = tx.Profit
	existing.Currency = tx.Currency
	existing.ContractType = tx.ContractType
	existing.Shortcode = tx.Shortcode
	existing.DateStart = tx.DateStart
	existing.DateExpiry = tx.DateExpiry
	existing.EntryTick = tx.EntryTick
	existing.ExitTick = tx.ExitTick
	if tx.StrategyIntent != nil {
		existing.StrategyIntent = tx.StrategyIntent
	}
	if tx.BehavioralSummary != nil {
		existing.BehavioralSummary = tx.BehavioralSummary
	}
	if tx.ChartImageB64 != "" {
		existing.ChartImageB64 = tx.ChartImageB64
	}

	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *transactions) List(ctx context.Context, userID string, opts *ListOptions) ([]*model.Transaction, error) {
	if opts == nil {
		opts = &ListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if opts.RunID != "" {
		q = q.Where("run_id = ?", opts.RunID)
	}
	if opts.SinceID > 0 {
		q = q.Where("id > ?", opts.SinceID)
	}

	var rows []*model.Transaction
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *transactions) GetByContract(ctx context.Context, userID, contractID string) (*model.Transaction, error) {
	var tx model.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND contract_id = ?", userID, contractID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}
