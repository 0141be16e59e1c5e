package model

import (
	"time"
)

// Transaction stores one trade contract per user, upserted on
// (user_id, contract_id).
type Transaction struct {
	ID         uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     string `json:"user_id" gorm:"size:64;not null;index;uniqueIndex:uk_user_contract"`
	ContractID string `json:"contract_id" gorm:"size:64;not null;index;uniqueIndex:uk_user_contract"`
	RunID      string `json:"run_id,omitempty" gorm:"size:128;index"`

	BuyPrice     float64 `json:"buy_price" gorm:"not null"`
	Payout       float64 `json:"payout" gorm:"not null"`
	Profit       float64 `json:"profit" gorm:"not null"`
	Currency     string  `json:"currency" gorm:"size:16;not null"`
	ContractType string  `json:"contract_type" gorm:"size:32;not null"`
	Shortcode    string  `json:"shortcode" gorm:"size:256;not null"`
	DateStart    string  `json:"date_start" gorm:"size:64;not null"`
	DateExpiry   string  `json:"date_expiry" gorm:"size:64;not null"`
	EntryTick    string  `json:"entry_tick,omitempty" gorm:"size:64"`
	ExitTick     string  `json:"exit_tick,omitempty" gorm:"size:64"`

	StrategyIntent    map[string]any `json:"strategy_intent,omitempty" gorm:"serializer:json"`
	BehavioralSummary map[string]any `json:"behavioral_summary,omitempty" gorm:"serializer:json"`

	// Chart screenshot (base64 PNG) consumed by the analyst agent.
	ChartImageB64 string `json:"chart_image_b64,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AnalysisResults []AnalysisResult `json:"-" gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (t *Transaction) TableName() string {
	return "transactions"
}

// AnalysisResult stores the analyst and tutor outputs for a transaction.
type AnalysisResult struct {
	ID            uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	TransactionID uint64 `json:"transaction_id" gorm:"not null;index"`

	// Analyst output
	TradeAnalysis     string   `json:"trade_analysis,omitempty" gorm:"type:text"`
	KeyFactors        []string `json:"key_factors,omitempty" gorm:"serializer:json"`
	WinLossAssessment string   `json:"win_loss_assessment,omitempty" gorm:"type:text"`

	// Tutor output
	TradeExplanation string   `json:"trade_explanation,omitempty" gorm:"type:text"`
	LearningPoints   []string `json:"learning_points,omitempty" gorm:"serializer:json"`
	ExplanationFile  string   `json:"explanation_file,omitempty" gorm:"size:256"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (r *AnalysisResult) TableName() string {
	return "analysis_results"
}
