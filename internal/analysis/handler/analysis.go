// Package handler provides the HTTP handlers of the analysis service.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/tradementor/tradementor/internal/analysis/biz"
	"github.com/tradementor/tradementor/internal/analysis/store"
	"github.com/tradementor/tradementor/internal/model"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TransactionInput is one transaction payload. loginid and user_id are
// aliases; either satisfies the user requirement.
type TransactionInput struct {
	LoginID    string `json:"loginid"`
	UserID     string `json:"user_id"`
	ContractID string `json:"contract_id"`
	RunID      string `json:"run_id"`

	BuyPrice     float64 `json:"buy_price"`
	Payout       float64 `json:"payout"`
	Profit       float64 `json:"profit"`
	Currency     string  `json:"currency"`
	ContractType string  `json:"contract_type"`
	Shortcode    string  `json:"shortcode"`
	DateStart    string  `json:"date_start"`
	DateExpiry   string  `json:"date_expiry"`
	EntryTick    string  `json:"entry_tick"`
	ExitTick     string  `json:"exit_tick"`

	StrategyIntent    map[string]any `json:"strategy_intent"`
	BehavioralSummary map[string]any `json:"behavioral_summary"`
	ChartImageB64     string         `json:"chart_image_b64"`
}

func (in *TransactionInput) userID() string {
	if in.LoginID != "" {
		return in.LoginID
	}
	return in.UserID
}

func (in *TransactionInput) toModel() *model.Transaction {
	return &model.Transaction{
		UserID:            in.userID(),
		ContractID:        in.ContractID,
		RunID:             in.RunID,
		BuyPrice:          in.BuyPrice,
		Payout:            in.Payout,
		Profit:            in.Profit,
		Currency:          in.Currency,
		ContractType:      in.ContractType,
		Shortcode:         in.Shortcode,
		DateStart:         in.DateStart,
		DateExpiry:        in.DateExpiry,
		EntryTick:         in.EntryTick,
		ExitTick:          in.ExitTick,
		StrategyIntent:    in.StrategyIntent,
		BehavioralSummary: in.BehavioralSummary,
		ChartImageB64:     in.ChartImageB64,
	}
}

// SyncResponse acknowledges a transaction sync.
type SyncResponse struct {
	Count int      `json:"count"`
	IDs   []uint64 `json:"ids"`
}

// AnalysisHandler handles analysis HTTP requests.
type AnalysisHandler struct {
	service biz.Service
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(service biz.Service) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// SyncTransactions upserts one or many transactions.
func (h *AnalysisHandler) SyncTransactions(c *gin.Context) {
	var body model.OneOrMany[TransactionInput]
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "empty transaction payload"})
		return
	}

	txs := make([]*model.Transaction, 0, len(body))
	for i := range body {
		in := &body[i]
		if in.userID() == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "loginid or user_id required"})
			return
		}
		if in.ContractID == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "contract_id required"})
			return
		}
		txs = append(txs, in.toModel())
	}

	ids, err := h.service.SyncTransactions(c.Request.Context(), txs)
	if err != nil {
		logger.Errorw("transaction sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, SyncResponse{Count: len(ids), IDs: ids})
}

// ListTransactions lists a user's transactions.
func (h *AnalysisHandler) ListTransactions(c *gin.Context) {
	userID := c.Query("loginid")
	if userID == "" {
		userID = c.Query("user_id")
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "loginid or user_id required"})
		return
	}

	opts := &store.ListOptions{RunID: c.Query("run_id")}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "invalid limit"})
			return
		}
		opts.Limit = limit
	}
	if v := c.Query("since"); v != "" {
		since, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "invalid since"})
			return
		}
		opts.SinceID = since
	}

	rows, err := h.service.ListTransactions(c.Request.Context(), userID, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Analyze runs the agent pipeline over a stored transaction.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	userID, contractID, ok := h.userAndContract(c)
	if !ok {
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), userID, contractID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Message: "transaction not found"})
			return
		}
		logger.Errorw("trade analysis failed", "contract_id", contractID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// LatestResult returns the most recent analysis for a contract.
func (h *AnalysisHandler) LatestResult(c *gin.Context) {
	userID, contractID, ok := h.userAndContract(c)
	if !ok {
		return
	}

	result, err := h.service.LatestResult(c.Request.Context(), userID, contractID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Message: "no analysis for contract"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) userAndContract(c *gin.Context) (userID, contractID string, ok bool) {
	userID = c.Query("loginid")
	if userID == "" {
		userID = c.Query("user_id")
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "loginid or user_id required"})
		return "", "", false
	}
	contractID = c.Param("contract_id")
	return userID, contractID, true
}
