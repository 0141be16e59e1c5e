package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/internal/analysis/biz"
	"github.com/tradementor/tradementor/internal/analysis/handler"
	"github.com/tradementor/tradementor/internal/analysis/router"
	"github.com/tradementor/tradementor/internal/analysis/store"
	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/pkg/jsonutil"
)

type fakeService struct {
	synced     []*model.Transaction
	listUser   string
	listOpts   *store.ListOptions
	listRows   []*model.Transaction
	analyzeErr error
	result     *model.AnalysisResult
	latestErr  error
}

var _ biz.Service = (*fakeService)(nil)

func (f *fakeService) SyncTransactions(ctx context.Context, txs []*model.Transaction) ([]uint64, error) {
	f.synced = txs
	ids := make([]uint64, len(txs))
	for i := range txs {
		ids[i] = uint64(i + 1)
	}
	return ids, nil
}

func (f *fakeService) ListTransactions(ctx context.Context, userID string, opts *store.ListOptions) ([]*model.Transaction, error) {
	f.listUser = userID
	f.listOpts = opts
	return f.listRows, nil
}

func (f *fakeService) Analyze(ctx context.Context, userID, contractID string) (*model.AnalysisResult, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.result, nil
}

func (f *fakeService) LatestResult(ctx context.Context, userID, contractID string) (*model.AnalysisResult, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.result, nil
}

func newTestRouter(service biz.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	router.Register(engine, handler.NewAnalysisHandler(service))
	return engine
}

func TestSyncTransactionsSingleObject(t *testing.T) {
	service := &fakeService{}
	engine := newTestRouter(service)

	body := `{"loginid": "CR100", "contract_id": "c-1", "buy_price": 10, "profit": 9.5, "currency": "USD", "contract_type": "CALL"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp handler.SyncResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, []uint64{1}, resp.IDs)

	require.Len(t, service.synced, 1)
	assert.Equal(t, "CR100", service.synced[0].UserID)
	assert.Equal(t, "c-1", service.synced[0].ContractID)
}

func TestSyncTransactionsArray(t *testing.T) {
	service := &fakeService{}
	engine := newTestRouter(service)

	body := `[
		{"user_id": "CR100", "contract_id": "c-1", "contract_type": "CALL"},
		{"user_id": "CR100", "contract_id": "c-2", "contract_type": "PUT"}
	]`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, service.synced, 2)
}

func TestSyncTransactionsMissingUser(t *testing.T) {
	engine := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis/transactions",
		strings.NewReader(`{"contract_id": "c-1"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "loginid or user_id required")
}

func TestListTransactionsQueryParams(t *testing.T) {
	service := &fakeService{listRows: []*model.Transaction{{ID: 7, UserID: "CR100", ContractID: "c-1"}}}
	engine := newTestRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/analysis/transactions?loginid=CR100&run_id=run-2&limit=5&since=3", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CR100", service.listUser)
	require.NotNil(t, service.listOpts)
	assert.Equal(t, "run-2", service.listOpts.RunID)
	assert.Equal(t, 5, service.listOpts.Limit)
	assert.Equal(t, uint64(3), service.listOpts.SinceID)
}

func TestListTransactionsInvalidLimit(t *testing.T) {
	engine := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/analysis/transactions?user_id=CR100&limit=zero", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeReturnsResult(t *testing.T) {
	service := &fakeService{result: &model.AnalysisResult{
		TransactionID:     1,
		TradeAnalysis:     "momentum carried the trade",
		WinLossAssessment: "win",
	}}
	engine := newTestRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis/analyze/c-1?loginid=CR100", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "momentum carried the trade")
}

func TestAnalyzeUnknownContract(t *testing.T) {
	engine := newTestRouter(&fakeService{analyzeErr: store.ErrNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis/analyze/missing?loginid=CR100", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "transaction not found")
}

func TestAnalyzeFailure(t *testing.T) {
	engine := newTestRouter(&fakeService{analyzeErr: errors.New("model unavailable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analysis/analyze/c-1?loginid=CR100", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLatestResultNotFound(t *testing.T) {
	engine := newTestRouter(&fakeService{latestErr: store.ErrNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/analysis/results/c-1?user_id=CR100", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no analysis for contract")
}

func TestLatestResultMissingUser(t *testing.T) {
	engine := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/analysis/results/c-1", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
