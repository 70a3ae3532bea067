package portfolio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallord/costbook/internal/database"
	"github.com/jmallord/costbook/internal/domain"
)

func newTestRouter(t *testing.T) (*chi.Mux, *Service) {
	t.Helper()

	service := newTestService(t)
	handler := NewHandler(service, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.Routes(r)
	})
	return r, service
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleEnsurePortfolio(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"polymarket"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "main", resp["name"])
	assert.NotZero(t, resp["portfolio_id"])

	// Same name again returns the same portfolio
	w2 := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"polymarket"}`)
	assert.Equal(t, http.StatusOK, w2.Code)

	var resp2 map[string]interface{}
	require.NoError(t, json.NewDecoder(w2.Body).Decode(&resp2))
	assert.Equal(t, resp["portfolio_id"], resp2["portfolio_id"])
}

func TestHandleEnsurePortfolio_BadBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetSummary_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "GET", "/api/portfolio/nope/summary", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetSummary_StoreFailureHidesDetail(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "test_ledger",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()
	service := NewService(
		db.Conn(),
		NewPortfolioRepository(db.Conn(), log),
		NewPositionRepository(db.Conn(), log),
		NewTransactionRepository(db.Conn(), log),
		log,
	)
	handler := NewHandler(service, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.Routes(r)
	})

	require.NoError(t, db.Close())

	w := doJSON(t, r, "GET", "/api/portfolio/main/summary", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "store failure", resp["error"])
}

func TestHandleTradeAndSummaryFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"paper"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/deposits", `{"amount":"1000"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/trades",
		`{"type":"buy","asset_id":"token_yes","quantity":"100","price":"0.65","fee":"0.50"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var trade map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&trade))
	assert.Equal(t, "long", trade["side"])
	assert.Equal(t, true, trade["is_open"])

	w = doJSON(t, r, "POST", "/api/portfolio/main/prices", `{"token_yes":"0.72"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "GET", "/api/portfolio/main/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, 1, summary.OpenPositions)
	assert.True(t, summary.CashBalance.Equal(decimal.RequireFromString("934.50")))
	assert.True(t, summary.TotalValue.Equal(decimal.RequireFromString("1006.50")))
}

func TestHandleRecordTrade_SellWithoutPosition(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"paper"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/trades",
		`{"type":"sell","asset_id":"token_yes","quantity":"10","price":"0.50"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp["error"], "no open position")
}

func TestHandleRecordTrade_InsufficientQuantity(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"paper"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/trades",
		`{"type":"buy","asset_id":"token_yes","quantity":"10","price":"0.50"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/trades",
		`{"type":"sell","asset_id":"token_yes","quantity":"11","price":"0.50"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleRecordTrade_AmbiguousSell(t *testing.T) {
	r, service := newTestRouter(t)

	p := ensureTestPortfolio(t, service, "main")
	long := domain.SideLong
	short := domain.SideShort
	_, _, err := service.RecordTrade(p, TradeRequest{
		Type: domain.TransactionBuy, AssetID: "token_yes",
		Quantity: decimal.NewFromInt(10), Price: decimal.RequireFromString("0.40"), Side: &long,
	})
	require.NoError(t, err)
	_, _, err = service.RecordTrade(p, TradeRequest{
		Type: domain.TransactionBuy, AssetID: "token_yes",
		Quantity: decimal.NewFromInt(10), Price: decimal.RequireFromString("0.60"), Side: &short,
	})
	require.NoError(t, err)

	w := doJSON(t, r, "POST", "/api/portfolio/main/trades",
		`{"type":"sell","asset_id":"token_yes","quantity":"5","price":"0.50"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleWithdrawals(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"paper"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/deposits", `{"amount":"100"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/withdrawals", `{"amount":"40"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "60", resp["cash_balance"])

	w = doJSON(t, r, "POST", "/api/portfolio/main/withdrawals", `{"amount":"100"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleReset(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"paper"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/deposits", `{"amount":"100"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "GET", "/api/portfolio/main/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.True(t, summary.CashBalance.IsZero())
	assert.Equal(t, int64(0), summary.TotalTransactions)
}

func TestHandleListTransactions(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/portfolio/ensure",
		`{"name":"main","market_type":"prediction","exchange":"paper"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/portfolio/main/deposits", `{"amount":"100"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, "POST", "/api/portfolio/main/deposits", `{"amount":"200"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "GET", "/api/portfolio/main/transactions?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var views []map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&views))
	assert.Len(t, views, 1)

	w = doJSON(t, r, "GET", "/api/portfolio/main/transactions?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
