package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jmallord/costbook/internal/domain"
)

// Handler exposes the portfolio service over HTTP. Handlers translate
// between JSON and the service; no ledger logic lives here.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// Routes registers the portfolio endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/portfolio/ensure", h.HandleEnsurePortfolio)
	r.Route("/portfolio/{name}", func(r chi.Router) {
		r.Get("/summary", h.HandleGetSummary)
		r.Get("/transactions", h.HandleListTransactions)
		r.Post("/trades", h.HandleRecordTrade)
		r.Post("/deposits", h.HandleAddFunds)
		r.Post("/withdrawals", h.HandleWithdrawFunds)
		r.Post("/prices", h.HandleUpdatePrices)
		r.Post("/reset", h.HandleReset)
	})
}

// HandleEnsurePortfolio gets or creates a portfolio by name.
func (h *Handler) HandleEnsurePortfolio(w http.ResponseWriter, r *http.Request) {
	var params EnsureParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.EnsurePortfolio(params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": p.ID,
		"name":         p.Name,
		"market_type":  p.MarketType,
		"exchange":     p.Exchange,
		"currency":     p.Currency,
		"created_at":   p.CreatedAt,
	})
}

// HandleGetSummary returns the portfolio summary.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPortfolio(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetPortfolioSummary(p)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleListTransactions returns the portfolio's transactions, newest
// first. Supports a ?limit= query parameter.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPortfolio(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	transactions, err := h.service.ListTransactions(p, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]map[string]interface{}, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, map[string]interface{}{
			"id":                t.ID,
			"type":              t.Type,
			"asset_id":          t.AssetID,
			"quantity":          t.Quantity,
			"price":             t.Price,
			"amount":            t.Amount,
			"fee":               t.Fee,
			"external_id":       t.ExternalID,
			"external_order_id": t.ExternalOrderID,
			"notes":             t.Notes,
			"created_at":        t.CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, views)
}

// HandleRecordTrade records one buy or sell fill.
func (h *Handler) HandleRecordTrade(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPortfolio(w, r)
	if !ok {
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pos, txn, err := h.service.RecordTrade(p, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"position_id":    pos.ID,
		"transaction_id": txn.ID,
		"asset_id":       pos.AssetID,
		"side":           pos.Side,
		"quantity":       pos.Quantity,
		"entry_price":    pos.AverageEntryPrice,
		"total_cost":     pos.TotalCost,
		"is_open":        pos.IsOpen,
		"cash_balance":   p.CashBalance,
	})
}

type fundsRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes,omitempty"`
}

// HandleAddFunds deposits cash into the portfolio.
func (h *Handler) HandleAddFunds(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPortfolio(w, r)
	if !ok {
		return
	}

	var req fundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.service.AddFunds(p, req.Amount, req.Notes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transaction_id": txn.ID,
		"cash_balance":   p.CashBalance,
	})
}

// HandleWithdrawFunds withdraws cash from the portfolio.
func (h *Handler) HandleWithdrawFunds(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPortfolio(w, r)
	if !ok {
		return
	}

	var req fundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.service.WithdrawFunds(p, req.Amount, req.Notes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transaction_id": txn.ID,
		"cash_balance":   p.CashBalance,
	})
}

// HandleUpdatePrices applies a price snapshot to the portfolio's open
// positions and recomputes totals.
func (h *Handler) HandleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPortfolio(w, r)
	if !ok {
		return
	}

	var prices map[string]decimal.Decimal
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdatePositionPrices(p, prices)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_value":    updated.TotalValue,
		"unrealized_pnl": updated.UnrealizedPnL,
		"updated_at":     updated.UpdatedAt,
	})
}

// HandleReset clears all positions and transactions of the portfolio and
// zeroes its balances.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPortfolio(w, r)
	if !ok {
		return
	}

	if err := h.service.ResetPortfolio(p); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "reset"})
}

// loadPortfolio resolves the {name} URL parameter into a portfolio, writing
// a 404 if it does not exist.
func (h *Handler) loadPortfolio(w http.ResponseWriter, r *http.Request) (*domain.Portfolio, bool) {
	name := chi.URLParam(r, "name")

	p, err := h.service.GetPortfolio(name)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if p == nil {
		h.writeError(w, http.StatusNotFound, "portfolio not found")
		return nil, false
	}

	return p, true
}

// writeServiceError maps domain error kinds to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoOpenPosition):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAmbiguousPosition):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientQuantity),
		errors.Is(err, domain.ErrInsufficientFunds):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStore):
		h.log.Error().Err(err).Msg("store failure")
		h.writeError(w, http.StatusInternalServerError, "store failure")
	default:
		h.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
