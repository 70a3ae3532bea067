package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmallord/costbook/internal/domain"
)

// TradeRequest describes one fill to record against a portfolio.
type TradeRequest struct {
	Type     domain.TransactionType `json:"type"` // buy or sell
	AssetID  string                 `json:"asset_id"`
	Quantity decimal.Decimal        `json:"quantity"`
	Price    decimal.Decimal        `json:"price"`
	Fee      decimal.Decimal        `json:"fee"`

	AssetName      string `json:"asset_name,omitempty"`
	MarketID       string `json:"market_id,omitempty"`
	MarketQuestion string `json:"market_question,omitempty"`

	// Side is optional. A buy without a side opens or grows a long
	// position; a sell without a side matches whichever single open
	// position exists for the asset.
	Side *domain.PositionSide `json:"side,omitempty"`

	ExternalID      string `json:"external_id,omitempty"`
	ExternalOrderID string `json:"external_order_id,omitempty"`
}

// Validate checks the request before any store access.
func (r TradeRequest) Validate() error {
	if r.Type != domain.TransactionBuy && r.Type != domain.TransactionSell {
		return fmt.Errorf("transaction type must be buy or sell, got %q", r.Type)
	}
	if r.AssetID == "" {
		return fmt.Errorf("asset id must not be empty")
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", r.Quantity)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("price must not be negative, got %s", r.Price)
	}
	if r.Fee.IsNegative() {
		return fmt.Errorf("fee must not be negative, got %s", r.Fee)
	}
	if r.Side != nil {
		if _, err := domain.ParsePositionSide(string(*r.Side)); err != nil {
			return err
		}
	}
	return nil
}

// EnsureParams identifies a portfolio for get-or-create.
type EnsureParams struct {
	Name          string            `json:"name"`
	MarketType    domain.MarketType `json:"market_type"`
	Exchange      string            `json:"exchange"`
	AccountID     string            `json:"account_id,omitempty"`
	WalletAddress string            `json:"wallet_address,omitempty"`
	Currency      string            `json:"currency,omitempty"`
}

// PositionView is the per-position slice of the summary. Valuation fields
// are null until the position has been marked against a price at least
// once.
type PositionView struct {
	AssetID       string              `json:"asset_id"`
	AssetName     string              `json:"asset_name"`
	Side          domain.PositionSide `json:"side"`
	Quantity      decimal.Decimal     `json:"quantity"`
	EntryPrice    decimal.Decimal     `json:"entry_price"`
	CurrentPrice  decimal.NullDecimal `json:"current_price"`
	CurrentValue  decimal.NullDecimal `json:"current_value"`
	UnrealizedPnL decimal.NullDecimal `json:"unrealized_pnl"`
	PnLPercent    decimal.NullDecimal `json:"pnl_percent"`
}

// Summary is the read-only aggregate view of a portfolio.
type Summary struct {
	PortfolioID       int64             `json:"portfolio_id"`
	Name              string            `json:"name"`
	Exchange          string            `json:"exchange"`
	MarketType        domain.MarketType `json:"market_type"`
	CashBalance       decimal.Decimal   `json:"cash_balance"`
	TotalValue        decimal.Decimal   `json:"total_value"`
	UnrealizedPnL     decimal.Decimal   `json:"unrealized_pnl"`
	RealizedPnL       decimal.Decimal   `json:"realized_pnl"`
	TotalPnL          decimal.Decimal   `json:"total_pnl"`
	OpenPositions     int               `json:"open_positions_count"`
	TotalTransactions int64             `json:"total_transactions"`
	Positions         []PositionView    `json:"positions"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
