// Package exchange defines the order-placement interface and a
// paper-trading implementation used when no real venue is connected.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jmallord/costbook/internal/domain"
)

// OrderRequest describes an order to place.
type OrderRequest struct {
	AssetID   string                 `json:"asset_id"`
	AssetName string                 `json:"asset_name,omitempty"`
	Side      domain.PositionSide    `json:"side"`
	Type      domain.TransactionType `json:"type"`
	Quantity  decimal.Decimal        `json:"quantity"`
	Price     decimal.Decimal        `json:"price"`
}

// Fill is an executed (or simulated) order fill. Callers record fills
// against a portfolio as trades.
type Fill struct {
	OrderID  string          `json:"order_id"`
	AssetID  string          `json:"asset_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Fee      decimal.Decimal `json:"fee"`
	Status   string          `json:"status"`
}

// Fill statuses.
const (
	StatusFilled   = "filled"
	StatusDisabled = "disabled"
)

// Client is the venue-facing interface.
type Client interface {
	// PlaceOrder submits an order. When trading is disabled the order is
	// not executed and the returned fill carries StatusDisabled.
	PlaceOrder(ctx context.Context, req OrderRequest) (*Fill, error)
}
