package exchange

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaperClient simulates a venue by filling every order immediately at the
// requested price. It never touches a real exchange.
type PaperClient struct {
	feeRate       decimal.Decimal
	enableTrading bool
	log           zerolog.Logger
}

// NewPaperClient creates a paper-trading client. feeRate is applied to the
// order notional (quantity * price) to simulate venue fees.
func NewPaperClient(feeRate decimal.Decimal, enableTrading bool, log zerolog.Logger) *PaperClient {
	return &PaperClient{
		feeRate:       feeRate,
		enableTrading: enableTrading,
		log:           log.With().Str("client", "paper_exchange").Logger(),
	}
}

// PlaceOrder fills the order at the requested price. Orders are refused
// while the trading switch is off, matching live-venue client behavior.
func (c *PaperClient) PlaceOrder(ctx context.Context, req OrderRequest) (*Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !c.enableTrading {
		c.log.Warn().
			Str("asset_id", req.AssetID).
			Str("type", string(req.Type)).
			Msg("Order not placed, trading is disabled")
		return &Fill{
			AssetID:  req.AssetID,
			Quantity: decimal.Zero,
			Price:    req.Price,
			Fee:      decimal.Zero,
			Status:   StatusDisabled,
		}, nil
	}

	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("order quantity must be positive, got %s", req.Quantity)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("order price must not be negative, got %s", req.Price)
	}

	fee := req.Quantity.Mul(req.Price).Mul(c.feeRate)

	fill := &Fill{
		OrderID:  uuid.NewString(),
		AssetID:  req.AssetID,
		Quantity: req.Quantity,
		Price:    req.Price,
		Fee:      fee,
		Status:   StatusFilled,
	}

	c.log.Info().
		Str("order_id", fill.OrderID).
		Str("asset_id", req.AssetID).
		Str("type", string(req.Type)).
		Str("quantity", req.Quantity.String()).
		Str("price", req.Price.String()).
		Str("fee", fee.String()).
		Msg("Paper order filled")

	return fill, nil
}
