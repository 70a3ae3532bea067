package strategy

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jmallord/costbook/internal/clients/exchange"
	"github.com/jmallord/costbook/internal/domain"
)

// HoldStrategy is a do-nothing strategy. It analyzes nothing and emits no
// signals, serving as the default until a real strategy is wired in.
type HoldStrategy struct {
	client exchange.Client
	log    zerolog.Logger
}

// NewHoldStrategy creates the hold strategy.
func NewHoldStrategy(client exchange.Client, log zerolog.Logger) *HoldStrategy {
	return &HoldStrategy{
		client: client,
		log:    log.With().Str("strategy", "hold").Logger(),
	}
}

// Name returns the strategy name.
func (s *HoldStrategy) Name() string {
	return "hold"
}

// Analyze produces no signals.
func (s *HoldStrategy) Analyze(ctx context.Context) (*Signals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Signals{Action: "none"}, nil
}

// Execute forwards actionable signals to the exchange. The hold strategy
// never produces any, so this only runs when Execute is called directly.
func (s *HoldStrategy) Execute(ctx context.Context, signals *Signals) ([]*exchange.Fill, error) {
	if signals == nil || signals.Action == "none" || signals.Action == "" {
		return nil, nil
	}

	var fills []*exchange.Fill
	for _, opp := range signals.Opportunities {
		req, ok := orderFromOpportunity(opp)
		if !ok {
			s.log.Warn().Interface("opportunity", opp).Msg("Skipping malformed opportunity")
			continue
		}

		fill, err := s.client.PlaceOrder(ctx, req)
		if err != nil {
			return fills, err
		}
		fills = append(fills, fill)
	}

	return fills, nil
}

// orderFromOpportunity converts a signal opportunity into an order
// request. An opportunity needs asset_id, side, quantity and price.
func orderFromOpportunity(opp map[string]interface{}) (exchange.OrderRequest, bool) {
	assetID, ok := opp["asset_id"].(string)
	if !ok || assetID == "" {
		return exchange.OrderRequest{}, false
	}

	sideRaw, _ := opp["side"].(string)
	side, err := domain.ParsePositionSide(sideRaw)
	if err != nil {
		return exchange.OrderRequest{}, false
	}

	typeRaw, _ := opp["type"].(string)
	txnType, err := domain.ParseTransactionType(typeRaw)
	if err != nil {
		return exchange.OrderRequest{}, false
	}

	quantity, ok := decimalField(opp, "quantity")
	if !ok || !quantity.IsPositive() {
		return exchange.OrderRequest{}, false
	}
	price, ok := decimalField(opp, "price")
	if !ok || price.IsNegative() {
		return exchange.OrderRequest{}, false
	}

	return exchange.OrderRequest{
		AssetID:  assetID,
		Side:     side,
		Type:     txnType,
		Quantity: quantity,
		Price:    price,
	}, true
}

func decimalField(m map[string]interface{}, key string) (decimal.Decimal, bool) {
	switch v := m[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Zero, false
	}
}
