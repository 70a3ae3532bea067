package exchange

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallord/costbook/internal/domain"
)

func TestPaperClient_FillsAtRequestedPrice(t *testing.T) {
	client := NewPaperClient(decimal.RequireFromString("0.01"), true, zerolog.Nop())

	fill, err := client.PlaceOrder(context.Background(), OrderRequest{
		AssetID:  "token_yes",
		Side:     domain.SideLong,
		Type:     domain.TransactionBuy,
		Quantity: decimal.NewFromInt(100),
		Price:    decimal.RequireFromString("0.65"),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFilled, fill.Status)
	assert.NotEmpty(t, fill.OrderID)
	assert.True(t, fill.Quantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, fill.Price.Equal(decimal.RequireFromString("0.65")))
	// 100 * 0.65 * 0.01
	assert.True(t, fill.Fee.Equal(decimal.RequireFromString("0.65")), "fee = %s", fill.Fee)
}

func TestPaperClient_UniqueOrderIDs(t *testing.T) {
	client := NewPaperClient(decimal.Zero, true, zerolog.Nop())

	req := OrderRequest{
		AssetID:  "token_yes",
		Side:     domain.SideLong,
		Type:     domain.TransactionBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(1),
	}

	first, err := client.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	second, err := client.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderID, second.OrderID)
}

func TestPaperClient_TradingDisabled(t *testing.T) {
	client := NewPaperClient(decimal.Zero, false, zerolog.Nop())

	fill, err := client.PlaceOrder(context.Background(), OrderRequest{
		AssetID:  "token_yes",
		Side:     domain.SideLong,
		Type:     domain.TransactionBuy,
		Quantity: decimal.NewFromInt(100),
		Price:    decimal.RequireFromString("0.65"),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDisabled, fill.Status)
	assert.Empty(t, fill.OrderID)
	assert.True(t, fill.Quantity.IsZero())
}

func TestPaperClient_RejectsInvalidOrders(t *testing.T) {
	client := NewPaperClient(decimal.Zero, true, zerolog.Nop())

	_, err := client.PlaceOrder(context.Background(), OrderRequest{
		AssetID:  "token_yes",
		Side:     domain.SideLong,
		Type:     domain.TransactionBuy,
		Quantity: decimal.Zero,
		Price:    decimal.NewFromInt(1),
	})
	assert.Error(t, err)

	_, err = client.PlaceOrder(context.Background(), OrderRequest{
		AssetID:  "token_yes",
		Side:     domain.SideLong,
		Type:     domain.TransactionBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(-1),
	})
	assert.Error(t, err)
}

func TestPaperClient_CancelledContext(t *testing.T) {
	client := NewPaperClient(decimal.Zero, true, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.PlaceOrder(ctx, OrderRequest{
		AssetID:  "token_yes",
		Side:     domain.SideLong,
		Type:     domain.TransactionBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
