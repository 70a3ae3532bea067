package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePnL_LongProfit(t *testing.T) {
	pos := &Position{
		Side:              SideLong,
		Quantity:          decimal.NewFromInt(100),
		AverageEntryPrice: decimal.RequireFromString("0.65"),
		TotalCost:         decimal.RequireFromString("65.50"),
	}

	pnl, pnlPercent := pos.CalculatePnL(decimal.RequireFromString("0.72"))

	// 100 * 0.72 = 72.00, against 65.50 cost
	assert.True(t, pnl.Equal(decimal.RequireFromString("6.5")), "pnl = %s", pnl)
	assert.True(t, pnlPercent.GreaterThan(decimal.NewFromInt(9)))
	assert.True(t, pnlPercent.LessThan(decimal.NewFromInt(10)))

	require.True(t, pos.CurrentPrice.Valid)
	require.True(t, pos.CurrentValue.Valid)
	assert.True(t, pos.CurrentValue.Decimal.Equal(decimal.NewFromInt(72)))
	assert.True(t, pos.UnrealizedPnL.Decimal.Equal(pnl))
}

func TestCalculatePnL_LongLoss(t *testing.T) {
	pos := &Position{
		Side:              SideLong,
		Quantity:          decimal.NewFromInt(10),
		AverageEntryPrice: decimal.NewFromInt(5),
		TotalCost:         decimal.NewFromInt(50),
	}

	pnl, _ := pos.CalculatePnL(decimal.NewFromInt(4))

	assert.True(t, pnl.Equal(decimal.NewFromInt(-10)))
}

func TestCalculatePnL_ShortInverts(t *testing.T) {
	pos := &Position{
		Side:      SideShort,
		Quantity:  decimal.NewFromInt(10),
		TotalCost: decimal.NewFromInt(50),
	}

	// Price dropped, short profits
	pnl, _ := pos.CalculatePnL(decimal.NewFromInt(4))
	assert.True(t, pnl.Equal(decimal.NewFromInt(10)))

	// Price rose, short loses
	pnl, _ = pos.CalculatePnL(decimal.NewFromInt(6))
	assert.True(t, pnl.Equal(decimal.NewFromInt(-10)))
}

func TestCalculatePnL_ZeroCostBasis(t *testing.T) {
	pos := &Position{
		Side:     SideLong,
		Quantity: decimal.NewFromInt(10),
	}

	pnl, pnlPercent := pos.CalculatePnL(decimal.NewFromInt(2))

	assert.True(t, pnl.Equal(decimal.NewFromInt(20)))
	assert.True(t, pnlPercent.IsZero())
}

func TestParseMarketType(t *testing.T) {
	mt, err := ParseMarketType("prediction")
	require.NoError(t, err)
	assert.Equal(t, MarketPrediction, mt)

	_, err = ParseMarketType("bonds")
	assert.Error(t, err)
}

func TestParsePositionSide(t *testing.T) {
	side, err := ParsePositionSide("short")
	require.NoError(t, err)
	assert.Equal(t, SideShort, side)

	_, err = ParsePositionSide("")
	assert.Error(t, err)
}

func TestParseTransactionType(t *testing.T) {
	tt, err := ParseTransactionType("withdrawal")
	require.NoError(t, err)
	assert.Equal(t, TransactionWithdrawal, tt)

	_, err = ParseTransactionType("transfer")
	assert.Error(t, err)
}

func TestErrorKinds_UnwrapToSentinels(t *testing.T) {
	var err error = &NoOpenPositionError{PortfolioID: 1, AssetID: "token_yes"}
	assert.True(t, errors.Is(err, ErrNoOpenPosition))

	err = &AmbiguousPositionError{PortfolioID: 1, AssetID: "token_yes"}
	assert.True(t, errors.Is(err, ErrAmbiguousPosition))

	err = &InsufficientQuantityError{
		PortfolioID: 1,
		AssetID:     "token_yes",
		Requested:   decimal.NewFromInt(100),
		Available:   decimal.NewFromInt(50),
	}
	assert.True(t, errors.Is(err, ErrInsufficientQuantity))

	err = &InsufficientFundsError{
		PortfolioID: 1,
		Requested:   decimal.NewFromInt(100),
		Available:   decimal.NewFromInt(50),
	}
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
}

func TestStoreError_KeepsUnderlyingCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreError{Op: "record_trade", Err: cause}

	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "record_trade")
}

func TestNoOpenPositionError_MessageIncludesSide(t *testing.T) {
	withSide := &NoOpenPositionError{PortfolioID: 1, AssetID: "token_yes", Side: SideShort}
	assert.Contains(t, withSide.Error(), "short")

	withoutSide := &NoOpenPositionError{PortfolioID: 1, AssetID: "token_yes"}
	assert.NotContains(t, withoutSide.Error(), "short")
}
