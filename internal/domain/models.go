// Package domain contains the pure domain model: portfolio, position and
// transaction entities, the closed enumerations they use, and the domain
// error kinds. It has no persistence or transport dependencies.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MarketType classifies the market a portfolio trades on.
type MarketType string

const (
	MarketPrediction MarketType = "prediction"
	MarketCrypto     MarketType = "crypto"
	MarketForex      MarketType = "forex"
	MarketStock      MarketType = "stock"
	MarketOther      MarketType = "other"
)

// ParseMarketType converts a stored string back into a MarketType.
func ParseMarketType(s string) (MarketType, error) {
	switch MarketType(s) {
	case MarketPrediction, MarketCrypto, MarketForex, MarketStock, MarketOther:
		return MarketType(s), nil
	}
	return "", fmt.Errorf("unknown market type %q", s)
}

// PositionSide is the directional exposure of a position.
// Long corresponds to YES / buy-side, short to NO / sell-side.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// ParsePositionSide converts a stored string back into a PositionSide.
func ParsePositionSide(s string) (PositionSide, error) {
	switch PositionSide(s) {
	case SideLong, SideShort:
		return PositionSide(s), nil
	}
	return "", fmt.Errorf("unknown position side %q", s)
}

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TransactionBuy        TransactionType = "buy"
	TransactionSell       TransactionType = "sell"
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionFee        TransactionType = "fee"
	TransactionSettlement TransactionType = "settlement"
)

// ParseTransactionType converts a stored string back into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionBuy, TransactionSell, TransactionDeposit,
		TransactionWithdrawal, TransactionFee, TransactionSettlement:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// CashAssetID is the sentinel asset identifier used on deposit and
// withdrawal transactions, which move cash rather than an asset.
const CashAssetID = "CASH"

// Portfolio is one logical account scoped to a market/exchange.
// Name is globally unique. TotalValue and UnrealizedPnL are derived
// values, valid only as of the last price-update pass.
type Portfolio struct {
	ID            int64
	Name          string
	MarketType    MarketType
	Exchange      string
	AccountID     string
	WalletAddress string

	CashBalance   decimal.Decimal
	TotalValue    decimal.Decimal
	UnrealizedPnL decimal.Decimal
	RealizedPnL   decimal.Decimal

	Currency  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position is one open or historically closed holding of an asset within a
// portfolio. While open it is keyed by (portfolio, asset, side); at most one
// open position exists per key.
type Position struct {
	ID          int64
	PortfolioID int64

	AssetID        string
	AssetName      string
	MarketID       string
	MarketQuestion string

	Side     PositionSide
	Quantity decimal.Decimal

	// AverageEntryPrice and TotalCost track the cost basis of the
	// currently held quantity only. TotalCost includes fees.
	AverageEntryPrice decimal.Decimal
	TotalCost         decimal.Decimal

	// Valuation fields stay unset until the first price update.
	CurrentPrice         decimal.NullDecimal
	CurrentValue         decimal.NullDecimal
	UnrealizedPnL        decimal.NullDecimal
	UnrealizedPnLPercent decimal.NullDecimal

	IsOpen      bool
	OpenedAt    time.Time
	ClosedAt    *time.Time
	LastUpdated time.Time

	// ExtraData is an opaque JSON blob for market-specific metadata.
	// The core never inspects it.
	ExtraData string
}

// CalculatePnL marks the position to the given price and returns the
// unrealized P&L and its percentage of cost basis. The position's valuation
// fields are updated in place.
//
// A zero cost basis yields a percentage of exactly zero rather than an
// error.
func (p *Position) CalculatePnL(currentPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	currentValue := currentPrice.Mul(p.Quantity)

	var pnl decimal.Decimal
	if p.Side == SideLong {
		pnl = currentValue.Sub(p.TotalCost)
	} else {
		pnl = p.TotalCost.Sub(currentValue)
	}

	pnlPercent := decimal.Zero
	if p.TotalCost.IsPositive() {
		pnlPercent = pnl.Div(p.TotalCost).Mul(decimal.NewFromInt(100))
	}

	p.CurrentPrice = decimal.NewNullDecimal(currentPrice)
	p.CurrentValue = decimal.NewNullDecimal(currentValue)
	p.UnrealizedPnL = decimal.NewNullDecimal(pnl)
	p.UnrealizedPnLPercent = decimal.NewNullDecimal(pnlPercent)

	return pnl, pnlPercent
}

// Transaction is an immutable audit record of one ledger-affecting event.
// Amount is quantity times price for trades, or the raw cash amount for
// deposits and withdrawals; it never includes the fee.
type Transaction struct {
	ID          int64
	PortfolioID int64
	PositionID  *int64 // nil for pure cash operations

	Type     TransactionType
	AssetID  string
	Quantity decimal.Decimal
	Price    decimal.NullDecimal
	Amount   decimal.Decimal
	Fee      decimal.Decimal

	ExternalID      string
	ExternalOrderID string

	Notes     string
	ExtraData string
	CreatedAt time.Time
}
