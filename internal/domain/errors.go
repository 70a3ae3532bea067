package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel values for the domain error kinds. The typed errors below
// unwrap to these so callers can branch with errors.Is without losing the
// structured context carried by the concrete types.
var (
	ErrNoOpenPosition       = errors.New("no open position")
	ErrAmbiguousPosition    = errors.New("ambiguous open position")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrStore                = errors.New("store failure")
)

// NoOpenPositionError is returned when a sell is requested for an asset
// (and side, when given) with no open position.
type NoOpenPositionError struct {
	PortfolioID int64
	AssetID     string
	Side        PositionSide // empty when no side was requested
}

func (e *NoOpenPositionError) Error() string {
	if e.Side != "" {
		return fmt.Sprintf("no open %s position for asset %s in portfolio %d", e.Side, e.AssetID, e.PortfolioID)
	}
	return fmt.Sprintf("no open position for asset %s in portfolio %d", e.AssetID, e.PortfolioID)
}

func (e *NoOpenPositionError) Unwrap() error { return ErrNoOpenPosition }

// AmbiguousPositionError is returned when a sell without an explicit side
// matches more than one open position (a long and a short) for the same
// asset. The caller must retry with an explicit side.
type AmbiguousPositionError struct {
	PortfolioID int64
	AssetID     string
}

func (e *AmbiguousPositionError) Error() string {
	return fmt.Sprintf("asset %s has both long and short open positions in portfolio %d, side required", e.AssetID, e.PortfolioID)
}

func (e *AmbiguousPositionError) Unwrap() error { return ErrAmbiguousPosition }

// InsufficientQuantityError is returned when a sell requests more quantity
// than the open position holds.
type InsufficientQuantityError struct {
	PortfolioID int64
	AssetID     string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("cannot sell %s of asset %s: only %s available in portfolio %d",
		e.Requested, e.AssetID, e.Available, e.PortfolioID)
}

func (e *InsufficientQuantityError) Unwrap() error { return ErrInsufficientQuantity }

// InsufficientFundsError is returned when a withdrawal exceeds the cash
// balance.
type InsufficientFundsError struct {
	PortfolioID int64
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in portfolio %d: %s available, %s requested",
		e.PortfolioID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// StoreError wraps an underlying persistence failure. Operations that hit a
// StoreError are rolled back; the store is left as it was before the call.
type StoreError struct {
	Op  string // the logical operation, e.g. "record_trade"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match while Unwrap still exposes the
// underlying driver error.
func (e *StoreError) Is(target error) bool { return target == ErrStore }
