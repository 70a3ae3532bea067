package portfolio

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jmallord/costbook/internal/database"
	"github.com/jmallord/costbook/internal/domain"
)

// Service orchestrates portfolio operations: trade recording, funds
// management, price-driven revaluation, the summary view and reset.
//
// Every mutating operation is one atomic unit against the ledger store:
// the position write, the transaction append and the portfolio balance
// update either all commit or none do. Mutating operations on the same
// portfolio are serialized with a per-portfolio lock; the in-memory
// portfolio handed in by the caller is only updated after a successful
// commit, so a failed call leaves both the store and the caller's view
// unchanged.
type Service struct {
	db           *sql.DB
	portfolios   *PortfolioRepository
	positions    *PositionRepository
	transactions *TransactionRepository
	log          zerolog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService creates a new portfolio service
func NewService(
	db *sql.DB,
	portfolios *PortfolioRepository,
	positions *PositionRepository,
	transactions *TransactionRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:           db,
		portfolios:   portfolios,
		positions:    positions,
		transactions: transactions,
		log:          log.With().Str("service", "portfolio").Logger(),
		locks:        make(map[int64]*sync.Mutex),
	}
}

// portfolioLock returns the mutex serializing mutations of one portfolio.
func (s *Service) portfolioLock(portfolioID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[portfolioID] = lock
	}
	return lock
}

// EnsurePortfolio returns the portfolio with the given name, creating it
// if it does not exist. Idempotent, keyed by name.
func (s *Service) EnsurePortfolio(params EnsureParams) (*domain.Portfolio, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("portfolio name must not be empty")
	}
	if _, err := domain.ParseMarketType(string(params.MarketType)); err != nil {
		return nil, err
	}

	existing, err := s.portfolios.GetByName(params.Name)
	if err != nil {
		return nil, &domain.StoreError{Op: "ensure_portfolio", Err: err}
	}
	if existing != nil {
		return existing, nil
	}

	currency := params.Currency
	if currency == "" {
		currency = "USD"
	}

	p := &domain.Portfolio{
		Name:          params.Name,
		MarketType:    params.MarketType,
		Exchange:      params.Exchange,
		AccountID:     params.AccountID,
		WalletAddress: params.WalletAddress,
		CashBalance:   decimal.Zero,
		TotalValue:    decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		Currency:      currency,
		IsActive:      true,
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		return s.portfolios.Create(tx, p)
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "ensure_portfolio", Err: err}
	}

	s.log.Info().
		Int64("portfolio_id", p.ID).
		Str("name", p.Name).
		Str("market_type", string(p.MarketType)).
		Str("exchange", p.Exchange).
		Msg("portfolio_created")

	return p, nil
}

// RecordTrade records a buy or sell fill against the portfolio, updating
// the matching position's cost basis, the portfolio cash balance, and the
// transaction audit trail in one atomic operation.
//
// A buy without a side opens or grows a long position. A sell requires an
// open position; selling the full quantity closes it and crystallizes
// realized P&L, a partial sell reduces the cost basis proportionally and
// leaves the average entry price unchanged.
func (s *Service) RecordTrade(p *domain.Portfolio, req TradeRequest) (*domain.Position, *domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid trade request: %w", err)
	}

	lock := s.portfolioLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	// A buy without an explicit side targets the long position. A sell
	// without a side takes whichever single open position exists.
	side := req.Side
	if side == nil && req.Type == domain.TransactionBuy {
		long := domain.SideLong
		side = &long
	}

	pos, err := s.positions.FindOpen(p.ID, req.AssetID, side)
	if err != nil {
		if _, ok := err.(*domain.AmbiguousPositionError); ok {
			return nil, nil, err
		}
		return nil, nil, &domain.StoreError{Op: "record_trade", Err: err}
	}

	totalAmount := req.Quantity.Mul(req.Price)
	totalCost := totalAmount.Add(req.Fee)
	now := time.Now().UTC().Truncate(time.Second)

	newCash := p.CashBalance
	newRealized := p.RealizedPnL
	realizedDelta := decimal.Zero
	created := false
	closed := false

	switch req.Type {
	case domain.TransactionBuy:
		if pos == nil {
			assetName := req.AssetName
			if assetName == "" {
				assetName = req.AssetID
			}
			pos = &domain.Position{
				PortfolioID:       p.ID,
				AssetID:           req.AssetID,
				AssetName:         assetName,
				MarketID:          req.MarketID,
				MarketQuestion:    req.MarketQuestion,
				Side:              *side,
				Quantity:          req.Quantity,
				AverageEntryPrice: req.Price,
				TotalCost:         totalCost,
				IsOpen:            true,
				OpenedAt:          now,
				LastUpdated:       now,
			}
			created = true
		} else {
			newQuantity := pos.Quantity.Add(req.Quantity)
			newTotalCost := pos.TotalCost.Add(totalCost)

			pos.Quantity = newQuantity
			pos.TotalCost = newTotalCost
			// Weighted average, fees included in the basis.
			pos.AverageEntryPrice = newTotalCost.Div(newQuantity)
			pos.LastUpdated = now
		}
		newCash = newCash.Sub(totalCost)

	case domain.TransactionSell:
		if pos == nil {
			e := &domain.NoOpenPositionError{PortfolioID: p.ID, AssetID: req.AssetID}
			if req.Side != nil {
				e.Side = *req.Side
			}
			return nil, nil, e
		}
		if req.Quantity.GreaterThan(pos.Quantity) {
			return nil, nil, &domain.InsufficientQuantityError{
				PortfolioID: p.ID,
				AssetID:     req.AssetID,
				Requested:   req.Quantity,
				Available:   pos.Quantity,
			}
		}

		// Entry price as it was before this sell mutates the position.
		entryPrice := pos.AverageEntryPrice
		remaining := pos.Quantity.Sub(req.Quantity)
		pos.Quantity = remaining
		pos.LastUpdated = now

		if remaining.IsZero() {
			pos.IsOpen = false
			closedAt := now
			pos.ClosedAt = &closedAt
			closed = true

			realizedDelta = totalAmount.Sub(entryPrice.Mul(req.Quantity)).Sub(req.Fee)
			newRealized = newRealized.Add(realizedDelta)
		} else {
			// Partial close: reduce the cost basis proportionally,
			// the average entry price stays put.
			remainingRatio := remaining.Div(remaining.Add(req.Quantity))
			pos.TotalCost = pos.TotalCost.Mul(remainingRatio)
		}
		newCash = newCash.Add(totalAmount.Sub(req.Fee))
	}

	txn := &domain.Transaction{
		PortfolioID:     p.ID,
		Type:            req.Type,
		AssetID:         req.AssetID,
		Quantity:        req.Quantity,
		Price:           decimal.NewNullDecimal(req.Price),
		Amount:          totalAmount,
		Fee:             req.Fee,
		ExternalID:      req.ExternalID,
		ExternalOrderID: req.ExternalOrderID,
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if created {
			if err := s.positions.Create(tx, pos); err != nil {
				return err
			}
		} else {
			if err := s.positions.Update(tx, pos); err != nil {
				return err
			}
		}

		txn.PositionID = &pos.ID
		if err := s.transactions.Append(tx, txn); err != nil {
			return err
		}

		updated := *p
		updated.CashBalance = newCash
		updated.RealizedPnL = newRealized
		return s.portfolios.UpdateBalances(tx, &updated, now)
	})
	if err != nil {
		return nil, nil, &domain.StoreError{Op: "record_trade", Err: err}
	}

	p.CashBalance = newCash
	p.RealizedPnL = newRealized
	p.UpdatedAt = now

	if closed {
		s.log.Info().
			Int64("position_id", pos.ID).
			Str("asset_id", pos.AssetID).
			Str("realized_pnl", realizedDelta.String()).
			Msg("position_closed")
	}

	s.log.Info().
		Int64("portfolio_id", p.ID).
		Int64("position_id", pos.ID).
		Int64("transaction_id", txn.ID).
		Str("type", string(req.Type)).
		Str("asset_id", req.AssetID).
		Str("quantity", req.Quantity.String()).
		Str("price", req.Price.String()).
		Msg("trade_recorded")

	return pos, txn, nil
}

// UpdatePositionPrices marks every open position whose asset appears in
// the price snapshot and recomputes the portfolio totals.
//
// Positions absent from the snapshot keep their previous valuation fields
// and contribute nothing to total_value for this pass, so totals only
// cover assets the snapshot priced. Applying the same snapshot twice
// yields identical totals.
func (s *Service) UpdatePositionPrices(p *domain.Portfolio, prices map[string]decimal.Decimal) (*domain.Portfolio, error) {
	lock := s.portfolioLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	openPositions, err := s.positions.ListOpen(p.ID)
	if err != nil {
		return nil, &domain.StoreError{Op: "update_position_prices", Err: err}
	}

	now := time.Now().UTC().Truncate(time.Second)
	totalValue := p.CashBalance
	totalUnrealized := decimal.Zero
	var revalued []*domain.Position

	for i := range openPositions {
		pos := &openPositions[i]
		price, ok := prices[pos.AssetID]
		if !ok {
			continue
		}

		pnl, _ := pos.CalculatePnL(price)
		pos.LastUpdated = now

		totalValue = totalValue.Add(pos.CurrentValue.Decimal)
		totalUnrealized = totalUnrealized.Add(pnl)
		revalued = append(revalued, pos)

		s.log.Debug().
			Int64("position_id", pos.ID).
			Str("asset_id", pos.AssetID).
			Str("current_price", price.String()).
			Str("unrealized_pnl", pnl.String()).
			Msg("position_updated")
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		for _, pos := range revalued {
			if err := s.positions.Update(tx, pos); err != nil {
				return err
			}
		}

		updated := *p
		updated.TotalValue = totalValue
		updated.UnrealizedPnL = totalUnrealized
		return s.portfolios.UpdateBalances(tx, &updated, now)
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "update_position_prices", Err: err}
	}

	p.TotalValue = totalValue
	p.UnrealizedPnL = totalUnrealized
	p.UpdatedAt = now

	s.log.Info().
		Int64("portfolio_id", p.ID).
		Str("total_value", p.TotalValue.String()).
		Str("unrealized_pnl", p.UnrealizedPnL.String()).
		Str("realized_pnl", p.RealizedPnL.String()).
		Msg("portfolio_updated")

	return p, nil
}

// GetPortfolio looks up a portfolio by name. Returns nil when no
// portfolio with that name exists.
func (s *Service) GetPortfolio(name string) (*domain.Portfolio, error) {
	p, err := s.portfolios.GetByName(name)
	if err != nil {
		return nil, &domain.StoreError{Op: "get_portfolio", Err: err}
	}
	return p, nil
}

// OpenAssetIDs returns the distinct asset ids of the portfolio's open
// positions, the set a price refresh needs quotes for.
func (s *Service) OpenAssetIDs(p *domain.Portfolio) ([]string, error) {
	openPositions, err := s.positions.ListOpen(p.ID)
	if err != nil {
		return nil, &domain.StoreError{Op: "open_asset_ids", Err: err}
	}

	seen := make(map[string]struct{}, len(openPositions))
	ids := make([]string, 0, len(openPositions))
	for _, pos := range openPositions {
		if _, ok := seen[pos.AssetID]; ok {
			continue
		}
		seen[pos.AssetID] = struct{}{}
		ids = append(ids, pos.AssetID)
	}

	return ids, nil
}

// GetPortfolioSummary builds the aggregate read-only view of a portfolio:
// balances, P&L totals, counters and per-position details. It never
// mutates store state.
func (s *Service) GetPortfolioSummary(p *domain.Portfolio) (*Summary, error) {
	openPositions, err := s.positions.ListOpen(p.ID)
	if err != nil {
		return nil, &domain.StoreError{Op: "get_portfolio_summary", Err: err}
	}

	totalTransactions, err := s.transactions.CountByPortfolio(p.ID)
	if err != nil {
		return nil, &domain.StoreError{Op: "get_portfolio_summary", Err: err}
	}

	views := make([]PositionView, 0, len(openPositions))
	for _, pos := range openPositions {
		views = append(views, PositionView{
			AssetID:       pos.AssetID,
			AssetName:     pos.AssetName,
			Side:          pos.Side,
			Quantity:      pos.Quantity,
			EntryPrice:    pos.AverageEntryPrice,
			CurrentPrice:  pos.CurrentPrice,
			CurrentValue:  pos.CurrentValue,
			UnrealizedPnL: pos.UnrealizedPnL,
			PnLPercent:    pos.UnrealizedPnLPercent,
		})
	}

	return &Summary{
		PortfolioID:       p.ID,
		Name:              p.Name,
		Exchange:          p.Exchange,
		MarketType:        p.MarketType,
		CashBalance:       p.CashBalance,
		TotalValue:        p.TotalValue,
		UnrealizedPnL:     p.UnrealizedPnL,
		RealizedPnL:       p.RealizedPnL,
		TotalPnL:          p.UnrealizedPnL.Add(p.RealizedPnL),
		OpenPositions:     len(openPositions),
		TotalTransactions: totalTransactions,
		Positions:         views,
		UpdatedAt:         p.UpdatedAt,
	}, nil
}

// AddFunds deposits cash into the portfolio and appends a deposit
// transaction.
func (s *Service) AddFunds(p *domain.Portfolio, amount decimal.Decimal, notes string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("deposit amount must be positive, got %s", amount)
	}

	lock := s.portfolioLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	newCash := p.CashBalance.Add(amount)

	txn := &domain.Transaction{
		PortfolioID: p.ID,
		Type:        domain.TransactionDeposit,
		AssetID:     domain.CashAssetID,
		Quantity:    amount,
		Price:       decimal.NewNullDecimal(decimal.NewFromInt(1)),
		Amount:      amount,
		Notes:       notes,
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.transactions.Append(tx, txn); err != nil {
			return err
		}

		updated := *p
		updated.CashBalance = newCash
		return s.portfolios.UpdateBalances(tx, &updated, now)
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "add_funds", Err: err}
	}

	p.CashBalance = newCash
	p.UpdatedAt = now

	s.log.Info().
		Int64("portfolio_id", p.ID).
		Str("amount", amount.String()).
		Msg("funds_added")

	return txn, nil
}

// WithdrawFunds removes cash from the portfolio and appends a withdrawal
// transaction. Fails with InsufficientFundsError when the amount exceeds
// the cash balance; the balance is left untouched in that case.
func (s *Service) WithdrawFunds(p *domain.Portfolio, amount decimal.Decimal, notes string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s", amount)
	}

	lock := s.portfolioLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	if amount.GreaterThan(p.CashBalance) {
		return nil, &domain.InsufficientFundsError{
			PortfolioID: p.ID,
			Requested:   amount,
			Available:   p.CashBalance,
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	newCash := p.CashBalance.Sub(amount)

	txn := &domain.Transaction{
		PortfolioID: p.ID,
		Type:        domain.TransactionWithdrawal,
		AssetID:     domain.CashAssetID,
		Quantity:    amount,
		Price:       decimal.NewNullDecimal(decimal.NewFromInt(1)),
		Amount:      amount,
		Notes:       notes,
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.transactions.Append(tx, txn); err != nil {
			return err
		}

		updated := *p
		updated.CashBalance = newCash
		return s.portfolios.UpdateBalances(tx, &updated, now)
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "withdraw_funds", Err: err}
	}

	p.CashBalance = newCash
	p.UpdatedAt = now

	s.log.Info().
		Int64("portfolio_id", p.ID).
		Str("amount", amount.String()).
		Msg("funds_withdrawn")

	return txn, nil
}

// ListTransactions returns the portfolio's transactions, newest first.
func (s *Service) ListTransactions(p *domain.Portfolio, limit int) ([]domain.Transaction, error) {
	transactions, err := s.transactions.ListByPortfolio(p.ID, limit)
	if err != nil {
		return nil, &domain.StoreError{Op: "list_transactions", Err: err}
	}
	return transactions, nil
}

// ResetPortfolio deletes every position and transaction of the portfolio
// and zeroes all balances. Irreversible; other portfolios are untouched.
func (s *Service) ResetPortfolio(p *domain.Portfolio) error {
	lock := s.portfolioLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC().Truncate(time.Second)

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.transactions.DeleteAll(tx, p.ID); err != nil {
			return err
		}
		if err := s.positions.DeleteAll(tx, p.ID); err != nil {
			return err
		}

		updated := *p
		updated.CashBalance = decimal.Zero
		updated.TotalValue = decimal.Zero
		updated.UnrealizedPnL = decimal.Zero
		updated.RealizedPnL = decimal.Zero
		return s.portfolios.UpdateBalances(tx, &updated, now)
	})
	if err != nil {
		return &domain.StoreError{Op: "reset_portfolio", Err: err}
	}

	p.CashBalance = decimal.Zero
	p.TotalValue = decimal.Zero
	p.UnrealizedPnL = decimal.Zero
	p.RealizedPnL = decimal.Zero
	p.UpdatedAt = now

	s.log.Info().
		Int64("portfolio_id", p.ID).
		Str("name", p.Name).
		Msg("portfolio_reset")

	return nil
}
