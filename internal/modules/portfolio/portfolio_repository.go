// Package portfolio implements the ledger store and the portfolio service:
// trade recording, cost-basis tracking, P&L valuation, funds management and
// the summary view.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmallord/costbook/internal/domain"
)

// portfolioColumns is the column list for the portfolios table.
// Order must match scanPortfolio.
const portfolioColumns = `id, name, market_type, exchange, account_id, wallet_address,
	cash_balance, total_value, unrealized_pnl, realized_pnl,
	currency, is_active, created_at, updated_at`

// PortfolioRepository handles portfolio persistence in the ledger database.
// Reads go through the connection; writes take the caller's transaction so
// one logical operation commits atomically across repositories.
type PortfolioRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// GetByName returns the portfolio with the given name, or nil if none
// exists (not an error).
func (r *PortfolioRepository) GetByName(name string) (*domain.Portfolio, error) {
	row := r.db.QueryRow(
		`SELECT `+portfolioColumns+` FROM portfolios WHERE name = ?`, name)

	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio by name: %w", err)
	}

	return p, nil
}

// GetByID returns the portfolio with the given id, or nil if none exists.
func (r *PortfolioRepository) GetByID(id int64) (*domain.Portfolio, error) {
	row := r.db.QueryRow(
		`SELECT `+portfolioColumns+` FROM portfolios WHERE id = ?`, id)

	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio by id: %w", err)
	}

	return p, nil
}

// Create inserts a new portfolio and fills in its id and timestamps.
func (r *PortfolioRepository) Create(tx *sql.Tx, p *domain.Portfolio) error {
	now := time.Now().UTC().Truncate(time.Second)

	result, err := tx.Exec(`
		INSERT INTO portfolios
		(name, market_type, exchange, account_id, wallet_address,
		 cash_balance, total_value, unrealized_pnl, realized_pnl,
		 currency, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name,
		string(p.MarketType),
		p.Exchange,
		nullString(p.AccountID),
		nullString(p.WalletAddress),
		p.CashBalance,
		p.TotalValue,
		p.UnrealizedPnL,
		p.RealizedPnL,
		p.Currency,
		boolToInt(p.IsActive),
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get portfolio id: %w", err)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now

	return nil
}

// UpdateBalances writes the four balance fields and the updated_at
// timestamp for the given portfolio id.
func (r *PortfolioRepository) UpdateBalances(tx *sql.Tx, p *domain.Portfolio, updatedAt time.Time) error {
	_, err := tx.Exec(`
		UPDATE portfolios SET
			cash_balance = ?,
			total_value = ?,
			unrealized_pnl = ?,
			realized_pnl = ?,
			updated_at = ?
		WHERE id = ?`,
		p.CashBalance,
		p.TotalValue,
		p.UnrealizedPnL,
		p.RealizedPnL,
		updatedAt.Unix(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio balances: %w", err)
	}

	return nil
}

// scanPortfolio scans a single row into a Portfolio.
// Column order must match portfolioColumns.
func scanPortfolio(row *sql.Row) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var marketType string
	var accountID, walletAddress sql.NullString
	var isActive int
	var createdAt, updatedAt int64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&marketType,
		&p.Exchange,
		&accountID,
		&walletAddress,
		&p.CashBalance,
		&p.TotalValue,
		&p.UnrealizedPnL,
		&p.RealizedPnL,
		&p.Currency,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	mt, err := domain.ParseMarketType(marketType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored portfolio: %w", err)
	}

	p.MarketType = mt
	p.AccountID = accountID.String
	p.WalletAddress = walletAddress.String
	p.IsActive = isActive != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &p, nil
}

// Helper functions for nullable types

func nullString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: val, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
