package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmallord/costbook/internal/domain"
)

// positionColumns is the column list for the positions table.
// Order must match scanPosition.
const positionColumns = `id, portfolio_id, asset_id, asset_name, market_id, market_question,
	side, quantity, average_entry_price, total_cost,
	current_price, current_value, unrealized_pnl, unrealized_pnl_percent,
	is_open, opened_at, closed_at, last_updated, extra_data`

// PositionRepository handles position persistence in the ledger database.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// FindOpen returns the open position for (portfolio, asset, side), or nil
// if none exists. When side is nil any open position for the asset matches;
// if both a long and a short are open that lookup is ambiguous and returns
// a domain.AmbiguousPositionError.
func (r *PositionRepository) FindOpen(portfolioID int64, assetID string, side *domain.PositionSide) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM positions
		WHERE portfolio_id = ? AND asset_id = ? AND is_open = 1`
	args := []interface{}{portfolioID, assetID}

	if side != nil {
		query += ` AND side = ?`
		args = append(args, string(*side))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query open position: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open positions: %w", err)
	}

	switch len(positions) {
	case 0:
		return nil, nil
	case 1:
		return &positions[0], nil
	default:
		return nil, &domain.AmbiguousPositionError{PortfolioID: portfolioID, AssetID: assetID}
	}
}

// ListOpen returns all open positions of a portfolio.
func (r *PositionRepository) ListOpen(portfolioID int64) ([]domain.Position, error) {
	rows, err := r.db.Query(
		`SELECT `+positionColumns+` FROM positions WHERE portfolio_id = ? AND is_open = 1`,
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open positions: %w", err)
	}

	return positions, nil
}

// Create inserts a new position and fills in its id.
func (r *PositionRepository) Create(tx *sql.Tx, pos *domain.Position) error {
	result, err := tx.Exec(`
		INSERT INTO positions
		(portfolio_id, asset_id, asset_name, market_id, market_question,
		 side, quantity, average_entry_price, total_cost,
		 current_price, current_value, unrealized_pnl, unrealized_pnl_percent,
		 is_open, opened_at, closed_at, last_updated, extra_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.PortfolioID,
		pos.AssetID,
		nullString(pos.AssetName),
		nullString(pos.MarketID),
		nullString(pos.MarketQuestion),
		string(pos.Side),
		pos.Quantity,
		pos.AverageEntryPrice,
		pos.TotalCost,
		pos.CurrentPrice,
		pos.CurrentValue,
		pos.UnrealizedPnL,
		pos.UnrealizedPnLPercent,
		boolToInt(pos.IsOpen),
		pos.OpenedAt.Unix(),
		nullTime(pos.ClosedAt),
		pos.LastUpdated.Unix(),
		nullString(pos.ExtraData),
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get position id: %w", err)
	}
	pos.ID = id

	return nil
}

// Update writes the mutable fields of an existing position.
func (r *PositionRepository) Update(tx *sql.Tx, pos *domain.Position) error {
	result, err := tx.Exec(`
		UPDATE positions SET
			quantity = ?,
			average_entry_price = ?,
			total_cost = ?,
			current_price = ?,
			current_value = ?,
			unrealized_pnl = ?,
			unrealized_pnl_percent = ?,
			is_open = ?,
			closed_at = ?,
			last_updated = ?
		WHERE id = ?`,
		pos.Quantity,
		pos.AverageEntryPrice,
		pos.TotalCost,
		pos.CurrentPrice,
		pos.CurrentValue,
		pos.UnrealizedPnL,
		pos.UnrealizedPnLPercent,
		boolToInt(pos.IsOpen),
		nullTime(pos.ClosedAt),
		pos.LastUpdated.Unix(),
		pos.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("position %d does not exist", pos.ID)
	}

	return nil
}

// DeleteAll removes every position of a portfolio. Used only by reset.
func (r *PositionRepository) DeleteAll(tx *sql.Tx, portfolioID int64) error {
	result, err := tx.Exec(`DELETE FROM positions WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.log.Warn().
		Int64("portfolio_id", portfolioID).
		Int64("rows_affected", rowsAffected).
		Msg("All positions deleted")

	return nil
}

// scanPosition scans a database row into a Position.
// Column order must match positionColumns.
func scanPosition(rows *sql.Rows) (domain.Position, error) {
	var pos domain.Position
	var assetName, marketID, marketQuestion, extraData sql.NullString
	var side string
	var isOpen int
	var openedAt, lastUpdated int64
	var closedAt sql.NullInt64

	err := rows.Scan(
		&pos.ID,
		&pos.PortfolioID,
		&pos.AssetID,
		&assetName,
		&marketID,
		&marketQuestion,
		&side,
		&pos.Quantity,
		&pos.AverageEntryPrice,
		&pos.TotalCost,
		&pos.CurrentPrice,
		&pos.CurrentValue,
		&pos.UnrealizedPnL,
		&pos.UnrealizedPnLPercent,
		&isOpen,
		&openedAt,
		&closedAt,
		&lastUpdated,
		&extraData,
	)
	if err != nil {
		return pos, err
	}

	parsedSide, err := domain.ParsePositionSide(side)
	if err != nil {
		return pos, fmt.Errorf("failed to parse stored position: %w", err)
	}

	pos.AssetName = assetName.String
	pos.MarketID = marketID.String
	pos.MarketQuestion = marketQuestion.String
	pos.Side = parsedSide
	pos.IsOpen = isOpen != 0
	pos.OpenedAt = time.Unix(openedAt, 0).UTC()
	pos.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	pos.ExtraData = extraData.String

	if closedAt.Valid {
		t := time.Unix(closedAt.Int64, 0).UTC()
		pos.ClosedAt = &t
	}

	return pos, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
