package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmallord/costbook/internal/domain"
)

// transactionColumns is the column list for the transactions table.
// Order must match scanTransaction.
const transactionColumns = `id, portfolio_id, position_id, transaction_type, asset_id,
	quantity, price, amount, fee,
	external_id, external_order_id, notes, extra_data, created_at`

// TransactionRepository handles the append-only transaction audit trail.
// Transactions are never updated after creation; the only delete path is a
// portfolio reset.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// Append inserts a new transaction record and fills in its id and
// creation timestamp.
func (r *TransactionRepository) Append(tx *sql.Tx, t *domain.Transaction) error {
	now := time.Now().UTC().Truncate(time.Second)

	result, err := tx.Exec(`
		INSERT INTO transactions
		(portfolio_id, position_id, transaction_type, asset_id,
		 quantity, price, amount, fee,
		 external_id, external_order_id, notes, extra_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PortfolioID,
		nullInt64(t.PositionID),
		string(t.Type),
		t.AssetID,
		t.Quantity,
		t.Price,
		t.Amount,
		t.Fee,
		nullString(t.ExternalID),
		nullString(t.ExternalOrderID),
		nullString(t.Notes),
		nullString(t.ExtraData),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}

	t.ID = id
	t.CreatedAt = now

	return nil
}

// CountByPortfolio returns the number of transactions recorded for a
// portfolio.
func (r *TransactionRepository) CountByPortfolio(portfolioID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE portfolio_id = ?`, portfolioID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// ListByPortfolio returns transactions for a portfolio in reverse
// chronological order. A limit of 0 returns all of them.
func (r *TransactionRepository) ListByPortfolio(portfolioID int64, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{portfolioID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// DeleteAll removes every transaction of a portfolio. Used only by reset.
func (r *TransactionRepository) DeleteAll(tx *sql.Tx, portfolioID int64) error {
	result, err := tx.Exec(`DELETE FROM transactions WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.log.Warn().
		Int64("portfolio_id", portfolioID).
		Int64("rows_affected", rowsAffected).
		Msg("All transactions deleted")

	return nil
}

// scanTransaction scans a database row into a Transaction.
// Column order must match transactionColumns.
func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var t domain.Transaction
	var positionID sql.NullInt64
	var txType string
	var externalID, externalOrderID, notes, extraData sql.NullString
	var createdAt int64

	err := rows.Scan(
		&t.ID,
		&t.PortfolioID,
		&positionID,
		&txType,
		&t.AssetID,
		&t.Quantity,
		&t.Price,
		&t.Amount,
		&t.Fee,
		&externalID,
		&externalOrderID,
		&notes,
		&extraData,
		&createdAt,
	)
	if err != nil {
		return t, err
	}

	parsedType, err := domain.ParseTransactionType(txType)
	if err != nil {
		return t, fmt.Errorf("failed to parse stored transaction: %w", err)
	}

	t.Type = parsedType
	t.ExternalID = externalID.String
	t.ExternalOrderID = externalOrderID.String
	t.Notes = notes.String
	t.ExtraData = extraData.String
	t.CreatedAt = time.Unix(createdAt, 0).UTC()

	if positionID.Valid {
		t.PositionID = &positionID.Int64
	}

	return t, nil
}

func nullInt64(val *int64) sql.NullInt64 {
	if val == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *val, Valid: true}
}
