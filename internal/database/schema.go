package database

// ledgerSchema is the single source of truth for the ledger store layout.
// Money and quantity columns are TEXT holding decimal strings; timestamps
// are Unix seconds.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS portfolios (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    name           TEXT    NOT NULL UNIQUE,
    market_type    TEXT    NOT NULL,
    exchange       TEXT    NOT NULL,
    account_id     TEXT,
    wallet_address TEXT,
    cash_balance   TEXT    NOT NULL DEFAULT '0',
    total_value    TEXT    NOT NULL DEFAULT '0',
    unrealized_pnl TEXT    NOT NULL DEFAULT '0',
    realized_pnl   TEXT    NOT NULL DEFAULT '0',
    currency       TEXT    NOT NULL DEFAULT 'USD',
    is_active      INTEGER NOT NULL DEFAULT 1,
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    portfolio_id           INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    asset_id               TEXT    NOT NULL,
    asset_name             TEXT,
    market_id              TEXT,
    market_question        TEXT,
    side                   TEXT    NOT NULL,
    quantity               TEXT    NOT NULL DEFAULT '0',
    average_entry_price    TEXT    NOT NULL,
    total_cost             TEXT    NOT NULL,
    current_price          TEXT,
    current_value          TEXT,
    unrealized_pnl         TEXT,
    unrealized_pnl_percent TEXT,
    is_open                INTEGER NOT NULL DEFAULT 1,
    opened_at              INTEGER NOT NULL,
    closed_at              INTEGER,
    last_updated           INTEGER NOT NULL,
    extra_data             TEXT
);

CREATE INDEX IF NOT EXISTS idx_positions_portfolio_asset ON positions(portfolio_id, asset_id);
CREATE INDEX IF NOT EXISTS idx_positions_portfolio_open  ON positions(portfolio_id, is_open);

CREATE TABLE IF NOT EXISTS transactions (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    portfolio_id      INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    position_id       INTEGER REFERENCES positions(id),
    transaction_type  TEXT    NOT NULL,
    asset_id          TEXT    NOT NULL,
    quantity          TEXT    NOT NULL,
    price             TEXT,
    amount            TEXT    NOT NULL,
    fee               TEXT    NOT NULL DEFAULT '0',
    external_id       TEXT,
    external_order_id TEXT,
    notes             TEXT,
    extra_data        TEXT,
    created_at        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_created ON transactions(portfolio_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_position_created  ON transactions(position_id, created_at);
`
