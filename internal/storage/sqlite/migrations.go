package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// IMPORTANT: accounts and debts must be created BEFORE records due to foreign key constraints.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    wallet_id TEXT NOT NULL,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    balance REAL NOT NULL DEFAULT 0,
    start_balance REAL NOT NULL DEFAULT 0,
    start_balance_date INTEGER NOT NULL,
    currency TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS debts (
    id TEXT PRIMARY KEY,
    wallet_id TEXT NOT NULL,
    balance REAL NOT NULL DEFAULT 0,
    payee TEXT NOT NULL,
    description TEXT,
    closed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    category_id TEXT NOT NULL DEFAULT '',
    debt_id TEXT,
    transfer_id TEXT,
    planned_id TEXT,
    value REAL NOT NULL,
    payee TEXT,
    description TEXT,
    datetime INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE,
    FOREIGN KEY (debt_id) REFERENCES debts(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS record_labels (
    record_id TEXT NOT NULL,
    label_id TEXT NOT NULL,
    PRIMARY KEY (record_id, label_id),
    FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS monthlies (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    datetime INTEGER NOT NULL,
    balance REAL NOT NULL,
    UNIQUE (account_id, datetime),
    FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_accounts_wallet_id ON accounts(wallet_id);
CREATE INDEX IF NOT EXISTS idx_debts_wallet_id ON debts(wallet_id);
CREATE INDEX IF NOT EXISTS idx_records_account_datetime ON records(account_id, datetime);
CREATE INDEX IF NOT EXISTS idx_records_debt_id ON records(debt_id);
CREATE INDEX IF NOT EXISTS idx_records_transfer_id ON records(transfer_id);
CREATE INDEX IF NOT EXISTS idx_record_labels_record_id ON record_labels(record_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
