package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/storage"
)

const accountColumns = `id, wallet_id, name, color, balance, start_balance, start_balance_date, currency, created_at, updated_at`

// CreateAccount persists a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	// Generate ID and timestamps if not set
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = nowMillis()
	}
	if account.UpdatedAt == 0 {
		account.UpdatedAt = account.CreatedAt
	}
	if account.StartBalanceDate == 0 {
		account.StartBalanceDate = account.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.WalletID, account.Name, account.Color, account.Balance,
		account.StartBalance, account.StartBalanceDate, account.Currency,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`,
		accountID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", accountID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// ListAccounts retrieves all accounts of a wallet, ordered by name.
func (s *SQLiteStore) ListAccounts(ctx context.Context, walletID string) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE wallet_id = ? ORDER BY name, id`,
		walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// UpdateAccount writes the display metadata and currency of an account.
func (s *SQLiteStore) UpdateAccount(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = nowMillis()
	return s.execOne(ctx, "account", account.ID,
		`UPDATE accounts SET name = ?, color = ?, currency = ?, updated_at = ? WHERE id = ?`,
		account.Name, account.Color, account.Currency, account.UpdatedAt, account.ID,
	)
}

// UpdateAccountBalance writes the cached balance of an account.
func (s *SQLiteStore) UpdateAccountBalance(ctx context.Context, accountID string, balance float64) error {
	return s.execOne(ctx, "account", accountID,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance, nowMillis(), accountID,
	)
}

// UpdateAccountAnchor writes the start balance and its date.
func (s *SQLiteStore) UpdateAccountAnchor(ctx context.Context, accountID string, startBalance float64, startBalanceDate int64) error {
	return s.execOne(ctx, "account", accountID,
		`UPDATE accounts SET start_balance = ?, start_balance_date = ?, updated_at = ? WHERE id = ?`,
		startBalance, startBalanceDate, nowMillis(), accountID,
	)
}

// DeleteAccount removes an account. Records, labels and checkpoints go with it
// through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, accountID string) error {
	return s.execOne(ctx, "account", accountID, "DELETE FROM accounts WHERE id = ?", accountID)
}

// execOne runs a statement that must affect exactly one row of kind identified by id.
func (s *SQLiteStore) execOne(ctx context.Context, kind, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s write: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.WalletID,
		&account.Name,
		&account.Color,
		&account.Balance,
		&account.StartBalance,
		&account.StartBalanceDate,
		&account.Currency,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}
