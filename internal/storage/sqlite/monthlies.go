package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/storage"
)

// GetMonthly retrieves the checkpoint of an account at a month start.
func (s *SQLiteStore) GetMonthly(ctx context.Context, accountID string, datetime int64) (*models.Monthly, error) {
	monthly := &models.Monthly{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, datetime, balance FROM monthlies WHERE account_id = ? AND datetime = ?`,
		accountID, datetime,
	).Scan(&monthly.ID, &monthly.AccountID, &monthly.Datetime, &monthly.Balance)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("monthly %s@%d: %w", accountID, datetime, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly: %w", err)
	}

	return monthly, nil
}

// ListMonthlies retrieves the checkpoints of an account within q.
func (s *SQLiteStore) ListMonthlies(ctx context.Context, accountID string, q storage.RangeQuery) ([]*models.Monthly, error) {
	clause, args := rangeClause(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, datetime, balance FROM monthlies WHERE account_id = ?`+clause,
		append([]interface{}{accountID}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthlies: %w", err)
	}
	defer rows.Close()

	var monthlies []*models.Monthly
	for rows.Next() {
		monthly := &models.Monthly{}
		if err := rows.Scan(&monthly.ID, &monthly.AccountID, &monthly.Datetime, &monthly.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan monthly: %w", err)
		}
		monthlies = append(monthlies, monthly)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate monthlies: %w", err)
	}

	return monthlies, nil
}

// UpsertMonthly creates the checkpoint at (accountID, datetime) or updates its balance in place.
// The unique key makes this a single atomic statement, so concurrent writers never create duplicates.
func (s *SQLiteStore) UpsertMonthly(ctx context.Context, accountID string, datetime int64, balance float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monthlies (id, account_id, datetime, balance) VALUES (?, ?, ?, ?)
		 ON CONFLICT (account_id, datetime) DO UPDATE SET balance = excluded.balance`,
		uuid.New().String(), accountID, datetime, balance,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly: %w", err)
	}

	return nil
}
