package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/storage"
)

const debtColumns = `id, wallet_id, balance, payee, description, closed, created_at, updated_at`

// CreateDebt persists a new debt.
func (s *SQLiteStore) CreateDebt(ctx context.Context, debt *models.Debt) error {
	// Generate ID and timestamps if not set
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.CreatedAt == 0 {
		debt.CreatedAt = nowMillis()
	}
	if debt.UpdatedAt == 0 {
		debt.UpdatedAt = debt.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debts (`+debtColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.WalletID, debt.Balance, debt.Payee, nullString(debt.Description),
		debt.Closed, debt.CreatedAt, debt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}

	return nil
}

// GetDebt retrieves a debt by ID.
func (s *SQLiteStore) GetDebt(ctx context.Context, debtID string) (*models.Debt, error) {
	debt, err := scanDebt(s.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE id = ?`,
		debtID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	return debt, nil
}

// ListDebts retrieves all debts of a wallet, open ones first.
func (s *SQLiteStore) ListDebts(ctx context.Context, walletID string) ([]*models.Debt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE wallet_id = ? ORDER BY closed, created_at DESC`,
		walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}

	return debts, nil
}

// UpdateDebt writes the payee and description of a debt.
func (s *SQLiteStore) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	debt.UpdatedAt = nowMillis()
	return s.execOne(ctx, "debt", debt.ID,
		`UPDATE debts SET payee = ?, description = ?, updated_at = ? WHERE id = ?`,
		debt.Payee, nullString(debt.Description), debt.UpdatedAt, debt.ID,
	)
}

// UpdateDebtBalance writes the derived balance and closed flag of a debt.
func (s *SQLiteStore) UpdateDebtBalance(ctx context.Context, debtID string, balance float64, closed bool) error {
	return s.execOne(ctx, "debt", debtID,
		`UPDATE debts SET balance = ?, closed = ?, updated_at = ? WHERE id = ?`,
		balance, closed, nowMillis(), debtID,
	)
}

// DeleteDebt removes a debt. Linked records keep existing with their reference
// cleared by ON DELETE SET NULL.
func (s *SQLiteStore) DeleteDebt(ctx context.Context, debtID string) error {
	return s.execOne(ctx, "debt", debtID, "DELETE FROM debts WHERE id = ?", debtID)
}

func scanDebt(row rowScanner) (*models.Debt, error) {
	debt := &models.Debt{}
	var description sql.NullString
	err := row.Scan(
		&debt.ID,
		&debt.WalletID,
		&debt.Balance,
		&debt.Payee,
		&description,
		&debt.Closed,
		&debt.CreatedAt,
		&debt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	debt.Description = description.String
	return debt, nil
}
