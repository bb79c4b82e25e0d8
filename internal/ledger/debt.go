package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/money"
)

// RefreshDebtBalance sets the balance of a debt to the sum of its linked
// records and closes it exactly when that sum is zero.
func (e *Engine) RefreshDebtBalance(ctx context.Context, debtID string) error {
	unlock := e.debts.Lock(debtID)
	defer unlock()

	if _, err := e.store.GetDebt(ctx, debtID); err != nil {
		return err
	}

	records, err := e.store.ListRecordsByDebt(ctx, debtID)
	if err != nil {
		e.metrics.fail("refresh_debt")
		return fmt.Errorf("failed to list debt records: %w", err)
	}

	balance := money.Sum(0, values(records)...)
	closed := money.IsZero(balance)

	if err := e.store.UpdateDebtBalance(ctx, debtID, balance, closed); err != nil {
		e.metrics.fail("refresh_debt")
		return fmt.Errorf("failed to write debt balance: %w", err)
	}
	e.metrics.debtRefreshes.Inc()

	slog.Debug("Debt balance refreshed",
		"debt_id", debtID,
		"records", len(records),
		"balance", balance,
		"closed", closed,
	)

	return nil
}

// CreateDebt persists a new debt. Its balance is rounded and Closed follows it.
func (e *Engine) CreateDebt(ctx context.Context, debt *models.Debt) error {
	if strings.TrimSpace(debt.Payee) == "" {
		return invalidf("debt payee is required")
	}

	debt.Balance = money.Round2(debt.Balance)
	debt.Closed = money.IsZero(debt.Balance)

	if err := e.store.CreateDebt(ctx, debt); err != nil {
		return err
	}

	slog.Info("Debt created", "debt_id", debt.ID, "payee", debt.Payee)
	return nil
}

// UpdateDebt writes the payee and description of a debt. A payee change is
// copied onto every linked record; values and balances are not touched.
func (e *Engine) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	if strings.TrimSpace(debt.Payee) == "" {
		return invalidf("debt payee is required")
	}

	unlock := e.debts.Lock(debt.ID)
	defer unlock()

	prev, err := e.store.GetDebt(ctx, debt.ID)
	if err != nil {
		return err
	}

	if err := e.store.UpdateDebt(ctx, debt); err != nil {
		return err
	}

	if prev.Payee != debt.Payee {
		n, err := e.store.SetRecordsPayeeByDebt(ctx, debt.ID, debt.Payee)
		if err != nil {
			return err
		}
		slog.Info("Debt payee renamed",
			"debt_id", debt.ID,
			"from", prev.Payee,
			"to", debt.Payee,
			"records", n,
		)
	}

	return nil
}

// DeleteDebt removes a debt. Its records stay, without the reference.
func (e *Engine) DeleteDebt(ctx context.Context, debtID string) error {
	unlock := e.debts.Lock(debtID)
	defer unlock()

	if err := e.store.DeleteDebt(ctx, debtID); err != nil {
		return err
	}

	slog.Info("Debt deleted", "debt_id", debtID)
	return nil
}
