package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
)

// CreateAccount persists a new account. Without records its balance is the
// start balance. A zero StartBalanceDate anchors the account at now.
func (e *Engine) CreateAccount(ctx context.Context, account *models.Account) error {
	if strings.TrimSpace(account.Name) == "" {
		return invalidf("account name is required")
	}
	if !slices.Contains(models.Currencies, account.Currency) {
		return invalidf("unsupported currency %q", account.Currency)
	}
	if account.StartBalanceDate == 0 {
		account.StartBalanceDate = e.nowMillis()
	}

	account.StartBalance = money.Round2(account.StartBalance)
	account.Balance = account.StartBalance

	if err := e.store.CreateAccount(ctx, account); err != nil {
		slog.Error("CreateAccount failed", "error", err)
		return err
	}

	slog.Info("Account created", "account_id", account.ID, "name", account.Name, "currency", account.Currency)
	return nil
}

// RefreshAccount rebuilds everything derived for an account: it extends the
// anchor over earlier records, recomputes every checkpoint from the anchor and
// refreshes the balance. It is the single refresh to run after mutations made
// with WithoutRefresh.
func (e *Engine) RefreshAccount(ctx context.Context, accountID string) (float64, error) {
	unlock := e.accounts.Lock(accountID)
	defer unlock()

	if _, err := e.extendAnchorBackward(ctx, accountID); err != nil {
		return 0, err
	}

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if err := e.recomputeMonthliesFrom(ctx, accountID, account.StartBalanceDate); err != nil {
		return 0, err
	}

	balance, err := e.refreshBalance(ctx, accountID)
	if err != nil {
		return 0, err
	}

	slog.Info("Account refreshed", "account_id", accountID, "balance", balance)
	return balance, nil
}

// SetStartBalance rewrites the anchor of an account and recomputes from the
// earlier of the old and new anchor dates. Records dated before the new
// anchor are folded into it.
func (e *Engine) SetStartBalance(ctx context.Context, accountID string, startBalance float64, startBalanceDate int64) error {
	if startBalanceDate <= 0 {
		return invalidf("start balance date is required")
	}

	unlock := e.accounts.Lock(accountID)
	defer unlock()

	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	startBalance = money.Round2(startBalance)
	if err := e.store.UpdateAccountAnchor(ctx, accountID, startBalance, startBalanceDate); err != nil {
		return fmt.Errorf("failed to write anchor: %w", err)
	}

	if err := e.propagate(ctx, accountID, min(account.StartBalanceDate, startBalanceDate), true); err != nil {
		slog.Error("SetStartBalance failed", "account_id", accountID, "error", err)
		return err
	}

	slog.Info("Start balance set",
		"account_id", accountID,
		"start_balance", startBalance,
		"start_balance_date", startBalanceDate,
	)
	return nil
}

// UpdateAccount writes the display metadata and currency of an account.
func (e *Engine) UpdateAccount(ctx context.Context, account *models.Account) error {
	if strings.TrimSpace(account.Name) == "" {
		return invalidf("account name is required")
	}
	if !slices.Contains(models.Currencies, account.Currency) {
		return invalidf("unsupported currency %q", account.Currency)
	}
	return e.store.UpdateAccount(ctx, account)
}

// DeleteAccount removes an account with its records and checkpoints. Transfer
// halves left in other accounts are deleted and those accounts refreshed;
// debts that referenced the deleted records are refreshed.
func (e *Engine) DeleteAccount(ctx context.Context, accountID string) error {
	var counterparts, debtIDs []string

	err := func() error {
		unlock := e.accounts.Lock(accountID)
		defer unlock()

		records, err := e.store.ListRecordsByAccount(ctx, accountID, storage.RangeQuery{})
		if err != nil {
			return err
		}

		for _, r := range records {
			if r.DebtID != "" {
				debtIDs = append(debtIDs, r.DebtID)
			}
			if !r.IsTransfer() {
				continue
			}
			pair, err := e.store.ListRecordsByTransfer(ctx, r.TransferID)
			if err != nil {
				return err
			}
			for _, other := range pair {
				if other.AccountID != accountID {
					counterparts = append(counterparts, other.ID)
				}
			}
		}

		return e.store.DeleteAccount(ctx, accountID)
	}()
	if err != nil {
		slog.Error("DeleteAccount failed", "account_id", accountID, "error", err)
		return err
	}

	slices.Sort(debtIDs)
	for _, debtID := range slices.Compact(debtIDs) {
		if err := e.RefreshDebtBalance(ctx, debtID); err != nil && !storage.IsNotFound(err) {
			return err
		}
	}

	for _, id := range counterparts {
		if err := e.DeleteRecord(ctx, id, withoutCascade()); err != nil && !storage.IsNotFound(err) {
			return err
		}
	}

	slog.Info("Account deleted",
		"account_id", accountID,
		"transfer_counterparts", len(counterparts),
	)
	return nil
}
