package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
)

// ExtendAnchorBackward folds records dated before the anchor into it: the
// anchor date moves back to the earliest such record and StartBalance drops by
// their sum, so the cumulative balance after the old anchor date is unchanged.
// It is a no-op when no record predates the anchor.
func (e *Engine) ExtendAnchorBackward(ctx context.Context, accountID string) error {
	unlock := e.accounts.Lock(accountID)
	defer unlock()

	_, err := e.extendAnchorBackward(ctx, accountID)
	return err
}

// extendAnchorBackward reports whether the anchor moved.
func (e *Engine) extendAnchorBackward(ctx context.Context, accountID string) (bool, error) {
	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}

	earlier, err := e.store.ListRecordsByAccount(ctx, accountID, storage.Before(account.StartBalanceDate))
	if err != nil {
		e.metrics.fail("extend_anchor")
		return false, fmt.Errorf("failed to list records before anchor: %w", err)
	}
	if len(earlier) == 0 {
		return false, nil
	}

	startBalance := money.Sub(account.StartBalance, values(earlier)...)
	startBalanceDate := earlier[0].Datetime

	if err := e.store.UpdateAccountAnchor(ctx, accountID, startBalance, startBalanceDate); err != nil {
		e.metrics.fail("extend_anchor")
		return false, fmt.Errorf("failed to write anchor: %w", err)
	}
	e.metrics.anchorExtensions.Inc()

	slog.Info("Anchor extended backward",
		"account_id", accountID,
		"records", len(earlier),
		"start_balance", startBalance,
		"start_balance_date", startBalanceDate,
	)

	return true, nil
}
