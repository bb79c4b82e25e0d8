package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
)

// RefreshBalance recomputes the cached balance of an account from the
// checkpoint of the current month plus the records dated since, and returns it.
// It never creates checkpoints.
func (e *Engine) RefreshBalance(ctx context.Context, accountID string) (float64, error) {
	unlock := e.accounts.Lock(accountID)
	defer unlock()

	return e.refreshBalance(ctx, accountID)
}

func (e *Engine) refreshBalance(ctx context.Context, accountID string) (float64, error) {
	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	now := e.nowMillis()
	current := MonthStart(now)

	base, err := e.baseAt(ctx, account, current)
	if err != nil {
		e.metrics.fail("refresh_balance")
		return 0, err
	}

	// Records before the anchor are already part of StartBalance.
	from := max(current, account.StartBalanceDate)
	values, err := e.recordValues(ctx, accountID, storage.RangeQuery{
		Start:        &from,
		End:          &now,
		IncludeStart: true,
		IncludeEnd:   true,
	})
	if err != nil {
		e.metrics.fail("refresh_balance")
		return 0, err
	}

	balance := money.Sum(base, values...)
	if err := e.store.UpdateAccountBalance(ctx, accountID, balance); err != nil {
		e.metrics.fail("refresh_balance")
		return 0, fmt.Errorf("failed to write balance: %w", err)
	}
	e.metrics.balanceRefreshes.Inc()

	slog.Debug("Balance refreshed",
		"account_id", accountID,
		"base", base,
		"records", len(values),
		"balance", balance,
	)

	return balance, nil
}

// baseAt returns the cumulative balance of account strictly before the month
// start s. A stored checkpoint wins; otherwise the value is derived from the
// nearest earlier checkpoint, or from the anchor, plus the records in between.
func (e *Engine) baseAt(ctx context.Context, account *models.Account, s int64) (float64, error) {
	if s <= account.StartBalanceDate {
		return account.StartBalance, nil
	}

	checkpoint, err := e.store.GetMonthly(ctx, account.ID, s)
	if err == nil {
		return checkpoint.Balance, nil
	}
	if !storage.IsNotFound(err) {
		return 0, err
	}

	from, base := account.StartBalanceDate, account.StartBalance
	earlier, err := e.store.ListMonthlies(ctx, account.ID, storage.RangeQuery{
		Start:      &account.StartBalanceDate,
		End:        &s,
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return 0, err
	}
	if len(earlier) > 0 {
		from, base = earlier[0].Datetime, earlier[0].Balance
	}

	values, err := e.recordValues(ctx, account.ID, storage.Between(from, s))
	if err != nil {
		return 0, err
	}

	return money.Sum(base, values...), nil
}

// recordValues returns the values of the account's records within q.
func (e *Engine) recordValues(ctx context.Context, accountID string, q storage.RangeQuery) ([]float64, error) {
	records, err := e.store.ListRecordsByAccount(ctx, accountID, q)
	if err != nil {
		return nil, err
	}
	return values(records), nil
}

func values(records []*models.Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out
}
