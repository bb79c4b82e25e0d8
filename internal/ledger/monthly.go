package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
)

// RecomputeMonthliesFrom rewrites the checkpoint chain of an account from the
// month containing changedAt up to the current month start. Each step writes
// checkpoint(S+1) = checkpoint(S) + records in [S, S+1). The open current
// month never gets a checkpoint.
//
// On failure the error of the failing step is returned and later checkpoints
// are left untouched.
func (e *Engine) RecomputeMonthliesFrom(ctx context.Context, accountID string, changedAt int64) error {
	unlock := e.accounts.Lock(accountID)
	defer unlock()

	return e.recomputeMonthliesFrom(ctx, accountID, changedAt)
}

func (e *Engine) recomputeMonthliesFrom(ctx context.Context, accountID string, changedAt int64) error {
	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	start := time.Now()
	e.metrics.recomputes.Inc()
	defer func() {
		e.metrics.recomputeDuration.Observe(time.Since(start).Seconds())
	}()

	// Nothing before the anchor month can change.
	from := max(MonthStart(changedAt), MonthStart(account.StartBalanceDate))
	end := MonthStart(e.nowMillis())

	slog.Debug("RecomputeMonthliesFrom started",
		"account_id", accountID,
		"changed_at", changedAt,
		"from", from,
		"until", end,
	)

	if from >= end {
		return nil
	}

	base, err := e.baseAt(ctx, account, from)
	if err != nil {
		e.metrics.fail("recompute")
		return fmt.Errorf("failed to get base checkpoint: %w", err)
	}

	written := 0
	for s := from; s < end; s = NextMonth(s) {
		next := NextMonth(s)

		delta, err := e.recordValues(ctx, accountID, storage.Between(s, next))
		if err != nil {
			e.metrics.fail("recompute")
			return fmt.Errorf("failed to list records of month %d: %w", s, err)
		}

		balance := money.Sum(base, delta...)
		if err := e.store.UpsertMonthly(ctx, accountID, next, balance); err != nil {
			e.metrics.fail("recompute")
			slog.Error("Checkpoint write failed",
				"account_id", accountID,
				"datetime", next,
				"written", written,
				"error", err,
			)
			return fmt.Errorf("failed to write checkpoint %d: %w", next, err)
		}

		e.metrics.checkpointsWritten.Inc()
		written++
		base = balance
	}

	slog.Debug("RecomputeMonthliesFrom finished",
		"account_id", accountID,
		"checkpoints", written,
	)

	return nil
}
