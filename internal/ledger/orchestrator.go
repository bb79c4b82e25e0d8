package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
)

// CreateRecord persists a record and brings its account up to date: records
// dated before the anchor extend it, then checkpoints are recomputed from the
// record's month and the balance refreshed. A referenced debt is refreshed too.
func (e *Engine) CreateRecord(ctx context.Context, record *models.Record, opts ...MutationOption) error {
	cfg := applyMutationOptions(opts)

	if err := validateRecord(record); err != nil {
		return err
	}
	record.Value = money.Round2(record.Value)

	err := func() error {
		unlock := e.accounts.Lock(record.AccountID)
		defer unlock()

		account, err := e.store.GetAccount(ctx, record.AccountID)
		if err != nil {
			return err
		}
		if record.DebtID != "" {
			if _, err := e.store.GetDebt(ctx, record.DebtID); err != nil {
				return err
			}
		}

		if err := e.store.CreateRecord(ctx, record); err != nil {
			return err
		}

		if cfg.skipRefresh {
			return nil
		}
		return e.propagate(ctx, account.ID, record.Datetime, record.Datetime < account.StartBalanceDate)
	}()
	if err != nil {
		slog.Error("CreateRecord failed", "account_id", record.AccountID, "error", err)
		return err
	}

	if record.DebtID != "" {
		if err := e.RefreshDebtBalance(ctx, record.DebtID); err != nil {
			slog.Error("CreateRecord debt refresh failed", "debt_id", record.DebtID, "error", err)
			return err
		}
	}

	slog.Info("Record created",
		"record_id", record.ID,
		"account_id", record.AccountID,
		"value", record.Value,
		"datetime", record.Datetime,
	)

	return nil
}

// UpdateRecord replaces a record and recomputes whatever its change affects.
// A value, account or datetime change recomputes the record's account; an
// account change also recomputes the account it left. Moving the record to
// another account or to an earlier datetime may extend the anchor first.
//
// The transfer reference is kept from the stored record. Changing the value
// or account of a transfer half returns ErrInvalidTransfer.
func (e *Engine) UpdateRecord(ctx context.Context, record *models.Record, opts ...MutationOption) error {
	cfg := applyMutationOptions(opts)

	if record.ID == "" {
		return invalidf("record id is required")
	}
	if err := validateRecord(record); err != nil {
		return err
	}
	record.Value = money.Round2(record.Value)

	var prev *models.Record
	err := func() error {
		var (
			unlock func()
			err    error
		)
		prev, unlock, err = e.lockRecord(ctx, record.ID, record.AccountID)
		if err != nil {
			return err
		}
		defer unlock()

		accountChanged := prev.AccountID != record.AccountID

		// Transfer membership is fixed at creation; both halves must stay
		// equal and opposite in distinct accounts.
		record.TransferID = prev.TransferID
		if prev.IsTransfer() {
			if accountChanged {
				return fmt.Errorf("%w: cannot move one half of transfer %s", ErrInvalidTransfer, prev.TransferID)
			}
			if !money.Equal(prev.Value, record.Value) {
				return fmt.Errorf("%w: cannot change the value of one half of transfer %s", ErrInvalidTransfer, prev.TransferID)
			}
		}

		if accountChanged {
			if _, err := e.store.GetAccount(ctx, record.AccountID); err != nil {
				return err
			}
		}
		if record.DebtID != "" && record.DebtID != prev.DebtID {
			if _, err := e.store.GetDebt(ctx, record.DebtID); err != nil {
				return err
			}
		}

		record.CreatedAt = prev.CreatedAt
		if err := e.store.UpdateRecord(ctx, record); err != nil {
			return err
		}

		if cfg.skipRefresh {
			return nil
		}

		valueChanged := !money.Equal(prev.Value, record.Value)
		dateChanged := prev.Datetime != record.Datetime
		adjust := accountChanged || record.Datetime < prev.Datetime

		if valueChanged || accountChanged || dateChanged {
			from := record.Datetime
			if !accountChanged {
				from = min(prev.Datetime, record.Datetime)
			}
			if err := e.propagate(ctx, record.AccountID, from, adjust); err != nil {
				return err
			}
		}
		if accountChanged {
			if err := e.propagate(ctx, prev.AccountID, prev.Datetime, false); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		slog.Error("UpdateRecord failed", "record_id", record.ID, "error", err)
		return err
	}

	valueChanged := !money.Equal(prev.Value, record.Value)
	for _, debtID := range affectedDebts(prev, record, valueChanged) {
		if err := e.RefreshDebtBalance(ctx, debtID); err != nil {
			slog.Error("UpdateRecord debt refresh failed", "debt_id", debtID, "error", err)
			return err
		}
	}

	slog.Info("Record updated",
		"record_id", record.ID,
		"account_id", record.AccountID,
		"previous_account_id", prev.AccountID,
		"value", record.Value,
		"datetime", record.Datetime,
	)

	return nil
}

// DeleteRecord removes a record, recomputes its account from the record's
// datetime and refreshes its debt. Deleting one half of a transfer deletes the
// other half too; that second delete always refreshes its own account.
//
// Deleting a record that does not exist returns storage.ErrNotFound and
// changes nothing.
func (e *Engine) DeleteRecord(ctx context.Context, recordID string, opts ...MutationOption) error {
	cfg := applyMutationOptions(opts)

	var record *models.Record
	err := func() error {
		var (
			unlock func()
			err    error
		)
		record, unlock, err = e.lockRecord(ctx, recordID)
		if err != nil {
			return err
		}
		defer unlock()

		if err := e.store.DeleteRecord(ctx, recordID); err != nil {
			return err
		}

		if cfg.skipRefresh {
			return nil
		}
		return e.propagate(ctx, record.AccountID, record.Datetime, false)
	}()
	if err != nil {
		if storage.IsNotFound(err) {
			slog.Debug("DeleteRecord on missing record", "record_id", recordID)
		} else {
			slog.Error("DeleteRecord failed", "record_id", recordID, "error", err)
		}
		return err
	}

	if record.DebtID != "" {
		if err := e.RefreshDebtBalance(ctx, record.DebtID); err != nil {
			slog.Error("DeleteRecord debt refresh failed", "debt_id", record.DebtID, "error", err)
			return err
		}
	}

	if record.IsTransfer() && !cfg.noCascade {
		if err := e.deleteCounterparts(ctx, record); err != nil {
			slog.Error("DeleteRecord transfer cascade failed", "transfer_id", record.TransferID, "error", err)
			return err
		}
	}

	slog.Info("Record deleted",
		"record_id", record.ID,
		"account_id", record.AccountID,
		"transfer_id", record.TransferID,
	)

	return nil
}

// deleteCounterparts deletes the other halves of record's transfer. A half
// that is already gone is skipped.
func (e *Engine) deleteCounterparts(ctx context.Context, record *models.Record) error {
	pair, err := e.store.ListRecordsByTransfer(ctx, record.TransferID)
	if err != nil {
		return err
	}

	for _, other := range pair {
		if other.ID == record.ID {
			continue
		}
		if err := e.DeleteRecord(ctx, other.ID, withoutCascade()); err != nil && !storage.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// lockRecord fetches a record and locks its account along with extra
// accounts. If the record moved to another account between the read and the
// lock, it retries with the new account. The caller must call unlock.
func (e *Engine) lockRecord(ctx context.Context, recordID string, extra ...string) (*models.Record, func(), error) {
	for {
		seen, err := e.store.GetRecord(ctx, recordID)
		if err != nil {
			return nil, nil, err
		}

		unlock := e.accounts.LockAll(append([]string{seen.AccountID}, extra...)...)

		current, err := e.store.GetRecord(ctx, recordID)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if current.AccountID == seen.AccountID {
			return current, unlock, nil
		}
		unlock()
	}
}

// propagate brings an account up to date after a change dated from. The
// caller holds the account lock.
func (e *Engine) propagate(ctx context.Context, accountID string, from int64, adjust bool) error {
	if adjust {
		if _, err := e.extendAnchorBackward(ctx, accountID); err != nil {
			return err
		}
	}
	if err := e.recomputeMonthliesFrom(ctx, accountID, from); err != nil {
		return err
	}
	_, err := e.refreshBalance(ctx, accountID)
	return err
}

// affectedDebts lists the debts whose balance an update may have changed.
func affectedDebts(prev, next *models.Record, valueChanged bool) []string {
	var ids []string
	if prev.DebtID != next.DebtID {
		if prev.DebtID != "" {
			ids = append(ids, prev.DebtID)
		}
		if next.DebtID != "" {
			ids = append(ids, next.DebtID)
		}
		return ids
	}
	if valueChanged && next.DebtID != "" {
		ids = append(ids, next.DebtID)
	}
	return ids
}

func validateRecord(record *models.Record) error {
	if strings.TrimSpace(record.AccountID) == "" {
		return invalidf("record account is required")
	}
	if record.Datetime <= 0 {
		return invalidf("record datetime is required")
	}
	return nil
}
