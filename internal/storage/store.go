// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/walletledger/internal/models"
)

// ErrNotFound is returned (wrapped) when an account, record, checkpoint or debt does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RangeQuery selects rows of one account by datetime.
// A nil bound is open. Limit <= 0 means no limit.
type RangeQuery struct {
	Start        *int64
	End          *int64
	IncludeStart bool
	IncludeEnd   bool
	Descending   bool
	Limit        int
}

// Between selects the half-open range [start, end) in ascending order.
func Between(start, end int64) RangeQuery {
	return RangeQuery{Start: &start, End: &end, IncludeStart: true}
}

// Before selects everything strictly before end in ascending order.
func Before(end int64) RangeQuery {
	return RangeQuery{End: &end}
}

// RecordStore persists records.
type RecordStore interface {
	// CreateRecord persists a new record.
	// The record.ID, CreatedAt and UpdatedAt fields are populated by the store when empty.
	CreateRecord(ctx context.Context, record *models.Record) error

	// GetRecord retrieves a record by ID, including its labels.
	GetRecord(ctx context.Context, recordID string) (*models.Record, error)

	// UpdateRecord replaces every mutable field of an existing record.
	UpdateRecord(ctx context.Context, record *models.Record) error

	// DeleteRecord removes a record by ID.
	DeleteRecord(ctx context.Context, recordID string) error

	// ListRecordsByAccount returns the records of an account within the range,
	// sorted by datetime.
	ListRecordsByAccount(ctx context.Context, accountID string, q RangeQuery) ([]*models.Record, error)

	// ListRecordsByDebt returns every record referencing the debt.
	ListRecordsByDebt(ctx context.Context, debtID string) ([]*models.Record, error)

	// ListRecordsByTransfer returns both halves of a transfer.
	ListRecordsByTransfer(ctx context.Context, transferID string) ([]*models.Record, error)

	// SetRecordsPayeeByDebt rewrites the payee of every record referencing the debt
	// and returns how many records changed.
	SetRecordsPayeeByDebt(ctx context.Context, debtID, payee string) (int64, error)
}

// MonthlyStore persists checkpoints, at most one per (account, month start).
type MonthlyStore interface {
	// GetMonthly retrieves the checkpoint of an account at a month start.
	GetMonthly(ctx context.Context, accountID string, datetime int64) (*models.Monthly, error)

	// ListMonthlies returns the checkpoints of an account within the range.
	ListMonthlies(ctx context.Context, accountID string, q RangeQuery) ([]*models.Monthly, error)

	// UpsertMonthly writes the checkpoint keyed by (accountID, datetime),
	// creating it or updating it in place.
	UpsertMonthly(ctx context.Context, accountID string, datetime int64, balance float64) error
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context, walletID string) ([]*models.Account, error)

	// UpdateAccount writes display metadata and currency only.
	UpdateAccount(ctx context.Context, account *models.Account) error

	// UpdateAccountBalance writes the cached balance.
	UpdateAccountBalance(ctx context.Context, accountID string, balance float64) error

	// UpdateAccountAnchor writes StartBalance and StartBalanceDate.
	UpdateAccountAnchor(ctx context.Context, accountID string, startBalance float64, startBalanceDate int64) error

	// DeleteAccount removes the account along with its records and checkpoints.
	DeleteAccount(ctx context.Context, accountID string) error
}

// DebtStore persists debts.
type DebtStore interface {
	CreateDebt(ctx context.Context, debt *models.Debt) error
	GetDebt(ctx context.Context, debtID string) (*models.Debt, error)
	ListDebts(ctx context.Context, walletID string) ([]*models.Debt, error)

	// UpdateDebt writes payee and description only.
	UpdateDebt(ctx context.Context, debt *models.Debt) error

	// UpdateDebtBalance writes the derived balance and closed flag.
	UpdateDebtBalance(ctx context.Context, debtID string, balance float64, closed bool) error

	// DeleteDebt removes the debt and clears the reference on its records.
	DeleteDebt(ctx context.Context, debtID string) error
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends without changing the engine.
type Store interface {
	RecordStore
	MonthlyStore
	AccountStore
	DebtStore

	// Close releases any resources held by the store.
	Close() error
}
