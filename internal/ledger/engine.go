// Package ledger keeps the derived balances of accounts and debts consistent
// with their records.
//
// Every account carries a cached Balance, an anchor (StartBalance and
// StartBalanceDate) and a chain of monthly checkpoints. The Engine is the only
// writer of those fields: record mutations go through CreateRecord,
// UpdateRecord and DeleteRecord, which decide which parts have to be
// recomputed.
//
// All work touching one account's chain, balance or anchor is serialized by a
// per-account lock, and debt refreshes by a per-debt lock. Operations on
// different accounts run concurrently.
package ledger

import (
	"context"
	"time"

	"github.com/mmynk/walletledger/internal/keylock"
	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/storage"
)

// Engine maintains derived balances on top of a storage.Store.
type Engine struct {
	store    storage.Store
	accounts *keylock.Locker
	debts    *keylock.Locker
	now      func() time.Time
	metrics  *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the source of "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMetrics records engine activity in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine backed by store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		accounts: keylock.New(),
		debts:    keylock.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

// nowMillis returns the engine's current time as Unix milliseconds.
func (e *Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}

// GetAccount retrieves an account by ID.
func (e *Engine) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return e.store.GetAccount(ctx, accountID)
}

// ListAccounts retrieves the accounts of a wallet.
func (e *Engine) ListAccounts(ctx context.Context, walletID string) ([]*models.Account, error) {
	return e.store.ListAccounts(ctx, walletID)
}

// GetRecord retrieves a record by ID.
func (e *Engine) GetRecord(ctx context.Context, recordID string) (*models.Record, error) {
	return e.store.GetRecord(ctx, recordID)
}

// ListRecords retrieves the records of an account within q.
func (e *Engine) ListRecords(ctx context.Context, accountID string, q storage.RangeQuery) ([]*models.Record, error) {
	return e.store.ListRecordsByAccount(ctx, accountID, q)
}

// ListMonthlies retrieves the checkpoints of an account within q.
func (e *Engine) ListMonthlies(ctx context.Context, accountID string, q storage.RangeQuery) ([]*models.Monthly, error) {
	return e.store.ListMonthlies(ctx, accountID, q)
}

// GetDebt retrieves a debt by ID.
func (e *Engine) GetDebt(ctx context.Context, debtID string) (*models.Debt, error) {
	return e.store.GetDebt(ctx, debtID)
}

// ListDebts retrieves the debts of a wallet.
func (e *Engine) ListDebts(ctx context.Context, walletID string) ([]*models.Debt, error) {
	return e.store.ListDebts(ctx, walletID)
}
