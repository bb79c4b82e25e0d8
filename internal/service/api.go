package service

import (
	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/money"
)

// Account is the wire form of models.Account.
type Account struct {
	ID               string  `json:"id"`
	WalletID         string  `json:"wallet_id"`
	Name             string  `json:"name"`
	Color            string  `json:"color,omitempty"`
	Balance          float64 `json:"balance"`
	BalanceDisplay   string  `json:"balance_display"`
	StartBalance     float64 `json:"start_balance"`
	StartBalanceDate int64   `json:"start_balance_date"`
	Currency         string  `json:"currency"`
	CreatedAt        int64   `json:"created_at"`
	UpdatedAt        int64   `json:"updated_at"`
}

func toAccount(a *models.Account) Account {
	return Account{
		ID:               a.ID,
		WalletID:         a.WalletID,
		Name:             a.Name,
		Color:            a.Color,
		Balance:          a.Balance,
		BalanceDisplay:   money.Format(a.Balance, a.Currency),
		StartBalance:     a.StartBalance,
		StartBalanceDate: a.StartBalanceDate,
		Currency:         a.Currency,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// CreateAccountRequest creates an account.
type CreateAccountRequest struct {
	WalletID         string  `json:"wallet_id"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	Currency         string  `json:"currency"`
	StartBalance     float64 `json:"start_balance"`
	StartBalanceDate int64   `json:"start_balance_date"`
}

// UpdateAccountRequest updates the display metadata of an account.
type UpdateAccountRequest struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Currency string `json:"currency"`
}

// SetStartBalanceRequest rewrites the anchor of an account.
type SetStartBalanceRequest struct {
	StartBalance     float64 `json:"start_balance"`
	StartBalanceDate int64   `json:"start_balance_date"`
}

// Record is the wire form of models.Record. It doubles as the create and
// update request body; server-owned fields are ignored on input.
type Record struct {
	ID          string   `json:"id,omitempty"`
	AccountID   string   `json:"account_id"`
	CategoryID  string   `json:"category_id"`
	LabelIDs    []string `json:"label_ids,omitempty"`
	DebtID      string   `json:"debt_id,omitempty"`
	TransferID  string   `json:"transfer_id,omitempty"`
	PlannedID   string   `json:"planned_id,omitempty"`
	Value       float64  `json:"value"`
	Payee       string   `json:"payee,omitempty"`
	Description string   `json:"description,omitempty"`
	Datetime    int64    `json:"datetime"`
	CreatedAt   int64    `json:"created_at,omitempty"`
	UpdatedAt   int64    `json:"updated_at,omitempty"`
}

func toRecord(r *models.Record) Record {
	return Record{
		ID:          r.ID,
		AccountID:   r.AccountID,
		CategoryID:  r.CategoryID,
		LabelIDs:    r.LabelIDs,
		DebtID:      r.DebtID,
		TransferID:  r.TransferID,
		PlannedID:   r.PlannedID,
		Value:       r.Value,
		Payee:       r.Payee,
		Description: r.Description,
		Datetime:    r.Datetime,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r Record) model(id string) *models.Record {
	return &models.Record{
		ID:          id,
		AccountID:   r.AccountID,
		CategoryID:  r.CategoryID,
		LabelIDs:    r.LabelIDs,
		DebtID:      r.DebtID,
		TransferID:  r.TransferID,
		PlannedID:   r.PlannedID,
		Value:       r.Value,
		Payee:       r.Payee,
		Description: r.Description,
		Datetime:    r.Datetime,
	}
}

// TransferRequest creates both halves of a transfer.
type TransferRequest struct {
	FromAccountID string   `json:"from_account_id"`
	ToAccountID   string   `json:"to_account_id"`
	CategoryID    string   `json:"category_id"`
	LabelIDs      []string `json:"label_ids,omitempty"`
	Value         float64  `json:"value"`
	Payee         string   `json:"payee,omitempty"`
	Description   string   `json:"description,omitempty"`
	Datetime      int64    `json:"datetime"`
}

// TransferResponse holds both halves of a created transfer.
type TransferResponse struct {
	Out Record `json:"out"`
	In  Record `json:"in"`
}

// Monthly is the wire form of models.Monthly.
type Monthly struct {
	Datetime int64   `json:"datetime"`
	Balance  float64 `json:"balance"`
}

// Debt is the wire form of models.Debt.
type Debt struct {
	ID          string  `json:"id"`
	WalletID    string  `json:"wallet_id"`
	Balance     float64 `json:"balance"`
	Payee       string  `json:"payee"`
	Description string  `json:"description,omitempty"`
	Closed      bool    `json:"closed"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

func toDebt(d *models.Debt) Debt {
	return Debt{
		ID:          d.ID,
		WalletID:    d.WalletID,
		Balance:     d.Balance,
		Payee:       d.Payee,
		Description: d.Description,
		Closed:      d.Closed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// DebtRequest creates or updates a debt. Balance is only read on create.
type DebtRequest struct {
	WalletID    string  `json:"wallet_id"`
	Payee       string  `json:"payee"`
	Description string  `json:"description"`
	Balance     float64 `json:"balance"`
}
