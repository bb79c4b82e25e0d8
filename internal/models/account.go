package models

// Currencies lists the ISO 4217 codes an account may hold.
var Currencies = []string{"CHF", "EUR", "GBP", "USD"}

// Account is a ledger of records inside a wallet.
//
// Invariant: Balance equals StartBalance plus every record of the account
// dated at or after StartBalanceDate, rounded to two decimals.
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// WalletID is the wallet owning this account.
	WalletID string

	// Name and Color are display metadata.
	Name  string
	Color string

	// Balance is the cached current balance.
	// Only the balance engine writes it.
	Balance float64

	// StartBalance is the anchor: the cumulative balance of everything
	// that happened before StartBalanceDate.
	StartBalance float64

	// StartBalanceDate is the earliest instant (Unix ms) the anchor is valid from.
	StartBalanceDate int64

	// Currency is an ISO 4217 code, one of Currencies.
	Currency string

	// CreatedAt and UpdatedAt are Unix ms timestamps.
	CreatedAt int64
	UpdatedAt int64
}
