package models

// Debt tracks money borrowed or lent.
// Its balance is derived entirely from the records referencing it.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string

	// WalletID is the wallet owning this debt.
	WalletID string

	// Balance is the outstanding amount.
	// Positive means money was borrowed, negative means money was lent.
	Balance float64

	// Payee is the counterparty. Renaming it renames the payee of every linked record.
	Payee string

	Description string

	// Closed is true exactly when Balance is zero.
	Closed bool

	// CreatedAt and UpdatedAt are Unix ms timestamps.
	CreatedAt int64
	UpdatedAt int64
}
