package models

// Record is a signed monetary entry of an account.
// Positive values add money to the account, negative values remove it.
type Record struct {
	// ID is the unique identifier for the record (UUID format).
	ID string

	// AccountID is the account owning this record.
	AccountID string

	// CategoryID references a category of the wallet.
	CategoryID string

	// LabelIDs references zero or more labels of the wallet.
	LabelIDs []string

	// DebtID optionally links the record to a debt.
	// The debt's balance is the sum of all its linked records.
	DebtID string

	// TransferID is shared by the two halves of a transfer between accounts.
	// Both halves hold equal and opposite values.
	TransferID string

	// PlannedID optionally references the planned entry this record realizes.
	PlannedID string

	// Value is the signed amount in the account's currency.
	Value float64

	Payee       string
	Description string

	// Datetime is the instant (UTC Unix ms) the record happened.
	Datetime int64

	// CreatedAt and UpdatedAt are Unix ms timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// IsTransfer reports whether the record is one half of a transfer.
func (r *Record) IsTransfer() bool {
	return r.TransferID != ""
}
