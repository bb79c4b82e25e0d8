package models

// Monthly is a checkpoint of an account's cumulative balance.
//
// Datetime is always a UTC month start, and Balance covers every record
// strictly before it. Consecutive checkpoints form a chain:
// the next one is this Balance plus the records of the month in between.
// No checkpoint exists for the month still running.
type Monthly struct {
	// ID is the unique identifier for the checkpoint (UUID format).
	ID string

	// AccountID is the account this checkpoint belongs to.
	AccountID string

	// Datetime is the UTC month start (Unix ms).
	Datetime int64

	// Balance is the cumulative balance before Datetime.
	Balance float64
}
