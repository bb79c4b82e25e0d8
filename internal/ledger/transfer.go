package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/money"
	"github.com/mmynk/walletledger/internal/storage"
)

// Transfer describes money moving from one account to another.
type Transfer struct {
	FromAccountID string
	ToAccountID   string
	CategoryID    string
	LabelIDs      []string

	// Value is the positive amount leaving FromAccountID.
	Value float64

	Payee       string
	Description string
	Datetime    int64
}

// CreateTransfer records a transfer as two records sharing a TransferID: an
// outgoing one of -Value on the source account and an incoming one of +Value
// on the destination. Both accounts are refreshed. If the second half cannot
// be written the first one is removed again.
func (e *Engine) CreateTransfer(ctx context.Context, t Transfer) (out, in *models.Record, err error) {
	if t.FromAccountID == "" || t.ToAccountID == "" {
		return nil, nil, fmt.Errorf("%w: both accounts are required", ErrInvalidTransfer)
	}
	if t.FromAccountID == t.ToAccountID {
		return nil, nil, fmt.Errorf("%w: source and destination are the same account", ErrInvalidTransfer)
	}
	value := money.Round2(t.Value)
	if value <= 0 {
		return nil, nil, fmt.Errorf("%w: value must be positive, got %v", ErrInvalidTransfer, t.Value)
	}

	transferID := uuid.New().String()
	half := func(accountID string, v float64) *models.Record {
		return &models.Record{
			AccountID:   accountID,
			CategoryID:  t.CategoryID,
			LabelIDs:    t.LabelIDs,
			TransferID:  transferID,
			Value:       v,
			Payee:       t.Payee,
			Description: t.Description,
			Datetime:    t.Datetime,
		}
	}

	out = half(t.FromAccountID, -value)
	if err := e.CreateRecord(ctx, out); err != nil {
		return nil, nil, err
	}

	in = half(t.ToAccountID, value)
	if err := e.CreateRecord(ctx, in); err != nil {
		if derr := e.DeleteRecord(ctx, out.ID, withoutCascade()); derr != nil && !storage.IsNotFound(derr) {
			slog.Error("CreateTransfer rollback failed", "record_id", out.ID, "error", derr)
		}
		return nil, nil, err
	}

	slog.Info("Transfer created",
		"transfer_id", transferID,
		"from", t.FromAccountID,
		"to", t.ToAccountID,
		"value", value,
	)

	return out, in, nil
}
