package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned (wrapped) when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransfer is returned when a transfer names the same account twice
	// or moves a zero amount. It wraps ErrInvalidInput.
	ErrInvalidTransfer = fmt.Errorf("%w: transfer", ErrInvalidInput)
)

// IsInvalid reports whether err is or wraps ErrInvalidInput.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
