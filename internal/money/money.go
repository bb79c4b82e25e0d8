// Package money holds the rounding and summing rules applied to every persisted amount.
//
// Amounts are stored as float64 major units. Arithmetic goes through
// shopspring/decimal so that binary representation error never accumulates
// across repeated recomputation, and every result is rounded to two decimals
// half away from zero before it is compared or written.
package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Round2 rounds v to two decimals, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Sum adds values to base and rounds the result with Round2.
func Sum(base float64, values ...float64) float64 {
	total := decimal.NewFromFloat(base)
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Sub subtracts values from base and rounds the result with Round2.
func Sub(base float64, values ...float64) float64 {
	total := decimal.NewFromFloat(base)
	for _, v := range values {
		total = total.Sub(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Equal reports whether a and b are the same amount once rounded.
func Equal(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}

// IsZero reports whether v rounds to zero.
func IsZero(v float64) bool {
	return decimal.NewFromFloat(v).Round(2).IsZero()
}

// Format renders v with the symbol and separators of the ISO 4217 currency code,
// e.g. "$70.00" for USD.
func Format(v float64, currency string) string {
	cur := *gomoney.New(0, currency).Currency()
	minor := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
