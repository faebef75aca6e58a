package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on user supplied amounts. Formatting a decimal costs time in the
// number of digits it spells out, so 1e5000000 must never reach it.
const (
	MaxAmountIntegerDigits  = 30
	MaxAmountFractionDigits = 36
	maxAmountLength         = 128
)

var ErrAmountOutOfRange = errors.New("amount out of range")

// CheckAmount rejects amounts with more than MaxAmountIntegerDigits before
// or MaxAmountFractionDigits after the decimal point, counting the trailing
// zeros the amount was written with.
func CheckAmount(d decimal.Decimal) error {
	exp := int(d.Exponent())
	if exp < -MaxAmountFractionDigits || exp > MaxAmountIntegerDigits {
		return ErrAmountOutOfRange
	}
	if d.IsZero() {
		return nil
	}
	coefficient := d.Coefficient()
	// 10^(n-1) needs more than 3(n-1) bits; skip printing huge coefficients
	if coefficient.BitLen() > 4*(MaxAmountIntegerDigits+MaxAmountFractionDigits) {
		return ErrAmountOutOfRange
	}
	digits := len(strings.TrimPrefix(coefficient.String(), "-"))
	if digits+exp > MaxAmountIntegerDigits {
		return ErrAmountOutOfRange
	}
	return nil
}

// ParseAmount reads a decimal amount from user input and applies CheckAmount.
func ParseAmount(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if len(input) > maxAmountLength {
		return decimal.Decimal{}, ErrAmountOutOfRange
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}
