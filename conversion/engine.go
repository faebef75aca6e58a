// Package conversion prices a swap between two assets and tracks the single
// swap a desk can have in flight.
package conversion

import (
	"github.com/shopspring/decimal"

	"swapdesk/models"
	"swapdesk/pricebook"
)

// OutputPlaces is the number of fractional digits in a quoted output.
const OutputPlaces = 6

// ComputeRate returns how many units of dst one unit of src buys. Missing or
// zero prices yield a zero rate instead of an error.
func ComputeRate(book pricebook.Lookuper, src, dst string) decimal.Decimal {
	if book == nil {
		return decimal.Zero
	}
	srcPrice, ok := book.Lookup(src)
	if !ok || srcPrice.IsZero() {
		return decimal.Zero
	}
	dstPrice, ok := book.Lookup(dst)
	if !ok || dstPrice.IsZero() {
		return decimal.Zero
	}
	return srcPrice.Div(dstPrice)
}

// ComputeOutput multiplies the raw input amount by rate and renders it with
// six fractional digits. ok is false when input is not a non-negative number.
func ComputeOutput(input string, rate decimal.Decimal) (string, bool) {
	amount, err := parseAmount(input)
	if err != nil || amount.IsNegative() {
		return "", false
	}
	return amount.Mul(rate).StringFixed(OutputPlaces), true
}

// SwapDirection flips the selected pair.
func SwapDirection(src, dst string) (string, string) {
	return dst, src
}

func parseAmount(input string) (decimal.Decimal, error) {
	return models.ParseAmount(input)
}
