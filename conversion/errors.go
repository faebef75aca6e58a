package conversion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"swapdesk/models"
	"swapdesk/pricebook"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrUnknownAsset  = errors.New("asset has no price")
	ErrBusy          = errors.New("a swap is already in progress")
)

// ValidationError reports which part of a swap request was rejected.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewRequest validates the user's selection against book and assigns the
// request an id.
func NewRequest(book pricebook.Lookuper, src, dst, amount string) (models.SwapRequest, error) {
	value, err := parseAmount(amount)
	if err != nil || !value.IsPositive() {
		return models.SwapRequest{}, &ValidationError{Field: "amount", Value: strings.TrimSpace(amount), Err: ErrInvalidAmount}
	}
	if !priced(book, src) {
		return models.SwapRequest{}, &ValidationError{Field: "source", Value: src, Err: ErrUnknownAsset}
	}
	if !priced(book, dst) {
		return models.SwapRequest{}, &ValidationError{Field: "destination", Value: dst, Err: ErrUnknownAsset}
	}

	return models.SwapRequest{
		ID:          uuid.New(),
		SourceAsset: src,
		DestAsset:   dst,
		InputAmount: value,
	}, nil
}

// AmountValid reports whether the raw amount may be shown without an inline
// warning. An empty amount is valid.
func AmountValid(amount string) bool {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return true
	}
	value, err := parseAmount(trimmed)
	return err == nil && value.IsPositive()
}

func priced(book pricebook.Lookuper, asset string) bool {
	if book == nil || asset == "" {
		return false
	}
	_, ok := book.Lookup(asset)
	return ok
}
