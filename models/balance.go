package models

import "github.com/shopspring/decimal"

// Balance is a wallet holding as reported by a balance source.
type Balance struct {
	Currency   string          `json:"currency" yaml:"currency"`
	Blockchain string          `json:"blockchain" yaml:"blockchain"`
	Amount     decimal.Decimal `json:"amount" yaml:"amount"`
}

// RankedBalance is a display ready balance. USDValue is null when the
// currency has no known price.
type RankedBalance struct {
	Balance
	Priority        int                 `json:"priority"`
	FormattedAmount string              `json:"formatted_amount"`
	USDValue        decimal.NullDecimal `json:"usd_value"`
}
