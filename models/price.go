package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is a single quote as published by a price feed. The JSON
// form matches the public prices feed: {"currency", "date", "price"}.
type PriceObservation struct {
	Asset      string          `json:"currency"`
	ObservedAt time.Time       `json:"date"`
	Price      decimal.Decimal `json:"price"`
}
