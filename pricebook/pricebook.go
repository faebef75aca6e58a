// Package pricebook collapses a feed of price observations into one price per
// asset.
package pricebook

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"swapdesk/models"
)

// Lookuper resolves the current price of an asset.
type Lookuper interface {
	Lookup(asset string) (decimal.Decimal, bool)
}

// Book is an immutable asset -> price mapping. A nil *Book is empty.
type Book struct {
	prices  map[string]decimal.Decimal
	assets  []string
	builtAt time.Time
}

// Build walks observations in order and keeps the last price seen for each
// asset. Observation timestamps are not compared and prices are not
// validated.
func Build(observations []models.PriceObservation) *Book {
	prices := make(map[string]decimal.Decimal, len(observations))
	for _, obs := range observations {
		prices[obs.Asset] = obs.Price
	}

	assets := make([]string, 0, len(prices))
	for asset := range prices {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	return &Book{prices: prices, assets: assets, builtAt: time.Now().UTC()}
}

// Lookup returns the price of asset and whether the book has one.
func (b *Book) Lookup(asset string) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Zero, false
	}
	price, ok := b.prices[asset]
	return price, ok
}

// Assets returns the priced assets in lexical order.
func (b *Book) Assets() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.assets))
	copy(out, b.assets)
	return out
}

// Len returns the number of priced assets. A nil book has none.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.prices)
}

// Prices returns a copy of the mapping.
func (b *Book) Prices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, b.Len())
	if b == nil {
		return out
	}
	for asset, price := range b.prices {
		out[asset] = price
	}
	return out
}

// BuiltAt returns when Build produced the book, or the zero time for a nil
// book.
func (b *Book) BuiltAt() time.Time {
	if b == nil {
		return time.Time{}
	}
	return b.builtAt
}
