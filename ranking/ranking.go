// Package ranking turns raw wallet balances into the ordered, priced rows of
// a balance list.
package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"swapdesk/models"
	"swapdesk/pricebook"
)

// UnknownPriority is assigned to every blockchain missing from the table.
// Balances on such chains are never displayed.
const UnknownPriority = -99

var chainPriorities = map[string]int{
	"Osmosis":  100,
	"Ethereum": 50,
	"Arbitrum": 30,
	"Zilliqa":  20,
	"Neo":      20,
}

// PriorityOf returns the display priority of a blockchain. Names are matched
// exactly.
func PriorityOf(blockchain string) int {
	if p, ok := chainPriorities[blockchain]; ok {
		return p
	}
	return UnknownPriority
}

// Filter keeps balances on a known chain with a positive amount that is
// within the amount bounds.
func Filter(balances []models.Balance) []models.Balance {
	out := make([]models.Balance, 0, len(balances))
	for _, b := range balances {
		if PriorityOf(b.Blockchain) > UnknownPriority && b.Amount.IsPositive() && models.CheckAmount(b.Amount) == nil {
			out = append(out, b)
		}
	}
	return out
}

// Sort returns balances ordered by descending priority. Balances with equal
// priority keep their input order.
func Sort(balances []models.Balance) []models.Balance {
	out := make([]models.Balance, len(balances))
	copy(out, balances)
	sort.SliceStable(out, func(i, j int) bool {
		return PriorityOf(out[i].Blockchain) > PriorityOf(out[j].Blockchain)
	})
	return out
}

// Format renders b for display. The amount is truncated to an integer and
// the USD value is left null when book has no price for the currency. An
// amount outside the amount bounds is left unformatted and unpriced.
func Format(b models.Balance, book pricebook.Lookuper) models.RankedBalance {
	rb := models.RankedBalance{
		Balance:  b,
		Priority: PriorityOf(b.Blockchain),
	}
	if models.CheckAmount(b.Amount) != nil {
		return rb
	}
	rb.FormattedAmount = b.Amount.Truncate(0).String()
	if book != nil {
		if price, ok := book.Lookup(b.Currency); ok {
			rb.USDValue = decimal.NewNullDecimal(price.Mul(b.Amount))
		}
	}
	return rb
}

// Rank filters, sorts and formats balances in one pass.
func Rank(balances []models.Balance, book pricebook.Lookuper) []models.RankedBalance {
	sorted := Sort(Filter(balances))
	out := make([]models.RankedBalance, 0, len(sorted))
	for _, b := range sorted {
		out = append(out, Format(b, book))
	}
	return out
}
