// Package reader defines the price feed consumed by the quotes store and the
// helpers shared by the concrete feeds in its subpackages.
package reader

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"swapdesk/config"
	"swapdesk/models"
)

// PriceFeed produces one batch of price observations per call.
type PriceFeed interface {
	FetchPrices(ctx context.Context) ([]models.PriceObservation, error)
}

// ErrUnexpectedStatus is wrapped by feeds that got a non-success response.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// NewHTTPClient builds the pooled client used by every feed.
func NewHTTPClient(cfg config.FeedConfig) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.ConnectionPool.IdleConnTimeout,
	}
	return &http.Client{Transport: transport, Timeout: cfg.Timeout}
}

// Ticker is a last traded price for an exchange symbol such as BTCUSDT.
type Ticker struct {
	Symbol string
	Price  string
	Time   time.Time
}

// TickerObservations converts tickers quoted in quote into observations of
// their base asset, priced per single unit (see CanonicalAsset). The quote
// asset itself is reported at 1. Tickers in other
// quotes, outside of symbols (when non-empty) or with unparsable prices are
// skipped and counted.
func TickerObservations(tickers []Ticker, quote string, symbols []string, at time.Time) ([]models.PriceObservation, int) {
	allowed := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		allowed[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	quote = strings.ToUpper(quote)

	out := make([]models.PriceObservation, 0, len(tickers)+1)
	out = append(out, models.PriceObservation{Asset: quote, ObservedAt: at, Price: decimal.NewFromInt(1)})

	skipped := 0
	for _, t := range tickers {
		symbol := strings.ToUpper(t.Symbol)
		if len(allowed) > 0 {
			if _, ok := allowed[symbol]; !ok {
				skipped++
				continue
			}
		}
		base, ok := BaseAsset(symbol, quote)
		if !ok {
			skipped++
			continue
		}
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			skipped++
			continue
		}
		asset, units := CanonicalAsset(base)
		if units > 1 {
			price = price.Div(decimal.NewFromInt(units))
		}
		observedAt := t.Time
		if observedAt.IsZero() {
			observedAt = at
		}
		out = append(out, models.PriceObservation{Asset: asset, ObservedAt: observedAt, Price: price})
	}
	return out, skipped
}

// BaseAsset strips quote from the end of symbol.
func BaseAsset(symbol, quote string) (string, bool) {
	if quote == "" || !strings.HasSuffix(symbol, quote) {
		return "", false
	}
	base := strings.TrimSuffix(symbol, quote)
	if base == "" {
		return "", false
	}
	return base, true
}
