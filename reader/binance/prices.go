// Package binance reads last traded prices from the Binance USDⓈ-M futures
// ticker endpoint.
package binance

import (
	"context"
	"fmt"
	"net/url"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"

	"swapdesk/config"
	"swapdesk/logger"
	"swapdesk/models"
	"swapdesk/reader"
)

// PriceReader turns the futures ticker list into price observations quoted
// in the configured quote asset.
type PriceReader struct {
	client  *futures.Client
	quote   string
	symbols []string
	log     *logger.Log
}

func NewPriceReader(cfg config.FeedConfig) *PriceReader {
	log := logger.GetLogger()

	client := futures.NewClient("", "")
	client.HTTPClient = reader.NewHTTPClient(cfg)
	if parsed, err := url.Parse(cfg.Binance.URL); err == nil && parsed.Host != "" {
		client.SetApiEndpoint(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host))
	}

	log.WithComponent("binance_feed").WithFields(logger.Fields{
		"url":                cfg.Binance.URL,
		"quote_asset":        cfg.Binance.QuoteAsset,
		"symbols":            cfg.Binance.Symbols,
		"max_idle_conns":     cfg.ConnectionPool.MaxIdleConns,
		"max_conns_per_host": cfg.ConnectionPool.MaxConnsPerHost,
	}).Info("binance price feed initialized")

	return &PriceReader{
		client:  client,
		quote:   cfg.Binance.QuoteAsset,
		symbols: cfg.Binance.Symbols,
		log:     log,
	}
}

func (r *PriceReader) FetchPrices(ctx context.Context) ([]models.PriceObservation, error) {
	log := r.log.WithComponent("binance_feed").WithFields(logger.Fields{"operation": "fetch_prices"})

	start := time.Now()
	prices, err := r.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance list prices: %w", err)
	}
	logger.LogPerformanceEntry(log, "binance_feed", "api_request", time.Since(start), logger.Fields{"tickers": len(prices)})

	tickers := make([]reader.Ticker, 0, len(prices))
	for _, p := range prices {
		if p == nil {
			continue
		}
		// the price ticker carries no timestamp; observations use the fetch time
		tickers = append(tickers, reader.Ticker{Symbol: p.Symbol, Price: p.Price})
	}

	observations, skipped := reader.TickerObservations(tickers, r.quote, r.symbols, time.Now().UTC())
	if skipped > 0 {
		log.WithFields(logger.Fields{"skipped": skipped}).Debug("skipped tickers outside the quote asset")
	}
	logger.LogDataFlowEntry(log, "binance_api", "quotes", len(observations), "price_observations")
	return observations, nil
}
