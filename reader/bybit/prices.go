// Package bybit reads last traded prices from the Bybit v5 market tickers
// endpoint.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"

	"swapdesk/config"
	"swapdesk/logger"
	"swapdesk/models"
	"swapdesk/reader"
)

// PriceReader turns a category's tickers into price observations quoted in
// the configured quote asset.
type PriceReader struct {
	client   *bybit.Client
	category string
	quote    string
	symbols  []string
	log      *logger.Log
}

func NewPriceReader(cfg config.FeedConfig) *PriceReader {
	log := logger.GetLogger()

	base := cfg.Bybit.URL
	if parsed, err := url.Parse(cfg.Bybit.URL); err == nil && parsed.Host != "" {
		base = fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	}

	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(base))
	client.HTTPClient = reader.NewHTTPClient(cfg)

	log.WithComponent("bybit_feed").WithFields(logger.Fields{
		"url":         base,
		"category":    cfg.Bybit.Category,
		"quote_asset": cfg.Bybit.QuoteAsset,
		"timeout":     cfg.Timeout,
	}).Info("bybit price feed initialized")

	return &PriceReader{
		client:   client,
		category: cfg.Bybit.Category,
		quote:    cfg.Bybit.QuoteAsset,
		symbols:  cfg.Bybit.Symbols,
		log:      log,
	}
}

type tickerList struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

func (r *PriceReader) FetchPrices(ctx context.Context) ([]models.PriceObservation, error) {
	log := r.log.WithComponent("bybit_feed").WithFields(logger.Fields{"operation": "fetch_prices", "category": r.category})

	params := map[string]interface{}{"category": r.category}

	start := time.Now()
	resp, err := r.client.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit market tickers: %w", err)
	}
	logger.LogPerformanceEntry(log, "bybit_feed", "api_request", time.Since(start), nil)

	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit market tickers: %w: retCode %d %s", reader.ErrUnexpectedStatus, resp.RetCode, resp.RetMsg)
	}

	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal tickers: %w", err)
	}

	tickers, err := parseTickers(payload)
	if err != nil {
		return nil, err
	}

	observations, skipped := reader.TickerObservations(tickers, r.quote, r.symbols, time.Now().UTC())
	if skipped > 0 {
		log.WithFields(logger.Fields{"skipped": skipped}).Debug("skipped tickers outside the quote asset")
	}
	logger.LogDataFlowEntry(log, "bybit_api", "quotes", len(observations), "price_observations")
	return observations, nil
}

func parseTickers(payload []byte) ([]reader.Ticker, error) {
	var list tickerList
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("decode tickers: %w", err)
	}

	tickers := make([]reader.Ticker, 0, len(list.List))
	for _, item := range list.List {
		tickers = append(tickers, reader.Ticker{Symbol: item.Symbol, Price: item.LastPrice})
	}
	return tickers, nil
}
