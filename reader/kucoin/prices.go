// Package kucoin reads last traded prices from the KuCoin futures tickers
// endpoint.
package kucoin

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	api "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/api"
	futuresmarket "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/generate/futures/market"
	sdktype "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/types"

	"swapdesk/config"
	"swapdesk/logger"
	"swapdesk/models"
	"swapdesk/reader"
)

// perpetualSuffix marks KuCoin linear perpetual contracts, as in XBTUSDTM.
const perpetualSuffix = "M"

// PriceReader turns the futures ticker list into price observations quoted
// in the configured quote asset.
type PriceReader struct {
	marketAPI futuresmarket.MarketAPI
	quote     string
	symbols   map[string]struct{}
	log       *logger.Log
}

func NewPriceReader(cfg config.FeedConfig) *PriceReader {
	log := logger.GetLogger()

	base := cfg.Kucoin.URL
	if parsed, err := url.Parse(cfg.Kucoin.URL); err == nil && parsed.Host != "" {
		base = fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	}

	transportOpt := sdktype.NewTransportOptionBuilder().
		SetMaxIdleConns(cfg.ConnectionPool.MaxIdleConns).
		SetMaxIdleConnsPerHost(cfg.ConnectionPool.MaxIdleConns).
		SetMaxConnsPerHost(cfg.ConnectionPool.MaxConnsPerHost).
		SetIdleConnTimeout(cfg.ConnectionPool.IdleConnTimeout).
		SetTimeout(cfg.Timeout).
		Build()

	option := sdktype.NewClientOptionBuilder().
		WithFuturesEndpoint(base).
		WithTransportOption(transportOpt).
		Build()

	client := api.NewClient(option)

	symbols := make(map[string]struct{}, len(cfg.Kucoin.Symbols))
	for _, s := range cfg.Kucoin.Symbols {
		symbols[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}

	log.WithComponent("kucoin_feed").WithFields(logger.Fields{
		"url":         base,
		"quote_asset": cfg.Kucoin.QuoteAsset,
		"symbols":     cfg.Kucoin.Symbols,
	}).Info("kucoin price feed initialized")

	return &PriceReader{
		marketAPI: client.RestService().GetFuturesService().GetMarketAPI(),
		quote:     strings.ToUpper(cfg.Kucoin.QuoteAsset),
		symbols:   symbols,
		log:       log,
	}
}

func (r *PriceReader) FetchPrices(ctx context.Context) ([]models.PriceObservation, error) {
	log := r.log.WithComponent("kucoin_feed").WithFields(logger.Fields{"operation": "fetch_prices"})

	start := time.Now()
	resp, err := r.marketAPI.GetAllTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("kucoin all tickers: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("kucoin all tickers: %w: empty response", reader.ErrUnexpectedStatus)
	}
	logger.LogPerformanceEntry(log, "kucoin_feed", "api_request", time.Since(start), logger.Fields{"tickers": len(resp.Data)})

	tickers, filtered := r.tickers(resp.Data)

	observations, skipped := reader.TickerObservations(tickers, r.quote, nil, time.Now().UTC())
	if skipped+filtered > 0 {
		log.WithFields(logger.Fields{"skipped": skipped + filtered}).Debug("skipped tickers outside the quote asset")
	}
	logger.LogDataFlowEntry(log, "kucoin_api", "quotes", len(observations), "price_observations")
	return observations, nil
}

// tickers keeps the configured contracts and renames perpetuals to the
// spot style symbol the shared converter expects. Ticker times are in
// nanoseconds.
func (r *PriceReader) tickers(data []futuresmarket.GetAllTickersData) ([]reader.Ticker, int) {
	out := make([]reader.Ticker, 0, len(data))
	filtered := 0
	for _, d := range data {
		symbol := strings.ToUpper(d.Symbol)
		if len(r.symbols) > 0 {
			if _, ok := r.symbols[symbol]; !ok {
				filtered++
				continue
			}
		}
		t := reader.Ticker{Symbol: contractSymbol(symbol, r.quote), Price: d.Price}
		if d.Ts > 0 {
			t.Time = time.Unix(0, d.Ts).UTC()
		}
		out = append(out, t)
	}
	return out, filtered
}

// contractSymbol maps XBTUSDTM to XBTUSDT when quote is USDT. Other symbols
// are returned unchanged.
func contractSymbol(symbol, quote string) string {
	if quote != "" && strings.HasSuffix(symbol, quote+perpetualSuffix) {
		return strings.TrimSuffix(symbol, perpetualSuffix)
	}
	return symbol
}
