// Package httpfeed reads price observations from a JSON document served over
// HTTP, such as https://interview.switcheo.com/prices.json.
package httpfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"swapdesk/config"
	"swapdesk/logger"
	"swapdesk/models"
	"swapdesk/reader"
)

const maxBodyBytes = 8 << 20

// Reader fetches the whole feed on every call. Calls are throttled so that
// repeated reloads cannot hammer the origin.
type Reader struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

func NewReader(cfg config.FeedConfig) *Reader {
	log := logger.GetLogger()

	r := &Reader{
		url:     cfg.HTTP.URL,
		client:  reader.NewHTTPClient(cfg),
		limiter: rate.NewLimiter(rate.Limit(cfg.HTTP.RequestsPerSecond), cfg.HTTP.BurstSize),
		log:     log,
	}

	log.WithComponent("http_feed").WithFields(logger.Fields{
		"url":                 cfg.HTTP.URL,
		"requests_per_second": cfg.HTTP.RequestsPerSecond,
		"burst_size":          cfg.HTTP.BurstSize,
		"timeout":             cfg.Timeout,
	}).Info("http price feed initialized")

	return r
}

func (r *Reader) FetchPrices(ctx context.Context) ([]models.PriceObservation, error) {
	log := r.log.WithComponent("http_feed").WithFields(logger.Fields{"url": r.url, "operation": "fetch_prices"})

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("fetch prices: %w: %d", reader.ErrUnexpectedStatus, resp.StatusCode)
	}

	var observations []models.PriceObservation
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&observations); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	logger.LogPerformanceEntry(log, "http_feed", "api_request", time.Since(start), logger.Fields{"status": resp.StatusCode})
	logger.LogDataFlowEntry(log, "price_feed", "quotes", len(observations), "price_observations")
	return observations, nil
}
