package reader

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"swapdesk/config"
)

func TestBaseAsset(t *testing.T) {
	cases := []struct {
		symbol, quote, want string
		ok                  bool
	}{
		{"BTCUSDT", "USDT", "BTC", true},
		{"1000PEPEUSDT", "USDT", "1000PEPE", true},
		{"ETHUSDT_240927", "USDT", "", false},
		{"USDT", "USDT", "", false},
		{"ETHBTC", "USDT", "", false},
		{"ETHBTC", "", "", false},
	}
	for _, c := range cases {
		got, ok := BaseAsset(c.symbol, c.quote)
		if got != c.want || ok != c.ok {
			t.Errorf("BaseAsset(%q, %q) = %q, %v", c.symbol, c.quote, got, ok)
		}
	}
}

func TestTickerObservations(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tickerTime := at.Add(-time.Second)
	tickers := []Ticker{
		{Symbol: "BTCUSDT", Price: "42000.5", Time: tickerTime},
		{Symbol: "ETHUSDT", Price: "2300"},
		{Symbol: "ETHBTC", Price: "0.05"},
		{Symbol: "XRPUSDT", Price: "n/a"},
		{Symbol: "1000PEPEUSDT", Price: "0.0123"},
	}

	obs, skipped := TickerObservations(tickers, "usdt", nil, at)
	if skipped != 2 {
		t.Fatalf("skipped = %d, want 2", skipped)
	}
	if len(obs) != 4 {
		t.Fatalf("observations = %+v", obs)
	}
	if obs[0].Asset != "USDT" || !obs[0].Price.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("quote asset not reported at 1: %+v", obs[0])
	}
	if obs[1].Asset != "BTC" || !obs[1].ObservedAt.Equal(tickerTime) {
		t.Fatalf("unexpected BTC observation: %+v", obs[1])
	}
	if obs[2].Asset != "ETH" || !obs[2].ObservedAt.Equal(at) {
		t.Fatalf("unexpected ETH observation: %+v", obs[2])
	}

	if obs[3].Asset != "PEPE" || !obs[3].Price.Equal(decimal.RequireFromString("0.0000123")) {
		t.Fatalf("bundled contract not priced per unit: %+v", obs[3])
	}

	filtered, skipped := TickerObservations(tickers, "USDT", []string{"ethusdt"}, at)
	if len(filtered) != 2 || filtered[1].Asset != "ETH" || skipped != 4 {
		t.Fatalf("symbol filter not applied: %+v (skipped %d)", filtered, skipped)
	}
}

func TestCanonicalAsset(t *testing.T) {
	cases := []struct {
		base  string
		want  string
		units int64
	}{
		{"ETH", "ETH", 1},
		{"1000PEPE", "PEPE", 1000},
		{"1000BONK", "BONK", 1000},
		{"SHIB1000", "SHIB", 1000},
		{"1000000MOG", "MOG", 1000000},
		{"XBT", "BTC", 1},
		{"1000", "1000", 1},
		{"10000SATS", "10000SATS", 1},
	}
	for _, c := range cases {
		got, units := CanonicalAsset(c.base)
		if got != c.want || units != c.units {
			t.Errorf("CanonicalAsset(%q) = %q, %d; want %q, %d", c.base, got, units, c.want, c.units)
		}
	}
}

func TestNewHTTPClient(t *testing.T) {
	cfg := config.Default().Feed
	client := NewHTTPClient(cfg)
	if client.Timeout != cfg.Timeout {
		t.Fatalf("timeout = %s, want %s", client.Timeout, cfg.Timeout)
	}
}
