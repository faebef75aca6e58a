package kucoin

import (
	"testing"
	"time"

	futuresmarket "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/generate/futures/market"

	"swapdesk/config"
	"swapdesk/reader"
)

func TestContractSymbol(t *testing.T) {
	cases := map[string]string{
		"XBTUSDTM": "XBTUSDT",
		"ETHUSDTM": "ETHUSDT",
		"XBTUSDM":  "XBTUSDM",
		"ETHUSDCM": "ETHUSDCM",
		"ATOMUSDT": "ATOMUSDT",
		"XBTMZ25":  "XBTMZ25",
	}
	for in, want := range cases {
		if got := contractSymbol(in, "USDT"); got != want {
			t.Errorf("contractSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTickersToObservations(t *testing.T) {
	cfg := config.Default().Feed
	cfg.Kucoin.Symbols = []string{"xbtusdtm", "ETHUSDTM", "1000PEPEUSDTM"}
	r := NewPriceReader(cfg)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	data := []futuresmarket.GetAllTickersData{
		{Symbol: "XBTUSDTM", Price: "64999.9", Ts: ts.UnixNano()},
		{Symbol: "ETHUSDTM", Price: "3201.5"},
		{Symbol: "1000PEPEUSDTM", Price: "0.012"},
		{Symbol: "SOLUSDTM", Price: "150.2"},
	}

	tickers, filtered := r.tickers(data)
	if filtered != 1 || len(tickers) != 3 {
		t.Fatalf("unexpected tickers: %+v (filtered %d)", tickers, filtered)
	}
	if tickers[0].Symbol != "XBTUSDT" || !tickers[0].Time.Equal(ts) {
		t.Fatalf("unexpected first ticker: %+v", tickers[0])
	}
	if !tickers[1].Time.IsZero() {
		t.Fatalf("ticker without ts should carry no time: %+v", tickers[1])
	}

	at := time.Now().UTC()
	obs, skipped := reader.TickerObservations(tickers, r.quote, nil, at)
	if skipped != 0 || len(obs) != 4 {
		t.Fatalf("unexpected observations: %+v (skipped %d)", obs, skipped)
	}
	if obs[1].Asset != "BTC" || !obs[1].ObservedAt.Equal(ts) {
		t.Fatalf("XBT should be reported as BTC at the ticker time: %+v", obs[1])
	}
	if !obs[2].ObservedAt.Equal(at) {
		t.Fatalf("ticker without ts should use the fetch time: %+v", obs[2])
	}
	if obs[3].Asset != "PEPE" || obs[3].Price.String() != "0.000012" {
		t.Fatalf("unexpected scaled observation: %+v", obs[3])
	}
}

func TestNewPriceReader(t *testing.T) {
	cfg := config.Default().Feed
	cfg.Kucoin.URL = "https://api-futures.kucoin.com/api/v1/allTickers"
	cfg.Kucoin.QuoteAsset = "usdt"

	r := NewPriceReader(cfg)
	if r == nil || r.marketAPI == nil {
		t.Fatal("NewPriceReader returned nil")
	}
	if r.quote != "USDT" || len(r.symbols) != 0 {
		t.Fatalf("unexpected reader settings: %+v", r)
	}
}
