package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// writeTempConfig writes content to a temporary YAML file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

const minimalConfig = `swapdesk:
  name: "TestDesk"
  version: "1.0"
feed:
  source: http
  timeout: 2s
  http:
    url: "http://127.0.0.1:9999/prices.json"
    requests_per_second: 2
    burst_size: 1
swap:
  settlement_latency: 10ms
  confirmation_window: 50ms
server:
  address: ":0"
`

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Swapdesk.Name != "TestDesk" {
		t.Errorf("unexpected name: %s", cfg.Swapdesk.Name)
	}
	if cfg.Feed.Timeout != 2*time.Second {
		t.Errorf("unexpected feed timeout: %s", cfg.Feed.Timeout)
	}
	if cfg.Swap.SettlementLatency != 10*time.Millisecond {
		t.Errorf("unexpected settlement latency: %s", cfg.Swap.SettlementLatency)
	}
	// untouched keys keep their defaults
	if cfg.Swap.DefaultSource != "USD" || cfg.Swap.DefaultDestination != "ETH" {
		t.Errorf("unexpected default pair: %s -> %s", cfg.Swap.DefaultSource, cfg.Swap.DefaultDestination)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging format: %s", cfg.Logging.Format)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PRICE_FEED_URL", "https://prices.example.com/latest.json")
	t.Setenv("SERVER_ADDRESS", "127.0.0.1:9000")
	t.Setenv("WALLET_BALANCES_FILE", "/tmp/balances.yml")
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Feed.HTTP.URL != "https://prices.example.com/latest.json" {
		t.Errorf("feed url not overridden: %s", cfg.Feed.HTTP.URL)
	}
	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Errorf("server address not overridden: %s", cfg.Server.Address)
	}
	if cfg.Wallet.BalancesFile != "/tmp/balances.yml" {
		t.Errorf("balances file not overridden: %s", cfg.Wallet.BalancesFile)
	}
}

func TestLoadConfigCloudWatchRegionFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("AWS_REGION", "eu-west-1")
	path := writeTempConfig(t, minimalConfig+`metrics:
  cloudwatch:
    enabled: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Metrics.CloudWatch.Region != "eu-west-1" {
		t.Errorf("unexpected region: %s", cfg.Metrics.CloudWatch.Region)
	}
	if cfg.Metrics.CloudWatch.Namespace != "Swapdesk" {
		t.Errorf("unexpected namespace: %s", cfg.Metrics.CloudWatch.Namespace)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if _, err := LoadConfig("does-not-exist.yml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown source", func(c *Config) { c.Feed.Source = "kraken" }, "feed.source"},
		{"bad url", func(c *Config) { c.Feed.HTTP.URL = "ftp://example.com" }, "feed.http.url"},
		{"zero rate", func(c *Config) { c.Feed.HTTP.RequestsPerSecond = 0 }, "requests_per_second"},
		{"binance quote", func(c *Config) {
			c.Feed.Source = FeedSourceBinance
			c.Feed.Binance.QuoteAsset = ""
		}, "feed.binance.quote_asset"},
		{"bybit category", func(c *Config) {
			c.Feed.Source = FeedSourceBybit
			c.Feed.Bybit.Category = ""
		}, "feed.bybit.category"},
		{"kucoin url", func(c *Config) {
			c.Feed.Source = FeedSourceKucoin
			c.Feed.Kucoin.URL = "api-futures.kucoin.com"
		}, "feed.kucoin.url"},
		{"confirmation window", func(c *Config) { c.Swap.ConfirmationWindow = 0 }, "confirmation_window"},
		{"server address", func(c *Config) { c.Server.Address = "" }, "server.address"},
		{"cloudwatch namespace", func(c *Config) {
			c.Metrics.CloudWatch.Enabled = true
			c.Metrics.CloudWatch.Namespace = ""
		}, "namespace"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(&cfg)
			err := validateConfig(&cfg)
			if c.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), c.errMsg) {
				t.Fatalf("expected error containing %q, got %v", c.errMsg, err)
			}
		})
	}
}

func TestResolveEnvSpecificPath(t *testing.T) {
	paths := map[string]string{EnvironmentProduction: "config/config.production.yml"}

	t.Setenv("APP_ENV", "prod")
	if got := resolveEnvSpecificPath("", DefaultConfigPath, paths); got != "config/config.production.yml" {
		t.Errorf("production path = %s", got)
	}
	if got := resolveEnvSpecificPath("custom.yml", DefaultConfigPath, paths); got != "custom.yml" {
		t.Errorf("explicit path overridden: %s", got)
	}

	t.Setenv("APP_ENV", "")
	if got := resolveEnvSpecificPath("", DefaultConfigPath, paths); got != DefaultConfigPath {
		t.Errorf("development path = %s", got)
	}
	if AppEnvironment() != EnvironmentDevelopment {
		t.Errorf("unexpected environment: %s", AppEnvironment())
	}
}
