package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FeedSourceHTTP    = "http"
	FeedSourceBinance = "binance"
	FeedSourceBybit   = "bybit"
	FeedSourceKucoin  = "kucoin"
)

type Config struct {
	Swapdesk SwapdeskConfig `yaml:"swapdesk"`
	Feed     FeedConfig     `yaml:"feed"`
	Swap     SwapConfig     `yaml:"swap"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type SwapdeskConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// FeedConfig selects where price observations come from. Only the section
// matching Source is read.
type FeedConfig struct {
	Source         string               `yaml:"source"`
	Timeout        time.Duration        `yaml:"timeout"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	HTTP           HTTPFeedConfig       `yaml:"http"`
	Binance        ExchangeFeedConfig   `yaml:"binance"`
	Bybit          ExchangeFeedConfig   `yaml:"bybit"`
	Kucoin         ExchangeFeedConfig   `yaml:"kucoin"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type HTTPFeedConfig struct {
	URL               string  `yaml:"url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// ExchangeFeedConfig describes a ticker based feed. Tickers quoted in
// QuoteAsset are reported as prices of their base asset.
type ExchangeFeedConfig struct {
	URL        string   `yaml:"url"`
	Category   string   `yaml:"category"`
	QuoteAsset string   `yaml:"quote_asset"`
	Symbols    []string `yaml:"symbols"`
}

type SwapConfig struct {
	DefaultSource      string        `yaml:"default_source"`
	DefaultDestination string        `yaml:"default_destination"`
	SettlementLatency  time.Duration `yaml:"settlement_latency"`
	ConfirmationWindow time.Duration `yaml:"confirmation_window"`
}

type WalletConfig struct {
	BalancesFile string `yaml:"balances_file"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type MetricsConfig struct {
	Prometheus bool             `yaml:"prometheus"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
	// ReportInterval enables the periodic runtime report when positive.
	ReportInterval time.Duration `yaml:"report_interval"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Swapdesk: SwapdeskConfig{Name: "swapdesk", Version: "dev"},
		Feed: FeedConfig{
			Source:  FeedSourceHTTP,
			Timeout: 10 * time.Second,
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:    4,
				MaxConnsPerHost: 4,
				IdleConnTimeout: 90 * time.Second,
			},
			HTTP: HTTPFeedConfig{
				URL:               "https://interview.switcheo.com/prices.json",
				RequestsPerSecond: 1,
				BurstSize:         1,
			},
			Binance: ExchangeFeedConfig{URL: "https://fapi.binance.com", QuoteAsset: "USDT"},
			Bybit:   ExchangeFeedConfig{URL: "https://api.bybit.com", Category: "spot", QuoteAsset: "USDT"},
			Kucoin:  ExchangeFeedConfig{URL: "https://api-futures.kucoin.com", QuoteAsset: "USDT"},
		},
		Swap: SwapConfig{
			DefaultSource:      "USD",
			DefaultDestination: "ETH",
			SettlementLatency:  1500 * time.Millisecond,
			ConfirmationWindow: 3 * time.Second,
		},
		Server: ServerConfig{
			Address:         ":8080",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Prometheus: true,
			CloudWatch: CloudWatchConfig{Namespace: "Swapdesk"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FEED_SOURCE"); v != "" {
		cfg.Feed.Source = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("PRICE_FEED_URL"); v != "" {
		cfg.Feed.HTTP.URL = strings.TrimSpace(v)
	}
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = strings.TrimSpace(v)
	}
	if v := os.Getenv("WALLET_BALANCES_FILE"); v != "" {
		cfg.Wallet.BalancesFile = strings.TrimSpace(v)
	}
	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Region == "" {
		cfg.Metrics.CloudWatch.Region = strings.TrimSpace(os.Getenv("AWS_REGION"))
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Swapdesk.Name == "" {
		return fmt.Errorf("swapdesk.name is required")
	}

	switch cfg.Feed.Source {
	case FeedSourceHTTP:
		if !isHTTPURL(cfg.Feed.HTTP.URL) {
			return fmt.Errorf("feed.http.url '%s' is not a valid http(s) url", cfg.Feed.HTTP.URL)
		}
		if cfg.Feed.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("feed.http.requests_per_second must be greater than 0")
		}
		if cfg.Feed.HTTP.BurstSize <= 0 {
			return fmt.Errorf("feed.http.burst_size must be greater than 0")
		}
	case FeedSourceBinance:
		if err := validateExchangeFeed("feed.binance", cfg.Feed.Binance); err != nil {
			return err
		}
	case FeedSourceBybit:
		if err := validateExchangeFeed("feed.bybit", cfg.Feed.Bybit); err != nil {
			return err
		}
		if cfg.Feed.Bybit.Category == "" {
			return fmt.Errorf("feed.bybit.category is required")
		}
	case FeedSourceKucoin:
		if err := validateExchangeFeed("feed.kucoin", cfg.Feed.Kucoin); err != nil {
			return err
		}
	default:
		return fmt.Errorf("feed.source '%s' is not supported", cfg.Feed.Source)
	}

	if cfg.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be greater than 0")
	}

	if cfg.Swap.SettlementLatency < 0 {
		return fmt.Errorf("swap.settlement_latency must not be negative")
	}
	if cfg.Swap.ConfirmationWindow <= 0 {
		return fmt.Errorf("swap.confirmation_window must be greater than 0")
	}

	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("metrics.cloudwatch.namespace is required when CloudWatch is enabled")
	}

	return nil
}

func validateExchangeFeed(key string, feed ExchangeFeedConfig) error {
	if !isHTTPURL(feed.URL) {
		return fmt.Errorf("%s.url '%s' is not a valid http(s) url", key, feed.URL)
	}
	if feed.QuoteAsset == "" {
		return fmt.Errorf("%s.quote_asset is required", key)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
