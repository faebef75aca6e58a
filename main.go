package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"swapdesk/config"
	"swapdesk/conversion"
	"swapdesk/internal/metrics"
	"swapdesk/internal/quotes"
	"swapdesk/internal/server"
	"swapdesk/logger"
	"swapdesk/reader"
	"swapdesk/reader/binance"
	"swapdesk/reader/bybit"
	"swapdesk/reader/httpfeed"
	"swapdesk/reader/kucoin"
	"swapdesk/wallet"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	env := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service":     cfg.Swapdesk.Name,
		"version":     cfg.Swapdesk.Version,
		"environment": env,
		"feed":        cfg.Feed.Source,
	}).Info("starting swapdesk")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.StartReport(ctx, log, cfg.Logging.ReportInterval)

	metrics.Init()
	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	store := quotes.NewStore(newFeed(cfg.Feed), cfg.Feed.Source)

	session := conversion.NewSession(
		conversion.SimulatedSettler{Latency: cfg.Swap.SettlementLatency},
		cfg.Swap.ConfirmationWindow,
	)
	defer session.Close()
	form := conversion.NewForm(session, cfg.Swap.DefaultSource, cfg.Swap.DefaultDestination)

	var balances wallet.Source
	if path := cfg.Wallet.BalancesFile; path != "" {
		if _, err := os.Stat(path); err != nil {
			if config.IsProductionLike(env) {
				log.WithError(err).WithFields(logger.Fields{"path": path}).Error("balances file unavailable")
				os.Exit(1)
			}
			log.WithError(err).WithFields(logger.Fields{"path": path}).Warn("balances file unavailable; balance list will be empty")
			balances = wallet.Static{}
		} else {
			balances = wallet.NewFileSource(path)
		}
	}

	srv, err := server.NewServer(cfg.Server, server.Deps{
		Quotes:  store,
		Session: session,
		Form:    form,
		Wallet:  balances,
	}, log, server.WithPrometheus(cfg.Metrics.Prometheus))
	if err != nil {
		log.WithError(err).Error("failed to create server")
		os.Exit(1)
	}

	// One fetch at startup; a failed fetch leaves the desk unavailable until
	// a reload is requested.
	go func() {
		if err := store.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithComponent("main").WithError(err).Warn("initial price load failed")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run(ctx)
	}()

	log.WithFields(logger.Fields{"address": srv.Address()}).Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server stopped unexpectedly")
		}
		serverErr = nil
	}

	log.Info("starting graceful shutdown")
	cancel()

	if serverErr != nil {
		select {
		case err := <-serverErr:
			if err != nil {
				log.WithError(err).Warn("server shutdown returned an error")
			}
			log.Info("graceful shutdown completed")
		case <-time.After(cfg.Server.ShutdownTimeout + 5*time.Second):
			log.Warn("graceful shutdown timeout exceeded")
		}
	}

	log.Info("swapdesk stopped")
}

func newFeed(cfg config.FeedConfig) reader.PriceFeed {
	switch cfg.Source {
	case config.FeedSourceBinance:
		return binance.NewPriceReader(cfg)
	case config.FeedSourceBybit:
		return bybit.NewPriceReader(cfg)
	case config.FeedSourceKucoin:
		return kucoin.NewPriceReader(cfg)
	default:
		return httpfeed.NewReader(cfg)
	}
}
