package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"cryptoagg/pkg/aggregator"
	"cryptoagg/pkg/api"
	"cryptoagg/pkg/coinbase"
	"cryptoagg/pkg/config"
	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/gemini"
	"cryptoagg/pkg/kraken"
	"cryptoagg/pkg/logger"
	"cryptoagg/pkg/registry"
	"cryptoagg/pkg/venue"
)

func main() {
	configFile := flag.String("c", "", "JSON config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(lg)
	slog.Info("config loaded", "config", cfg.String())

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store registry.Store = registry.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rs, err := registry.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		store = rs
		slog.Info("registry store", "backend", "redis", "addr", cfg.Redis.Addr)
	}

	fetcher := fetch.NewClient(cfg.FetchTimeout.Std()).WithRetries(cfg.FetchRetries, cfg.FetchRetryWait.Std())
	venues := []venue.Adapter{
		coinbase.New(fetcher, cfg.Venue.CoinbaseURL, lg),
		gemini.New(fetcher, cfg.Venue.GeminiURL, lg),
		kraken.New(fetcher, cfg.Venue.KrakenURL, lg),
	}

	agg := aggregator.New(venues, registry.New(store, cfg.RegistryTTL.Std(), lg), cfg.DiscoveryStrict, lg)
	server := api.NewServer(agg, api.Options{
		Addr:       cfg.HTTPAddr,
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow.Std(),
	}, lg)

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	if err := server.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("shutdown complete")
}
