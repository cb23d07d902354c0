// Package api exposes the aggregator over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"cryptoagg/pkg/market"
)

type Service interface {
	ConsolidatedPrice(ctx context.Context, asset market.Asset, quantity decimal.Decimal) (market.Quote, error)
	PerVenuePrice(ctx context.Context, asset market.Asset, quantity decimal.Decimal) (map[string]market.Quote, error)
	Trades(ctx context.Context, asset market.Asset, limit int) (map[string][]market.Trade, error)
	Balances(ctx context.Context, venue string) ([]market.Balance, error)
	Venues() []string
}

type Options struct {
	Addr       string
	RateLimit  int
	RateWindow time.Duration
}

type Server struct {
	svc     Service
	limiter *limiter
	log     *slog.Logger
	server  *http.Server
}

func NewServer(svc Service, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		svc:     svc,
		limiter: newLimiter(opts.RateLimit, opts.RateWindow),
		log:     log,
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /prices/{crypto}", s.limited(s.handlePrices))
	mux.Handle("GET /trades/{crypto}", s.limited(s.handleTrades))
	mux.Handle("GET /balances", s.limited(s.handleBalances))
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.logged(mux)
}

// Start blocks until the server stops. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
