// Package aggregator prices an asset across every venue that lists it, collects
// recent trades per venue and looks up account balances.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cryptoagg/pkg/market"
	"cryptoagg/pkg/registry"
	"cryptoagg/pkg/venue"
)

var ErrUnknownVenue = errors.New("unknown venue")

// Supported pairs a venue with its native id for one asset.
type Supported struct {
	Venue venue.Adapter
	Pair  string
}

type Aggregator struct {
	venues   []venue.Adapter
	registry *registry.Registry
	strict   bool
	log      *slog.Logger
}

// New keeps venues in the given order; merged books break price ties in that order.
// With strict unset, venues whose listing cannot be fetched are skipped instead of
// failing discovery.
func New(venues []venue.Adapter, reg *registry.Registry, strict bool, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = registry.New(nil, 0, log)
	}
	return &Aggregator{venues: venues, registry: reg, strict: strict, log: log}
}

func (a *Aggregator) Venues() []string {
	names := make([]string, len(a.venues))
	for i, v := range a.venues {
		names[i] = v.Name()
	}
	return names
}

// SupportedVenues resolves asset on every venue, in venue order.
func (a *Aggregator) SupportedVenues(ctx context.Context, asset market.Asset) ([]Supported, error) {
	type resolved struct {
		pair string
		ok   bool
		err  error
	}
	results := make([]resolved, len(a.venues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(a.venues))
	for i, v := range a.venues {
		g.Go(func() error {
			pair, ok, err := a.registry.Resolve(gctx, v, asset)
			results[i] = resolved{pair: pair, ok: ok, err: err}
			if a.strict {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	supported := make([]Supported, 0, len(a.venues))
	for i, r := range results {
		if r.err != nil {
			a.log.Warn("venue dropped from discovery", "venue", a.venues[i].Name(), "asset", asset, "error", r.err)
			continue
		}
		if r.ok {
			supported = append(supported, Supported{Venue: a.venues[i], Pair: r.pair})
		}
	}
	return supported, nil
}

// books fetches every supported venue's book concurrently; books[i] belongs to
// supported[i].
func (a *Aggregator) books(ctx context.Context, supported []Supported) ([]market.Book, error) {
	books := make([]market.Book, len(supported))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(supported))
	for i, s := range supported {
		g.Go(func() error {
			book, err := s.Venue.Book(gctx, s.Pair)
			if err != nil {
				if !market.IsKind(err, market.KindFetchPrices) {
					err = market.FetchPricesError(s.Venue.Name(), err)
				}
				return err
			}
			books[i] = book
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return books, nil
}

// ConsolidatedPrice merges all venues' asks and bids and fills quantity once per side.
func (a *Aggregator) ConsolidatedPrice(ctx context.Context, asset market.Asset, quantity decimal.Decimal) (market.Quote, error) {
	supported, err := a.SupportedVenues(ctx, asset)
	if err != nil {
		return market.Quote{}, err
	}
	books, err := a.books(ctx, supported)
	if err != nil {
		return market.Quote{}, err
	}

	asks := make([][]market.Level, len(books))
	bids := make([][]market.Level, len(books))
	for i, b := range books {
		asks[i] = b.Asks
		bids[i] = b.Bids
	}

	q := quote(asset, quantity, market.MergeAsks(asks...), market.MergeBids(bids...))
	a.warnPartial("consolidated", q)
	return q, nil
}

// PerVenuePrice fills quantity inside each venue's own book. Every configured venue
// has an entry; venues that do not list asset get nil prices.
func (a *Aggregator) PerVenuePrice(ctx context.Context, asset market.Asset, quantity decimal.Decimal) (map[string]market.Quote, error) {
	supported, err := a.SupportedVenues(ctx, asset)
	if err != nil {
		return nil, err
	}
	books, err := a.books(ctx, supported)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]market.Quote, len(a.venues))
	for _, v := range a.venues {
		quotes[v.Name()] = market.Quote{Asset: asset, Quantity: quantity}
	}
	for i, s := range supported {
		q := quote(asset, quantity, books[i].Asks, books[i].Bids)
		a.warnPartial(s.Venue.Name(), q)
		quotes[s.Venue.Name()] = q
	}
	return quotes, nil
}

// Trades returns each supported venue's recent trades in the venue's own order.
func (a *Aggregator) Trades(ctx context.Context, asset market.Asset, limit int) (map[string][]market.Trade, error) {
	supported, err := a.SupportedVenues(ctx, asset)
	if err != nil {
		return nil, err
	}

	trades := make([][]market.Trade, len(supported))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(supported))
	for i, s := range supported {
		g.Go(func() error {
			t, err := s.Venue.Trades(gctx, s.Pair, limit)
			if err != nil {
				if !market.IsKind(err, market.KindFetchTrades) {
					err = market.FetchTradesError(s.Venue.Name(), err)
				}
				return err
			}
			trades[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]market.Trade, len(supported))
	for i, s := range supported {
		out[s.Venue.Name()] = trades[i]
	}
	return out, nil
}

// Balances queries one venue's account. Credentials are checked by the venue.
func (a *Aggregator) Balances(ctx context.Context, venueName string) ([]market.Balance, error) {
	for _, v := range a.venues {
		if v.Name() != venueName {
			continue
		}
		src, ok := v.(venue.BalanceSource)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no balance endpoint", ErrUnknownVenue, venueName)
		}
		return src.Balances(ctx)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, venueName)
}

func quote(asset market.Asset, quantity decimal.Decimal, asks, bids []market.Level) market.Quote {
	q := market.Quote{Asset: asset, Quantity: quantity}
	if len(asks) > 0 {
		buy := market.Fill(asks, quantity)
		q.BuyingPrice = &buy.Cost
		q.BuyFilled = buy.Filled
	}
	if len(bids) > 0 {
		sell := market.Fill(bids, quantity)
		q.SellingPrice = &sell.Cost
		q.SellFilled = sell.Filled
	}
	return q
}

func (a *Aggregator) warnPartial(scope string, q market.Quote) {
	if q.BuyingPrice != nil && q.BuyFilled.LessThan(q.Quantity) {
		a.log.Warn("ask depth short of quantity", "scope", scope, "asset", q.Asset, "quantity", q.Quantity, "filled", q.BuyFilled)
	}
	if q.SellingPrice != nil && q.SellFilled.LessThan(q.Quantity) {
		a.log.Warn("bid depth short of quantity", "scope", scope, "asset", q.Asset, "quantity", q.Quantity, "filled", q.SellFilled)
	}
}
