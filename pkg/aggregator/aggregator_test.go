package aggregator

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cryptoagg/pkg/market"
	"cryptoagg/pkg/registry"
	"cryptoagg/pkg/venue"
)

type fakeVenue struct {
	name     string
	pairs    map[market.Asset]string
	listErr  error
	book     market.Book
	bookErr  error
	trades   []market.Trade
	balances []market.Balance
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) ListAssets(context.Context) (map[market.Asset]string, error) {
	if f.listErr != nil {
		return nil, market.FetchAssetsError(f.name, f.listErr)
	}
	return f.pairs, nil
}

func (f *fakeVenue) Book(context.Context, string) (market.Book, error) {
	if f.bookErr != nil {
		return market.Book{}, f.bookErr
	}
	return f.book, nil
}

func (f *fakeVenue) BidPrice(ctx context.Context, pair string) ([]market.Level, error) {
	b, err := f.Book(ctx, pair)
	return b.Bids, err
}

func (f *fakeVenue) AskPrice(ctx context.Context, pair string) ([]market.Level, error) {
	b, err := f.Book(ctx, pair)
	return b.Asks, err
}

func (f *fakeVenue) Trades(_ context.Context, _ string, limit int) ([]market.Trade, error) {
	if limit < len(f.trades) {
		return f.trades[:limit], nil
	}
	return f.trades, nil
}

func (f *fakeVenue) Balances(context.Context) ([]market.Balance, error) {
	return f.balances, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lvl(price, amount string) market.Level {
	return market.Level{Price: d(price), Amount: d(amount)}
}

func newAgg(strict bool, venues ...*fakeVenue) *Aggregator {
	adapters := make([]venue.Adapter, len(venues))
	for i, v := range venues {
		adapters[i] = v
	}
	return New(adapters, registry.New(nil, 0, nil), strict, nil)
}

func TestConsolidatedMergesVenues(t *testing.T) {
	a := newAgg(true,
		&fakeVenue{name: "a", pairs: map[market.Asset]string{market.BTC: "BTC-USD"},
			book: market.Book{Asks: []market.Level{lvl("100", "1")}, Bids: []market.Level{lvl("98", "1")}}},
		&fakeVenue{name: "b", pairs: map[market.Asset]string{market.BTC: "BTCUSD"},
			book: market.Book{Asks: []market.Level{lvl("99", "1")}, Bids: []market.Level{lvl("97", "2")}}},
	)

	q, err := a.ConsolidatedPrice(context.Background(), market.BTC, d("1"))
	if err != nil {
		t.Fatal(err)
	}
	if q.BuyingPrice == nil || !q.BuyingPrice.Equal(d("99")) {
		t.Fatalf("buying = %v, want 99", q.BuyingPrice)
	}
	if q.SellingPrice == nil || !q.SellingPrice.Equal(d("98")) {
		t.Fatalf("selling = %v, want 98", q.SellingPrice)
	}
	if !q.Complete() {
		t.Fatalf("quote should be complete: %+v", q)
	}

	q, err = a.ConsolidatedPrice(context.Background(), market.BTC, d("2.5"))
	if err != nil {
		t.Fatal(err)
	}
	// asks hold only 2 units: 99 + 100
	if !q.BuyingPrice.Equal(d("199")) || !q.BuyFilled.Equal(d("2")) || q.Complete() {
		t.Fatalf("partial quote = %+v", q)
	}
	// bids: 98*1 + 97*1.5
	if !q.SellingPrice.Equal(d("243.5")) {
		t.Fatalf("selling = %v", q.SellingPrice)
	}
}

func TestConsolidatedNoVenue(t *testing.T) {
	a := newAgg(true,
		&fakeVenue{name: "a", pairs: map[market.Asset]string{market.BTC: "BTC-USD"}},
		&fakeVenue{name: "b", pairs: map[market.Asset]string{}},
	)

	supported, err := a.SupportedVenues(context.Background(), market.LRC)
	if err != nil || len(supported) != 0 {
		t.Fatalf("supported = %v, %v", supported, err)
	}
	q, err := a.ConsolidatedPrice(context.Background(), market.LRC, d("1"))
	if err != nil {
		t.Fatal(err)
	}
	if q.BuyingPrice != nil || q.SellingPrice != nil {
		t.Fatalf("expected nil prices, got %+v", q)
	}
}

func TestDiscoveryStrict(t *testing.T) {
	a := newAgg(true,
		&fakeVenue{name: "a", pairs: map[market.Asset]string{market.BTC: "BTC-USD"}},
		&fakeVenue{name: "b", listErr: errors.New("down")},
	)
	_, err := a.SupportedVenues(context.Background(), market.BTC)
	if !market.IsKind(err, market.KindFetchAssets) {
		t.Fatalf("expected FetchAssetsError, got %v", err)
	}
}

func TestDiscoveryLenient(t *testing.T) {
	a := newAgg(false,
		&fakeVenue{name: "a", pairs: map[market.Asset]string{market.BTC: "BTC-USD"}},
		&fakeVenue{name: "b", listErr: errors.New("down")},
		&fakeVenue{name: "c", pairs: map[market.Asset]string{market.BTC: "XXBTZUSD"}},
	)
	supported, err := a.SupportedVenues(context.Background(), market.BTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(supported) != 2 || supported[0].Venue.Name() != "a" || supported[1].Pair != "XXBTZUSD" {
		t.Fatalf("supported = %+v", supported)
	}
}

func TestBookFailureAborts(t *testing.T) {
	a := newAgg(true,
		&fakeVenue{name: "a", pairs: map[market.Asset]string{market.ETH: "ETH-USD"},
			book: market.Book{Asks: []market.Level{lvl("1", "1")}}},
		&fakeVenue{name: "b", pairs: map[market.Asset]string{market.ETH: "ETHUSD"}, bookErr: errors.New("reset")},
	)
	_, err := a.ConsolidatedPrice(context.Background(), market.ETH, d("1"))
	var e *market.Error
	if !errors.As(err, &e) || e.Kind != market.KindFetchPrices || e.Venue != "b" {
		t.Fatalf("expected FetchPricesError from b, got %v", err)
	}
}

func TestPerVenuePrice(t *testing.T) {
	a := newAgg(true,
		&fakeVenue{name: "a", pairs: map[market.Asset]string{market.SOL: "SOL-USD"},
			book: market.Book{
				Asks: []market.Level{lvl("100", "1"), lvl("101", "2")},
				Bids: []market.Level{lvl("99", "3")},
			}},
		&fakeVenue{name: "b", pairs: map[market.Asset]string{market.BTC: "BTCUSD"}},
	)

	quotes, err := a.PerVenuePrice(context.Background(), market.SOL, d("1.5"))
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 {
		t.Fatalf("quotes = %v", quotes)
	}
	qa := quotes["a"]
	if !qa.BuyingPrice.Equal(d("150.5")) || !qa.SellingPrice.Equal(d("148.5")) {
		t.Fatalf("a = %+v", qa)
	}
	if qb, ok := quotes["b"]; !ok || qb.BuyingPrice != nil || qb.SellingPrice != nil {
		t.Fatalf("b = %+v (present=%v)", qb, ok)
	}
}

func TestTrades(t *testing.T) {
	a := newAgg(true,
		&fakeVenue{name: "a", pairs: map[market.Asset]string{market.ETH: "ETH-USD"}, trades: []market.Trade{
			{TradeID: "2", Side: market.Buy, Size: d("1"), Price: d("10")},
			{TradeID: "1", Side: market.Sell, Size: d("1"), Price: d("9")},
		}},
		&fakeVenue{name: "b", pairs: map[market.Asset]string{}},
	)

	trades, err := a.Trades(context.Background(), market.ETH, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || len(trades["a"]) != 1 || trades["a"][0].TradeID != "2" {
		t.Fatalf("trades = %+v", trades)
	}
}

func TestBalances(t *testing.T) {
	a := newAgg(true, &fakeVenue{name: "a", balances: []market.Balance{{Currency: "USD", Amount: d("5")}}})

	b, err := a.Balances(context.Background(), "a")
	if err != nil || len(b) != 1 {
		t.Fatalf("balances = %v, %v", b, err)
	}
	if _, err := a.Balances(context.Background(), "nope"); !errors.Is(err, ErrUnknownVenue) {
		t.Fatalf("expected ErrUnknownVenue, got %v", err)
	}
}
