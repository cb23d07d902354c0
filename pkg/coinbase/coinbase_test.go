package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
)

const base = "https://cb.test"

func stub(t *testing.T, routes map[string]string, seen *[]fetch.Request) fetch.Fetcher {
	t.Helper()
	return fetch.Func(func(_ context.Context, req fetch.Request) (gjson.Result, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}
		body, ok := routes[req.URL]
		if !ok {
			return gjson.Result{}, &fetch.Failure{Status: http.StatusNotFound, Message: "NotFound", URL: req.URL}
		}
		return gjson.Parse(body), nil
	})
}

func TestListAssets(t *testing.T) {
	c := New(stub(t, map[string]string{
		base + "/products": `[
			{"id":"BTC-USD","base_currency":"BTC","quote_currency":"USD"},
			{"id":"BTC-EUR","base_currency":"BTC","quote_currency":"EUR"},
			{"id":"ETH-USD","base_currency":"ETH","quote_currency":"USD"},
			{"id":"DOGE-USD","base_currency":"DOGE","quote_currency":"USD"}
		]`,
	}, nil), base, nil)

	assets, err := c.ListAssets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := map[market.Asset]string{market.BTC: "BTC-USD", market.ETH: "ETH-USD"}
	if len(assets) != len(want) {
		t.Fatalf("assets = %v, want %v", assets, want)
	}
	for a, id := range want {
		if assets[a] != id {
			t.Errorf("%s = %q, want %q", a, assets[a], id)
		}
	}
}

func TestListAssetsFailure(t *testing.T) {
	c := New(stub(t, nil, nil), base, nil)
	_, err := c.ListAssets(context.Background())
	if !market.IsKind(err, market.KindFetchAssets) {
		t.Fatalf("expected FetchAssetsError, got %v", err)
	}
	var f *fetch.Failure
	if !errors.As(err, &f) || f.Status != http.StatusNotFound {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestBook(t *testing.T) {
	c := New(stub(t, map[string]string{
		base + "/products/BTC-USD/book?level=2": `{
			"sequence": 1,
			"bids": [["100.00","1.5",3],["99.50","2",1]],
			"asks": [["100.50","0.5",1],["101.00","4",2]]
		}`,
	}, nil), base, nil)

	bids, err := c.BidPrice(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatal(err)
	}
	asks, err := c.AskPrice(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 2 || !bids[0].Price.Equal(decimal.RequireFromString("100")) || !bids[1].Amount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("bids = %+v", bids)
	}
	if len(asks) != 2 || !asks[0].Price.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("asks = %+v", asks)
	}
}

func TestBookMalformed(t *testing.T) {
	c := New(stub(t, map[string]string{
		base + "/products/BTC-USD/book?level=2": `{"bids":[["abc","1"]],"asks":[]}`,
	}, nil), base, nil)
	if _, err := c.Book(context.Background(), "BTC-USD"); !market.IsKind(err, market.KindFetchPrices) {
		t.Fatalf("expected FetchPricesError, got %v", err)
	}
}

func TestTrades(t *testing.T) {
	var seen []fetch.Request
	c := New(stub(t, map[string]string{
		base + "/products/ETH-USD/trades?limit=2": `[
			{"trade_id":74,"side":"buy","size":"0.01","price":"3000.10","time":"2024-01-01T00:00:00Z"},
			{"trade_id":73,"side":"sell","size":"1","price":"2999"}
		]`,
	}, &seen), base, nil)

	trades, err := c.Trades(context.Background(), "ETH-USD", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0].Method != http.MethodGet {
		t.Fatalf("requests = %+v", seen)
	}
	if len(trades) != 2 {
		t.Fatalf("len = %d", len(trades))
	}
	if trades[0].TradeID != "74" || trades[0].Side != market.Buy || !trades[0].Size.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("trade 0 = %+v", trades[0])
	}
	if trades[1].Side != market.Sell || !trades[1].Price.Equal(decimal.NewFromInt(2999)) {
		t.Errorf("trade 1 = %+v", trades[1])
	}
}

func TestSign(t *testing.T) {
	sig, err := Sign("secret", "1700000000", "GET", "/accounts", nil)
	if err != nil {
		t.Fatal(err)
	}
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("1700000000GET/accounts"))
	if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
		t.Fatalf("sig = %s, want %s", sig, want)
	}

	if _, err := Sign("secret", "1", "GET", "/\xff", nil); !market.IsKind(err, market.KindEncode) {
		t.Fatalf("expected EncodeError, got %v", err)
	}
}

func TestBalances(t *testing.T) {
	t.Setenv("COINBASE_API_KEY", "key")
	t.Setenv("COINBASE_API_SECRET", "secret")

	var seen []fetch.Request
	c := New(stub(t, map[string]string{
		base + "/accounts": `[
			{"id":"a","currency":"BTC","balance":"0.5","available":"0.5"},
			{"id":"b","currency":"USD","balance":"1200.25"}
		]`,
	}, &seen), base, nil)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	balances, err := c.Balances(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 2 || balances[0].Currency != "BTC" || !balances[1].Amount.Equal(decimal.RequireFromString("1200.25")) {
		t.Fatalf("balances = %+v", balances)
	}

	want, _ := Sign("secret", "1700000000", http.MethodGet, "/accounts", nil)
	h := seen[0].Header
	if h["CB-ACCESS-KEY"] != "key" || h["CB-ACCESS-TIMESTAMP"] != "1700000000" || h["CB-ACCESS-SIGN"] != want {
		t.Fatalf("headers = %v", h)
	}
}

func TestBalancesMissingKey(t *testing.T) {
	t.Setenv("COINBASE_API_KEY", "")
	t.Setenv("COINBASE_API_SECRET", "secret")

	var seen []fetch.Request
	c := New(stub(t, nil, &seen), base, nil)
	_, err := c.Balances(context.Background())

	var e *market.Error
	if !errors.As(err, &e) || e.Kind != market.KindAPIKey || e.Status != http.StatusInternalServerError {
		t.Fatalf("expected APIKeyError, got %v", err)
	}
	if len(seen) != 0 {
		t.Fatal("request sent without credentials")
	}
}
