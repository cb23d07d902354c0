package gemini

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
)

const base = "https://gemini.test"

func stub(routes map[string]string, seen *[]fetch.Request) fetch.Fetcher {
	return fetch.Func(func(_ context.Context, req fetch.Request) (gjson.Result, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}
		body, ok := routes[req.URL]
		if !ok {
			return gjson.Result{}, &fetch.Failure{Status: http.StatusBadRequest, Message: "InvalidSymbol", URL: req.URL}
		}
		return gjson.Parse(body), nil
	})
}

func TestListAssets(t *testing.T) {
	c := New(stub(map[string]string{
		base + "/v1/symbols": `["btcusd","ethbtc","ethusd","solusd","lrcusd","dogeusd"]`,
	}, nil), base, nil)

	assets, err := c.ListAssets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := map[market.Asset]string{
		market.BTC: "BTCUSD",
		market.ETH: "ETHUSD",
		market.SOL: "SOLUSD",
		market.LRC: "LRCUSD",
	}
	if len(assets) != len(want) {
		t.Fatalf("assets = %v", assets)
	}
	for a, sym := range want {
		if assets[a] != sym {
			t.Errorf("%s = %q, want %q", a, assets[a], sym)
		}
	}
}

func TestBook(t *testing.T) {
	c := New(stub(map[string]string{
		base + "/v1/book/BTCUSD": `{
			"bids":[{"price":"100","amount":"3","timestamp":"1700000000"}],
			"asks":[{"price":"102","amount":"1","timestamp":"1700000000"},{"price":"103","amount":"0.5","timestamp":"1700000000"}]
		}`,
	}, nil), base, nil)

	book, err := c.Book(context.Background(), "BTCUSD")
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Bids) != 1 || !book.Bids[0].Amount.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("bids = %+v", book.Bids)
	}
	if len(book.Asks) != 2 || !book.Asks[1].Price.Equal(decimal.NewFromInt(103)) {
		t.Fatalf("asks = %+v", book.Asks)
	}

	if _, err := c.AskPrice(context.Background(), "NOPE"); !market.IsKind(err, market.KindFetchPrices) {
		t.Fatalf("expected FetchPricesError, got %v", err)
	}
}

func TestTrades(t *testing.T) {
	c := New(stub(map[string]string{
		base + "/v1/trades/SOLUSD?limit_trades=1": `[{"timestamp":1700000000,"tid":555,"price":"99.5","amount":"2","exchange":"gemini","type":"sell"}]`,
	}, nil), base, nil)

	trades, err := c.Trades(context.Background(), "SOLUSD", 1)
	if err != nil {
		t.Fatal(err)
	}
	want := market.Trade{TradeID: "555", Side: market.Sell, Size: decimal.NewFromInt(2), Price: decimal.RequireFromString("99.5")}
	if len(trades) != 1 || trades[0].TradeID != want.TradeID || trades[0].Side != want.Side ||
		!trades[0].Size.Equal(want.Size) || !trades[0].Price.Equal(want.Price) {
		t.Fatalf("trades = %+v", trades)
	}
}

func TestSign(t *testing.T) {
	encoded, sig, err := Sign("secret", "/v1/balances", 1700000000000)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatal(err)
	}
	doc := gjson.ParseBytes(raw)
	if doc.Get("request").Str != "/v1/balances" || doc.Get("nonce").Int() != 1700000000000 {
		t.Fatalf("payload = %s", raw)
	}

	mac := hmac.New(sha512.New384, []byte("secret"))
	mac.Write([]byte(encoded))
	if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
		t.Fatalf("sig = %s, want %s", sig, want)
	}
}

func TestBalances(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "account-key")
	t.Setenv("GEMINI_API_SECRET", "secret")

	var seen []fetch.Request
	c := New(stub(map[string]string{
		base + "/v1/balances": `[
			{"type":"exchange","currency":"BTC","amount":"1.25","available":"1.0"},
			{"type":"exchange","currency":"USD","amount":"10"}
		]`,
	}, &seen), base, nil)
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }

	balances, err := c.Balances(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 2 || !balances[0].Amount.Equal(decimal.RequireFromString("1.25")) || balances[1].Currency != "USD" {
		t.Fatalf("balances = %+v", balances)
	}

	req := seen[0]
	if req.Method != http.MethodPost {
		t.Fatalf("method = %s", req.Method)
	}
	encoded, sig, _ := Sign("secret", "/v1/balances", 1700000000123)
	if req.Header["X-GEMINI-APIKEY"] != "account-key" || req.Header["X-GEMINI-PAYLOAD"] != encoded || req.Header["X-GEMINI-SIGNATURE"] != sig {
		t.Fatalf("headers = %v", req.Header)
	}
}

func TestBalancesMissingSecret(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "account-key")
	t.Setenv("GEMINI_API_SECRET", "  ")

	c := New(stub(nil, nil), base, nil)
	if _, err := c.Balances(context.Background()); !market.IsKind(err, market.KindAPIKey) {
		t.Fatalf("expected APIKeyError, got %v", err)
	}
}

func TestBalancesUpstreamFailure(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "account-key")
	t.Setenv("GEMINI_API_SECRET", "secret")

	c := New(stub(nil, nil), base, nil)
	if _, err := c.Balances(context.Background()); !market.IsKind(err, market.KindFetchBalances) {
		t.Fatalf("expected FetchBalancesError, got %v", err)
	}
}
