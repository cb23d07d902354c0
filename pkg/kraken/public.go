package kraken

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

// ListAssets matches pair altnames against <ASSET>USD, then applies the fixed
// overrides for BTC and ETH.
func (c *Client) ListAssets(ctx context.Context) (map[market.Asset]string, error) {
	res, err := c.fetch(ctx, fetch.Get(c.baseURL+"/0/public/AssetPairs"), market.FetchAssetsError)
	if err != nil {
		return nil, err
	}

	assets := make(map[market.Asset]string)
	res.ForEach(func(_, p gjson.Result) bool {
		alt := p.Get("altname").Str
		for _, a := range market.Assets {
			if alt == string(a)+"USD" {
				assets[a] = alt
			}
		}
		return true
	})
	for a, pair := range overrides {
		assets[a] = pair
	}
	return assets, nil
}

// pairData returns result[pair]. Kraken may key the result by its canonical pair
// name rather than the requested one, so a single-entry result is accepted as is.
func pairData(result gjson.Result, pair string) (gjson.Result, error) {
	if v := result.Get(pair); v.Exists() {
		return v, nil
	}
	var only gjson.Result
	n := 0
	result.ForEach(func(k, v gjson.Result) bool {
		if k.Str == "last" {
			return true
		}
		only = v
		n++
		return true
	})
	if n == 1 {
		return only, nil
	}
	return gjson.Result{}, fmt.Errorf("%w: no data for pair %s", venue.ErrShape, pair)
}

func (c *Client) Book(ctx context.Context, pair string) (market.Book, error) {
	res, err := c.fetch(ctx, fetch.Get(c.baseURL+"/0/public/Depth?pair="+url.QueryEscape(pair)), market.FetchPricesError)
	if err != nil {
		return market.Book{}, err
	}
	data, err := pairData(res, pair)
	if err != nil {
		return market.Book{}, market.FetchPricesError(Name, err)
	}

	bids, err := venue.TupleLevels(data.Get("bids"))
	if err != nil {
		return market.Book{}, market.FetchPricesError(Name, fmt.Errorf("bids: %w", err))
	}
	asks, err := venue.TupleLevels(data.Get("asks"))
	if err != nil {
		return market.Book{}, market.FetchPricesError(Name, fmt.Errorf("asks: %w", err))
	}
	return market.Book{Bids: bids, Asks: asks}, nil
}

func (c *Client) BidPrice(ctx context.Context, pair string) ([]market.Level, error) {
	book, err := c.Book(ctx, pair)
	return book.Bids, err
}

func (c *Client) AskPrice(ctx context.Context, pair string) ([]market.Level, error) {
	book, err := c.Book(ctx, pair)
	return book.Asks, err
}

// Trades reads rows of [price, volume, time, side, type, misc, trade_id].
func (c *Client) Trades(ctx context.Context, pair string, limit int) ([]market.Trade, error) {
	u := fmt.Sprintf("%s/0/public/Trades?pair=%s&count=%d", c.baseURL, url.QueryEscape(pair), limit)
	res, err := c.fetch(ctx, fetch.Get(u), market.FetchTradesError)
	if err != nil {
		return nil, err
	}
	rows, err := pairData(res, pair)
	if err != nil {
		return nil, market.FetchTradesError(Name, err)
	}
	if !rows.IsArray() {
		return nil, market.FetchTradesError(Name, fmt.Errorf("%w: trades are not an array", venue.ErrShape))
	}

	trades := make([]market.Trade, 0, len(rows.Array()))
	for i, row := range rows.Array() {
		f := row.Array()
		if len(f) < 4 {
			return nil, market.FetchTradesError(Name, fmt.Errorf("%w: trade %d has %d fields", venue.ErrShape, i, len(f)))
		}
		price, err := venue.Decimal(f[0])
		if err != nil {
			return nil, market.FetchTradesError(Name, fmt.Errorf("trade %d price: %w", i, err))
		}
		size, err := venue.Decimal(f[1])
		if err != nil {
			return nil, market.FetchTradesError(Name, fmt.Errorf("trade %d volume: %w", i, err))
		}
		id := f[2].String()
		if len(f) > 6 {
			id = f[6].String()
		}
		trades = append(trades, market.Trade{
			TradeID: id,
			Side:    venue.SideFromCode(f[3].Str),
			Size:    size,
			Price:   price,
		})
	}
	return trades, nil
}
