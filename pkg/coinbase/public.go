package coinbase

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

// ListAssets keeps USD-quoted products whose base currency is a canonical asset.
func (c *Client) ListAssets(ctx context.Context) (map[market.Asset]string, error) {
	res, err := c.fetch(ctx, fetch.Get(c.baseURL+"/products"), market.FetchAssetsError)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, market.FetchAssetsError(Name, fmt.Errorf("%w: products is not an array", venue.ErrShape))
	}

	assets := make(map[market.Asset]string)
	res.ForEach(func(_, p gjson.Result) bool {
		base := market.Asset(p.Get("base_currency").Str)
		if base.Valid() && p.Get("quote_currency").Str == "USD" {
			assets[base] = p.Get("id").Str
		}
		return true
	})
	return assets, nil
}

func (c *Client) Book(ctx context.Context, pair string) (market.Book, error) {
	u := fmt.Sprintf("%s/products/%s/book?level=2", c.baseURL, url.PathEscape(pair))
	res, err := c.fetch(ctx, fetch.Get(u), market.FetchPricesError)
	if err != nil {
		return market.Book{}, err
	}

	bids, err := venue.TupleLevels(res.Get("bids"))
	if err != nil {
		return market.Book{}, market.FetchPricesError(Name, fmt.Errorf("bids: %w", err))
	}
	asks, err := venue.TupleLevels(res.Get("asks"))
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

func (c *Client) Trades(ctx context.Context, pair string, limit int) ([]market.Trade, error) {
	u := fmt.Sprintf("%s/products/%s/trades?limit=%d", c.baseURL, url.PathEscape(pair), limit)
	res, err := c.fetch(ctx, fetch.Get(u), market.FetchTradesError)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, market.FetchTradesError(Name, fmt.Errorf("%w: trades is not an array", venue.ErrShape))
	}

	trades := make([]market.Trade, 0, len(res.Array()))
	for i, t := range res.Array() {
		size, err := venue.Decimal(t.Get("size"))
		if err != nil {
			return nil, market.FetchTradesError(Name, fmt.Errorf("trade %d size: %w", i, err))
		}
		price, err := venue.Decimal(t.Get("price"))
		if err != nil {
			return nil, market.FetchTradesError(Name, fmt.Errorf("trade %d price: %w", i, err))
		}
		trades = append(trades, market.Trade{
			TradeID: t.Get("trade_id").String(),
			Side:    venue.SideFromName(t.Get("side").Str),
			Size:    size,
			Price:   price,
		})
	}
	return trades, nil
}
