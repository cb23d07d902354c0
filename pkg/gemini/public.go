package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

// ListAssets matches lower-case symbols such as "btcusd" against <ASSET>USD.
func (c *Client) ListAssets(ctx context.Context) (map[market.Asset]string, error) {
	res, err := c.fetch(ctx, fetch.Get(c.baseURL+"/v1/symbols"), market.FetchAssetsError)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, market.FetchAssetsError(Name, fmt.Errorf("%w: symbols is not an array", venue.ErrShape))
	}

	assets := make(map[market.Asset]string)
	res.ForEach(func(_, s gjson.Result) bool {
		symbol := strings.ToUpper(s.Str)
		for _, a := range market.Assets {
			if string(a)+"USD" == symbol {
				assets[a] = symbol
			}
		}
		return true
	})
	return assets, nil
}

func (c *Client) Book(ctx context.Context, pair string) (market.Book, error) {
	res, err := c.fetch(ctx, fetch.Get(c.baseURL+"/v1/book/"+url.PathEscape(pair)), market.FetchPricesError)
	if err != nil {
		return market.Book{}, err
	}

	bids, err := venue.ObjectLevels(res.Get("bids"), "price", "amount")
	if err != nil {
		return market.Book{}, market.FetchPricesError(Name, fmt.Errorf("bids: %w", err))
	}
	asks, err := venue.ObjectLevels(res.Get("asks"), "price", "amount")
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
	u := fmt.Sprintf("%s/v1/trades/%s?limit_trades=%d", c.baseURL, url.PathEscape(pair), limit)
	res, err := c.fetch(ctx, fetch.Get(u), market.FetchTradesError)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, market.FetchTradesError(Name, fmt.Errorf("%w: trades is not an array", venue.ErrShape))
	}

	trades := make([]market.Trade, 0, len(res.Array()))
	for i, t := range res.Array() {
		size, err := venue.Decimal(t.Get("amount"))
		if err != nil {
			return nil, market.FetchTradesError(Name, fmt.Errorf("trade %d amount: %w", i, err))
		}
		price, err := venue.Decimal(t.Get("price"))
		if err != nil {
			return nil, market.FetchTradesError(Name, fmt.Errorf("trade %d price: %w", i, err))
		}
		trades = append(trades, market.Trade{
			TradeID: t.Get("tid").String(),
			Side:    venue.SideFromName(t.Get("type").Str),
			Size:    size,
			Price:   price,
		})
	}
	return trades, nil
}
