// Package coinbase adapts the Coinbase Exchange REST API. Order books are arrays of
// [price, size, num_orders] tuples already sorted best price first.
package coinbase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

const (
	Name           = "coinbase"
	DefaultBaseURL = "https://api.exchange.coinbase.com"
)

var credentials = venue.Credentials{
	Venue:     Name,
	KeyEnv:    "COINBASE_API_KEY",
	SecretEnv: "COINBASE_API_SECRET",
}

type Client struct {
	fetcher fetch.Fetcher
	baseURL string
	log     *slog.Logger
	now     func() time.Time
}

func New(fetcher fetch.Fetcher, baseURL string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With("venue", Name),
		now:     time.Now,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) fetch(ctx context.Context, req fetch.Request, wrap func(string, error) *market.Error) (gjson.Result, error) {
	res, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		c.log.Warn("request failed", "url", req.URL, "error", err)
		return gjson.Result{}, wrap(Name, err)
	}
	return res, nil
}

var (
	_ venue.Adapter       = (*Client)(nil)
	_ venue.BalanceSource = (*Client)(nil)
)
