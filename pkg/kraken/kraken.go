// Package kraken adapts the Kraken REST API. Every payload is an envelope of
// {"error": [...], "result": {...}} and pair data sits under result[pair].
package kraken

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

const (
	Name           = "kraken"
	DefaultBaseURL = "https://api.kraken.com"
)

var credentials = venue.Credentials{
	Venue:     Name,
	KeyEnv:    "KRAKEN_API_KEY",
	SecretEnv: "KRAKEN_API_SECRET",
}

// Fixed pair codes for assets whose legacy Kraken names do not follow <ASSET>USD.
var overrides = map[market.Asset]string{
	market.BTC: "XXBTZUSD",
	market.ETH: "XETHZUSD",
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

// fetch unwraps the envelope. A non-empty error array fails the call even on HTTP 200.
func (c *Client) fetch(ctx context.Context, req fetch.Request, wrap func(string, error) *market.Error) (gjson.Result, error) {
	res, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		c.log.Warn("request failed", "url", req.URL, "error", err)
		return gjson.Result{}, wrap(Name, err)
	}

	var msgs []string
	res.Get("error").ForEach(func(_, e gjson.Result) bool {
		msgs = append(msgs, e.String())
		return true
	})
	if len(msgs) > 0 {
		err := errors.New(strings.Join(msgs, "; "))
		c.log.Warn("venue rejected request", "url", req.URL, "error", err)
		return gjson.Result{}, wrap(Name, err)
	}

	result := res.Get("result")
	if !result.IsObject() {
		return gjson.Result{}, wrap(Name, errors.New("missing result object"))
	}
	return result, nil
}

var (
	_ venue.Adapter       = (*Client)(nil)
	_ venue.BalanceSource = (*Client)(nil)
)
