package gemini

import (
	"context"
	"fmt"
	"net/http"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

const balancesPath = "/v1/balances"

func (c *Client) Balances(ctx context.Context) ([]market.Balance, error) {
	header, err := c.signedHeaders(balancesPath)
	if err != nil {
		return nil, err
	}

	res, err := c.fetch(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + balancesPath,
		Header: header,
	}, market.FetchBalancesError)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, market.FetchBalancesError(Name, fmt.Errorf("%w: balances is not an array", venue.ErrShape))
	}

	balances := make([]market.Balance, 0, len(res.Array()))
	for _, b := range res.Array() {
		amount, err := venue.Decimal(b.Get("amount"))
		if err != nil {
			return nil, market.FetchBalancesError(Name, fmt.Errorf("%s amount: %w", b.Get("currency").Str, err))
		}
		balances = append(balances, market.Balance{Currency: b.Get("currency").Str, Amount: amount})
	}
	return balances, nil
}
