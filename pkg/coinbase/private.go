package coinbase

import (
	"context"
	"fmt"
	"net/http"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

const accountsPath = "/accounts"

func (c *Client) Balances(ctx context.Context) ([]market.Balance, error) {
	header, err := c.signedHeaders(http.MethodGet, accountsPath, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + accountsPath,
		Header: header,
	}, market.FetchBalancesError)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, market.FetchBalancesError(Name, fmt.Errorf("%w: accounts is not an array", venue.ErrShape))
	}

	balances := make([]market.Balance, 0, len(res.Array()))
	for _, acct := range res.Array() {
		amount, err := venue.Decimal(acct.Get("balance"))
		if err != nil {
			return nil, market.FetchBalancesError(Name, fmt.Errorf("%s balance: %w", acct.Get("currency").Str, err))
		}
		balances = append(balances, market.Balance{Currency: acct.Get("currency").Str, Amount: amount})
	}
	return balances, nil
}
