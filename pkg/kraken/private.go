package kraken

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"cryptoagg/pkg/fetch"
	"cryptoagg/pkg/market"
	"cryptoagg/pkg/venue"
)

const balancePath = "/0/private/Balance"

// Balances returns one entry per currency, sorted by currency code.
func (c *Client) Balances(ctx context.Context) ([]market.Balance, error) {
	body, header, err := c.signedForm(balancePath, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.fetch(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + balancePath,
		Header: header,
		Body:   []byte(body),
	}, market.FetchBalancesError)
	if err != nil {
		return nil, err
	}

	var balances []market.Balance
	var parseErr error
	res.ForEach(func(k, v gjson.Result) bool {
		amount, err := venue.Decimal(v)
		if err != nil {
			parseErr = fmt.Errorf("%s: %w", k.Str, err)
			return false
		}
		balances = append(balances, market.Balance{Currency: k.Str, Amount: amount})
		return true
	})
	if parseErr != nil {
		return nil, market.FetchBalancesError(Name, parseErr)
	}
	slices.SortFunc(balances, func(a, b market.Balance) int { return strings.Compare(a.Currency, b.Currency) })
	return balances, nil
}
