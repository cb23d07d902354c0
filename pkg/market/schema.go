package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Asset is the canonical asset code used outside of any venue.
type Asset string

const (
	BTC Asset = "BTC"
	ETH Asset = "ETH"
	SOL Asset = "SOL"
	XRP Asset = "XRP"
	LRC Asset = "LRC"
)

// Assets is the closed set of supported canonical assets.
var Assets = []Asset{BTC, ETH, SOL, XRP, LRC}

func (a Asset) Valid() bool {
	for _, s := range Assets {
		if s == a {
			return true
		}
	}
	return false
}

// ParseAsset accepts a case-insensitive asset code.
func ParseAsset(s string) (Asset, error) {
	a := Asset(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unsupported asset %q", s)
	}
	return a, nil
}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Level is one price level of an order book side.
type Level struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// Book holds both sides of a venue order book, best price first:
// bids descending, asks ascending.
type Book struct {
	Bids []Level
	Asks []Level
}

type Trade struct {
	TradeID string          `json:"trade_id"`
	Side    Side            `json:"side"`
	Size    decimal.Decimal `json:"size"`
	Price   decimal.Decimal `json:"price"`
}

type Balance struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// Quote is the cost of buying (walking asks) and proceeds of selling (walking bids)
// Quantity units. Nil prices mean no venue could price that side.
type Quote struct {
	Asset        Asset            `json:"asset"`
	Quantity     decimal.Decimal  `json:"quantity"`
	BuyingPrice  *decimal.Decimal `json:"buying_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	BuyFilled    decimal.Decimal  `json:"buy_filled"`
	SellFilled   decimal.Decimal  `json:"sell_filled"`
}

// Complete reports whether both sides were priced for the full quantity.
func (q Quote) Complete() bool {
	return q.BuyingPrice != nil && q.SellingPrice != nil &&
		q.BuyFilled.Equal(q.Quantity) && q.SellFilled.Equal(q.Quantity)
}
