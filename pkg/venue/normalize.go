package venue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"cryptoagg/pkg/market"
)

var ErrShape = errors.New("unexpected payload shape")

// TupleLevels reads [[price, amount, ...], ...]. Fields past the second are ignored.
func TupleLevels(rows gjson.Result) ([]market.Level, error) {
	if !rows.IsArray() {
		return nil, fmt.Errorf("%w: levels are not an array", ErrShape)
	}
	levels := make([]market.Level, 0, len(rows.Array()))
	for i, row := range rows.Array() {
		fields := row.Array()
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: level %d has %d fields", ErrShape, i, len(fields))
		}
		lvl, ok, err := parseLevel(fields[0], fields[1])
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		if ok {
			levels = append(levels, lvl)
		}
	}
	return levels, nil
}

// ObjectLevels reads [{priceKey: ..., amountKey: ...}, ...].
func ObjectLevels(rows gjson.Result, priceKey, amountKey string) ([]market.Level, error) {
	if !rows.IsArray() {
		return nil, fmt.Errorf("%w: levels are not an array", ErrShape)
	}
	levels := make([]market.Level, 0, len(rows.Array()))
	for i, row := range rows.Array() {
		lvl, ok, err := parseLevel(row.Get(priceKey), row.Get(amountKey))
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		if ok {
			levels = append(levels, lvl)
		}
	}
	return levels, nil
}

// parseLevel drops non-positive levels so every returned level satisfies price > 0
// and amount > 0.
func parseLevel(price, amount gjson.Result) (market.Level, bool, error) {
	p, err := Decimal(price)
	if err != nil {
		return market.Level{}, false, fmt.Errorf("price: %w", err)
	}
	a, err := Decimal(amount)
	if err != nil {
		return market.Level{}, false, fmt.Errorf("amount: %w", err)
	}
	if !p.IsPositive() || !a.IsPositive() {
		return market.Level{}, false, nil
	}
	return market.Level{Price: p, Amount: a}, true, nil
}

// Decimal accepts both JSON strings and JSON numbers.
func Decimal(v gjson.Result) (decimal.Decimal, error) {
	switch v.Type {
	case gjson.String:
		return decimal.NewFromString(v.Str)
	case gjson.Number:
		return decimal.NewFromString(v.Raw)
	default:
		return decimal.Zero, fmt.Errorf("%w: %q is not numeric", ErrShape, v.Raw)
	}
}

// SideFromCode maps single-letter side codes: "b" is a buy, anything else a sell.
func SideFromCode(code string) market.Side {
	if code == "b" {
		return market.Buy
	}
	return market.Sell
}

// SideFromName maps textual sides; anything but "buy" is a sell.
func SideFromName(name string) market.Side {
	if strings.EqualFold(name, string(market.Buy)) {
		return market.Buy
	}
	return market.Sell
}
