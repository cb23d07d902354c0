package market

import (
	"slices"

	"github.com/shopspring/decimal"
)

type FillResult struct {
	Cost   decimal.Decimal
	Filled decimal.Decimal
}

// Partial reports whether the levels ran out before qty was reached.
func (r FillResult) Partial(qty decimal.Decimal) bool {
	return r.Filled.LessThan(qty)
}

// Fill walks levels best price first and returns the cost of taking qty units.
// When the levels are too shallow the cost covers only what could be filled.
func Fill(levels []Level, qty decimal.Decimal) FillResult {
	filled := decimal.Zero
	cost := decimal.Zero

	for _, lvl := range levels {
		if !filled.LessThan(qty) {
			break
		}
		take := decimal.Min(lvl.Amount, qty.Sub(filled))
		cost = cost.Add(take.Mul(lvl.Price))
		filled = filled.Add(take)
	}

	return FillResult{Cost: cost, Filled: filled}
}

// MergeAsks concatenates sides in the order given and stable-sorts ascending by price,
// so equal prices keep venue encounter order.
func MergeAsks(sides ...[]Level) []Level {
	merged := concat(sides)
	slices.SortStableFunc(merged, func(a, b Level) int {
		return a.Price.Cmp(b.Price)
	})
	return merged
}

// MergeBids is MergeAsks with descending order.
func MergeBids(sides ...[]Level) []Level {
	merged := concat(sides)
	slices.SortStableFunc(merged, func(a, b Level) int {
		return b.Price.Cmp(a.Price)
	})
	return merged
}

func concat(sides [][]Level) []Level {
	n := 0
	for _, s := range sides {
		n += len(s)
	}
	merged := make([]Level, 0, n)
	for _, s := range sides {
		merged = append(merged, s...)
	}
	return merged
}
