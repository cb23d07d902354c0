package venue

import (
	"context"

	"cryptoagg/pkg/market"
)

// Adapter is the capability set every venue provides. Pair arguments are venue-native
// identifiers obtained from ListAssets through the asset registry.
type Adapter interface {
	Name() string

	// ListAssets fetches the venue's listing and returns the canonical assets it
	// quotes against USD, keyed to the native pair id. It must return either the
	// complete map or an error.
	ListAssets(ctx context.Context) (map[market.Asset]string, error)

	// Book fetches both sides with a single request.
	Book(ctx context.Context, pair string) (market.Book, error)
	BidPrice(ctx context.Context, pair string) ([]market.Level, error)
	AskPrice(ctx context.Context, pair string) ([]market.Level, error)

	Trades(ctx context.Context, pair string, limit int) ([]market.Trade, error)
}

// BalanceSource is implemented by venues with signed private endpoints.
type BalanceSource interface {
	Balances(ctx context.Context) ([]market.Balance, error)
}
