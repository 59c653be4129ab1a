package domain

import "context"

// PriceSource supplies market metadata and prices. Every method may fail
// with a transient upstream error; callers treat any failure as "price
// unavailable" for that token, never as a fatal scan error.
type PriceSource interface {
	// FetchMarkets returns active markets matching the filter.
	FetchMarkets(ctx context.Context, filter MarketFilter) ([]Market, error)

	// FetchMidpoint returns the midpoint price for one outcome token.
	FetchMidpoint(ctx context.Context, tokenID string) (float64, error)

	// FetchBestAsk returns the lowest resting ask for one outcome token.
	FetchBestAsk(ctx context.Context, tokenID string) (float64, error)

	// FetchOrderBook returns the full book for one outcome token.
	FetchOrderBook(ctx context.Context, tokenID string) (*OrderBook, error)

	// FetchOrderBooks returns books for several tokens in one request,
	// index-aligned with tokenIDs.
	FetchOrderBooks(ctx context.Context, tokenIDs []string) ([]*OrderBook, error)
}
