package domain

import "time"

// BookLevel is a single price+size entry on one side of an order book.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook is a snapshot of resting orders for one outcome token. BestBid
// and BestAsk are zero when the corresponding side is empty, which is a
// valid terminal state for an illiquid token rather than an error.
type OrderBook struct {
	TokenID   string      `json:"token_id"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	BestBid   float64     `json:"best_bid"`
	BestAsk   float64     `json:"best_ask"`
	MidPrice  float64     `json:"mid_price"`
	Timestamp time.Time   `json:"timestamp"`
}

// HasAsk reports whether the book offers any shares for sale.
func (b *OrderBook) HasAsk() bool {
	return b != nil && b.BestAsk > 0
}

// OutcomePrice is the priced leg of an arbitrage candidate: one outcome
// token together with the ask the detector would have to pay for it.
// BestAsk/BestBid of zero mean the side is unpriced.
type OutcomePrice struct {
	TokenID  string  `json:"token_id"`
	Outcome  string  `json:"outcome"`
	MarketID string  `json:"market_id"`
	BestAsk  float64 `json:"best_ask"`
	BestBid  float64 `json:"best_bid,omitempty"`
}

// Priced reports whether the leg has a usable ask.
func (p OutcomePrice) Priced() bool {
	return p.BestAsk > 0
}
