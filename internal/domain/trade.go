package domain

import "time"

// PaperTrade is one simulated fill recorded by the paper-trading ledger:
// buying one share of every outcome in a reported opportunity.
type PaperTrade struct {
	ID         string    `json:"id"`
	MarketKey  string    `json:"market_id"`
	Question   string    `json:"market_question"`
	TotalCost  float64   `json:"total_cost"`
	NetProfit  float64   `json:"net_profit"`
	ROIPct     float64   `json:"roi_pct"`
	ExecutedAt time.Time `json:"timestamp"`
}

// PaperTotals aggregates the ledger for portfolio reporting.
type PaperTotals struct {
	Trades   int64   `json:"trades"`
	Invested float64 `json:"invested"`
	Profit   float64 `json:"profit"`
}

// ROIPct returns the overall return on invested capital as a percentage.
func (t PaperTotals) ROIPct() float64 {
	if t.Invested <= 0 {
		return 0
	}
	return t.Profit / t.Invested * 100
}
