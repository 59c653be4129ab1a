package domain

import "context"

// OpportunityStore persists detected arbitrage opportunities.
type OpportunityStore interface {
	SaveAll(ctx context.Context, opps []ArbitrageOpportunity) error
	ListRecent(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
}

// PaperLedger persists simulated fills for the paper-trading portfolio.
type PaperLedger interface {
	Record(ctx context.Context, trade PaperTrade) error
	ListRecent(ctx context.Context, limit int) ([]PaperTrade, error)
	Totals(ctx context.Context) (PaperTotals, error)
}
