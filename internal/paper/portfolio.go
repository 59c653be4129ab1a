// Package paper simulates fills for detected opportunities: one share
// of every outcome at the quoted asks, held to settlement. No orders
// are ever placed; the portfolio exists to measure what the scanner
// would have earned.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"polyarb/internal/domain"
)

// maxQuestionLen bounds the question text carried into the ledger.
const maxQuestionLen = 80

// Portfolio accumulates simulated fills across scan cycles. Totals are
// seeded from the ledger on startup so they survive restarts.
type Portfolio struct {
	ledger domain.PaperLedger
	logger *slog.Logger

	mu     sync.Mutex
	totals domain.PaperTotals
}

// NewPortfolio creates a portfolio persisting through ledger. A nil
// ledger keeps the portfolio purely in-memory for the current run.
func NewPortfolio(ctx context.Context, ledger domain.PaperLedger, logger *slog.Logger) (*Portfolio, error) {
	p := &Portfolio{
		ledger: ledger,
		logger: logger.With(slog.String("component", "paper")),
	}
	if ledger != nil {
		totals, err := ledger.Totals(ctx)
		if err != nil {
			return nil, fmt.Errorf("paper: load ledger totals: %w", err)
		}
		p.totals = totals
	}
	return p, nil
}

// RecordResult fills every opportunity in the scan result. A ledger
// write failure is logged and the in-memory totals still advance; a
// lost ledger line costs history, not correctness of the running
// session.
func (p *Portfolio) RecordResult(ctx context.Context, result *domain.ScanResult) []domain.PaperTrade {
	trades := make([]domain.PaperTrade, 0, len(result.Opportunities))
	for _, opp := range result.Opportunities {
		trades = append(trades, p.Record(ctx, opp))
	}
	return trades
}

// Record fills a single opportunity and returns the trade.
func (p *Portfolio) Record(ctx context.Context, opp domain.ArbitrageOpportunity) domain.PaperTrade {
	trade := domain.PaperTrade{
		ID:         uuid.Must(uuid.NewRandom()).String(),
		MarketKey:  opp.Key,
		Question:   truncate(opp.Question, maxQuestionLen),
		TotalCost:  opp.TotalCost,
		NetProfit:  opp.NetProfit,
		ROIPct:     opp.ROIPct,
		ExecutedAt: time.Now().UTC(),
	}

	p.mu.Lock()
	p.totals.Trades++
	p.totals.Invested += trade.TotalCost
	p.totals.Profit += trade.NetProfit
	p.mu.Unlock()

	if p.ledger != nil {
		if err := p.ledger.Record(ctx, trade); err != nil {
			p.logger.WarnContext(ctx, "paper trade not persisted",
				slog.String("trade_id", trade.ID),
				slog.String("market", trade.MarketKey),
				slog.String("error", err.Error()),
			)
		}
	}

	p.logger.DebugContext(ctx, "paper trade recorded",
		slog.String("market", trade.MarketKey),
		slog.Float64("cost", trade.TotalCost),
		slog.Float64("net", trade.NetProfit),
	)
	return trade
}

// Totals returns the accumulated portfolio figures.
func (p *Portfolio) Totals() domain.PaperTotals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
