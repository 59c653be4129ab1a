package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"polyarb/internal/domain"
)

// PaperStore implements domain.PaperLedger using PostgreSQL.
type PaperStore struct {
	pool *pgxpool.Pool
}

var _ domain.PaperLedger = (*PaperStore)(nil)

// NewPaperStore creates a new PaperStore backed by the given connection pool.
func NewPaperStore(pool *pgxpool.Pool) *PaperStore {
	return &PaperStore{pool: pool}
}

const paperSelectCols = `id, market_id, market_question,
	total_cost, net_profit, roi_pct, executed_at`

// Record stores one simulated fill.
func (s *PaperStore) Record(ctx context.Context, trade domain.PaperTrade) error {
	const query = `
		INSERT INTO paper_trades (
			id, market_id, market_question,
			total_cost, net_profit, roi_pct, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		trade.ID, trade.MarketKey, trade.Question,
		trade.TotalCost, trade.NetProfit, trade.ROIPct, trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record paper trade %s: %w", trade.ID, err)
	}
	return nil
}

// ListRecent returns the most recent paper trades ordered by execution time.
func (s *PaperStore) ListRecent(ctx context.Context, limit int) ([]domain.PaperTrade, error) {
	query := `SELECT ` + paperSelectCols + ` FROM paper_trades ORDER BY executed_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent paper trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.PaperTrade
	for rows.Next() {
		var t domain.PaperTrade
		if err := rows.Scan(
			&t.ID, &t.MarketKey, &t.Question,
			&t.TotalCost, &t.NetProfit, &t.ROIPct, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan paper trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent paper trades rows: %w", err)
	}
	return trades, nil
}

// Totals aggregates the full ledger.
func (s *PaperStore) Totals(ctx context.Context) (domain.PaperTotals, error) {
	var t domain.PaperTotals
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_cost), 0), COALESCE(SUM(net_profit), 0) FROM paper_trades`,
	).Scan(&t.Trades, &t.Invested, &t.Profit)
	if err != nil {
		return domain.PaperTotals{}, fmt.Errorf("postgres: paper totals: %w", err)
	}
	return t, nil
}
