package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"polyarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)

// NewOpportunityStore creates a new OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, key, kind, question, outcome_count, asks,
	total_cost, gross_profit, net_profit, roi_pct,
	kl_divergence, fw_gap, guaranteed_profit, extraction_pct,
	alpha_satisfied, should_trade, detected_at`

// SaveAll inserts every opportunity from a scan cycle using a pgx Batch.
// Re-saving an already stored ID is silently skipped via ON CONFLICT DO
// NOTHING.
func (s *OpportunityStore) SaveAll(ctx context.Context, opps []domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO opportunities (
			id, key, kind, question, outcome_count, asks,
			total_cost, gross_profit, net_profit, roi_pct,
			kl_divergence, fw_gap, guaranteed_profit, extraction_pct,
			alpha_satisfied, should_trade, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17
		) ON CONFLICT (id) DO NOTHING`

	for _, opp := range opps {
		batch.Queue(query,
			opp.ID, opp.Key, string(opp.Kind), opp.Question, opp.OutcomeCount, opp.Asks,
			opp.TotalCost, opp.GrossProfit, opp.NetProfit, opp.ROIPct,
			opp.Guarantee.KLDivergence, opp.Guarantee.FWGap,
			opp.Guarantee.GuaranteedProfit, opp.Guarantee.ExtractionPct,
			opp.Guarantee.AlphaSatisfied, opp.Guarantee.ShouldTrade,
			opp.DetectedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range opps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunity batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the most recent opportunities ordered by detection time.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities ORDER BY detected_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var opp domain.ArbitrageOpportunity
		var kind string

		if err := rows.Scan(
			&opp.ID, &opp.Key, &kind, &opp.Question, &opp.OutcomeCount, &opp.Asks,
			&opp.TotalCost, &opp.GrossProfit, &opp.NetProfit, &opp.ROIPct,
			&opp.Guarantee.KLDivergence, &opp.Guarantee.FWGap,
			&opp.Guarantee.GuaranteedProfit, &opp.Guarantee.ExtractionPct,
			&opp.Guarantee.AlphaSatisfied, &opp.Guarantee.ShouldTrade,
			&opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Kind = domain.MarketKind(kind)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities rows: %w", err)
	}
	return opps, nil
}
