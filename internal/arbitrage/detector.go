package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"polyarb/internal/domain"
	"polyarb/internal/profit"
)

// DetectorConfig configures the detection thresholds.
type DetectorConfig struct {
	FeeRate       float64 // fee charged on winnings
	MinProfit     float64 // minimum net profit per dollar of payout
	Alpha         float64 // extraction target for the divergence policy
	MinDivergence float64 // minimum KL divergence worth reporting
}

// Detector applies the sub-dollar cost arithmetic and the divergence
// gate to priced candidates. One share of every outcome pays exactly
// $1.00 at settlement, so any fully priced set costing less is a
// risk-free spread.
type Detector struct {
	cfg    DetectorConfig
	logger *slog.Logger
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg DetectorConfig, logger *slog.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger.With(slog.String("component", "arbitrage"))}
}

// Detect evaluates one candidate and returns its opportunity, or nil
// when it offers none. A candidate with any unpriced leg is skipped
// outright since the cost of the full outcome set cannot be bounded
// without every leg. Fewer than two legs is invalid input.
func (d *Detector) Detect(ctx context.Context, c Candidate) (*domain.ArbitrageOpportunity, error) {
	if c.OutcomeCount() < 2 {
		return nil, fmt.Errorf("arbitrage: candidate %s has %d outcomes: %w", c.Key, c.OutcomeCount(), domain.ErrInvalidInput)
	}
	if !c.Priced() {
		return nil, nil
	}

	asks := c.Asks()
	var total float64
	for _, ask := range asks {
		total += ask
	}
	if total >= 1 {
		return nil, nil
	}

	gross := 1 - total
	net := profit.NetProfit(gross, d.cfg.FeeRate)
	if net < d.cfg.MinProfit {
		return nil, nil
	}

	guarantee, err := profit.Evaluate(asks, profit.Options{
		Alpha:         d.cfg.Alpha,
		MinDivergence: d.cfg.MinDivergence,
		FeeRate:       d.cfg.FeeRate,
	})
	if err != nil {
		return nil, err
	}
	// Divergence gate: edges below MinDivergence are not worth acting
	// on even when the raw arithmetic clears the profit floor.
	if guarantee.KLDivergence < d.cfg.MinDivergence {
		return nil, nil
	}

	opp := &domain.ArbitrageOpportunity{
		ID:           uuid.Must(uuid.NewRandom()).String(),
		Key:          c.Key,
		Kind:         c.Kind,
		Question:     c.Question,
		OutcomeCount: len(asks),
		Asks:         asks,
		TotalCost:    round6(total),
		GrossProfit:  round6(gross),
		NetProfit:    round6(net),
		ROIPct:       round4(net / total * 100),
		Guarantee:    guarantee,
		DetectedAt:   time.Now().UTC(),
	}
	d.logger.DebugContext(ctx, "arbitrage detected",
		slog.String("key", c.Key),
		slog.String("kind", string(c.Kind)),
		slog.Float64("total_cost", opp.TotalCost),
		slog.Float64("net_profit", opp.NetProfit),
		slog.Float64("roi_pct", opp.ROIPct),
		slog.Float64("kl_divergence", guarantee.KLDivergence),
	)
	return opp, nil
}

func round6(x float64) float64 { return math.Round(x*1e6) / 1e6 }

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
