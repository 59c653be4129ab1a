// Package scanner orchestrates the scan cycle: fetch active markets,
// filter, pre-filter buckets on embedded midpoints, deep scan the
// survivors' order books and rank the detected opportunities.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"polyarb/internal/arbitrage"
	"polyarb/internal/domain"
)

// Config configures the scan pipeline.
type Config struct {
	MaxMarkets      int     // cap on markets fetched per cycle
	MinLiquidity    float64 // drop markets under this liquidity
	MinVolume       float64 // drop markets under this volume
	UseOrderBooks   bool    // false evaluates midpoints only, no deep scan
	PrefilterMargin float64 // slack above $1.00 for the midpoint pre-filter
	Concurrency     int     // parallel book fetches during deep scan
}

// ResultSink receives each completed scan cycle.
type ResultSink interface {
	Record(ctx context.Context, result *domain.ScanResult) error
}

// Scanner runs scan cycles against a price source.
type Scanner struct {
	source   domain.PriceSource
	detector *arbitrage.Detector
	cfg      Config
	logger   *slog.Logger
}

// NewScanner creates a scanner. A non-positive concurrency falls back
// to 10 parallel fetches.
func NewScanner(source domain.PriceSource, detector *arbitrage.Detector, cfg Config, logger *slog.Logger) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &Scanner{
		source:   source,
		detector: detector,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scanner")),
	}
}

// Scan runs one full cycle. Upstream failures degrade the cycle, a
// total market-fetch outage yields an empty result with the error
// recorded, and a single candidate's failure never blocks the rest.
func (s *Scanner) Scan(ctx context.Context) *domain.ScanResult {
	result := &domain.ScanResult{StartedAt: time.Now().UTC()}
	defer func() { result.Elapsed = time.Since(result.StartedAt) }()

	markets, err := s.source.FetchMarkets(ctx, domain.MarketFilter{MaxMarkets: s.cfg.MaxMarkets})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch markets: %v", err))
		s.logger.Error("market fetch failed", slog.String("error", err.Error()))
		return result
	}

	markets = s.filterMarkets(markets)
	result.MarketsScanned = len(markets)

	candidates, buildErrs := arbitrage.BuildCandidates(markets)
	for _, buildErr := range buildErrs {
		result.Errors = append(result.Errors, buildErr.Error())
		s.logger.Warn("rejected market", slog.String("error", buildErr.Error()))
	}

	candidates = s.prefilter(candidates)
	result.CandidatesFound = len(candidates)
	s.logger.Info("scan cycle started",
		slog.Int("markets", result.MarketsScanned),
		slog.Int("candidates", len(candidates)),
		slog.Bool("order_books", s.cfg.UseOrderBooks),
	)

	var opps []domain.ArbitrageOpportunity
	if s.cfg.UseOrderBooks {
		opps = s.deepScan(ctx, candidates, result)
	} else {
		opps = s.fastScan(ctx, candidates, result)
	}

	Rank(opps)
	result.Opportunities = opps

	s.logger.Info("scan cycle complete",
		slog.Int("opportunities", len(opps)),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("elapsed", time.Since(result.StartedAt)),
	)
	return result
}

func (s *Scanner) filterMarkets(markets []domain.Market) []domain.Market {
	filtered := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if !m.Active {
			continue
		}
		if m.Liquidity < s.cfg.MinLiquidity || m.Volume < s.cfg.MinVolume {
			continue
		}
		if m.OutcomeCount() < 2 {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

// prefilter keeps buckets whose embedded midpoints still leave room
// under the payout, with a margin of slack for the midpoint-to-ask
// spread. The margin errs toward keeping: a bucket the deep scan
// would accept is never dropped here.
func (s *Scanner) prefilter(candidates []arbitrage.Candidate) []arbitrage.Candidate {
	limit := 1 + s.cfg.PrefilterMargin
	kept := make([]arbitrage.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.MidpointTotal() < limit {
			kept = append(kept, c)
		}
	}
	return kept
}

// deepScan fetches order books for every surviving candidate, bounded
// by the configured concurrency, and runs detection on real asks.
func (s *Scanner) deepScan(ctx context.Context, candidates []arbitrage.Candidate, result *domain.ScanResult) []domain.ArbitrageOpportunity {
	result.DeepScanned = len(candidates)

	found := make([]*domain.ArbitrageOpportunity, len(candidates))
	scanErrs := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			opp, err := s.checkCandidate(gctx, candidates[i])
			if err != nil {
				scanErrs[i] = err
				return nil
			}
			found[i] = opp
			return nil
		})
	}
	_ = g.Wait() // workers record failures instead of returning them

	var opps []domain.ArbitrageOpportunity
	for i := range candidates {
		if scanErrs[i] != nil {
			result.Errors = append(result.Errors, scanErrs[i].Error())
			s.logger.Warn("candidate scan failed", slog.String("error", scanErrs[i].Error()))
			continue
		}
		if found[i] != nil {
			opps = append(opps, *found[i])
		}
	}
	return opps
}

// checkCandidate prices a candidate's legs from its order books and
// runs detection. A fetch failure degrades to skipping this candidate.
func (s *Scanner) checkCandidate(ctx context.Context, c arbitrage.Candidate) (*domain.ArbitrageOpportunity, error) {
	books, err := s.source.FetchOrderBooks(ctx, c.TokenIDs())
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", c.Key, err)
	}
	if len(books) != len(c.Legs) {
		return nil, fmt.Errorf("scanning %s: got %d books for %d legs", c.Key, len(books), len(c.Legs))
	}
	for i := range c.Legs {
		if books[i] == nil {
			continue // leg stays unpriced, detection skips the candidate
		}
		c.Legs[i].BestAsk = books[i].BestAsk
		c.Legs[i].BestBid = books[i].BestBid
	}
	return s.detector.Detect(ctx, c)
}

// fastScan evaluates candidates on midpoints alone, trading accuracy
// for zero extra API calls. Midpoints sit below real asks, so costs
// are understated and results are screening grade.
func (s *Scanner) fastScan(ctx context.Context, candidates []arbitrage.Candidate, result *domain.ScanResult) []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity
	for _, c := range candidates {
		for i := range c.Legs {
			c.Legs[i].BestAsk = c.Midpoints[i]
		}
		opp, err := s.detector.Detect(ctx, c)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if opp != nil {
			opps = append(opps, *opp)
		}
	}
	return opps
}

// Rank orders opportunities by ROI descending, ties by net profit
// descending, then by key ascending for deterministic output.
func Rank(opps []domain.ArbitrageOpportunity) {
	sort.Slice(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.ROIPct != b.ROIPct {
			return a.ROIPct > b.ROIPct
		}
		if a.NetProfit != b.NetProfit {
			return a.NetProfit > b.NetProfit
		}
		return a.Key < b.Key
	})
}

// RunLoop scans on a repeating interval until the context is
// cancelled, handing each cycle's result to the sink before the next
// cycle starts.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration, sink ResultSink) error {
	// Run immediately on start.
	s.runOnce(ctx, sink)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx, sink)
		}
	}
}

func (s *Scanner) runOnce(ctx context.Context, sink ResultSink) {
	result := s.Scan(ctx)
	if ctx.Err() != nil {
		return
	}
	if err := sink.Record(ctx, result); err != nil {
		s.logger.Error("record scan result failed", slog.String("error", err.Error()))
	}
}
