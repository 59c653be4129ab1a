// Package diagnose produces a one-shot market-efficiency report: how close
// the books currently are to an arbitrage, even when nothing is tradable.
// Useful for judging whether the scanner is quiet because the market is
// efficient or because something upstream is broken.
package diagnose

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"polyarb/internal/domain"
	"polyarb/internal/profit"
)

// Config controls how much of the market the diagnostic touches.
type Config struct {
	// MaxMarkets caps the discovery fetch.
	MaxMarkets int
	// DeepScan is how many binary markets (x3) and NegRisk groups get
	// their order books pulled.
	DeepScan int
	// FeeRate is applied to winnings when computing would-be net profit.
	FeeRate float64
}

// DefaultConfig returns the standard diagnostic scope.
func DefaultConfig() Config {
	return Config{
		MaxMarkets: 200,
		DeepScan:   10,
		FeeRate:    profit.DefaultFeeRate,
	}
}

// BinaryRow is one binary market's book summary.
type BinaryRow struct {
	AskSum   float64
	BidSum   float64
	Net      float64
	Question string
}

// Spread is the gap between what sellers ask and buyers bid across both
// outcomes.
func (r BinaryRow) Spread() float64 {
	return r.AskSum - r.BidSum
}

// GroupRow is one NegRisk group's cross-bucket ask summary.
type GroupRow struct {
	Buckets int
	AskSum  float64
	Net     float64
	Label   string
}

// Report is the collected diagnostic output, rows sorted closest-to-arb
// first.
type Report struct {
	TotalMarkets  int
	BinaryMarkets int
	NegRiskTotal  int
	Binary        []BinaryRow
	Groups        []GroupRow
}

// BinaryArbs counts binary rows with positive would-be net profit.
func (r *Report) BinaryArbs() int {
	var n int
	for _, row := range r.Binary {
		if row.Net > 0 {
			n++
		}
	}
	return n
}

// NegRiskArbs counts group rows with positive would-be net profit.
func (r *Report) NegRiskArbs() int {
	var n int
	for _, row := range r.Groups {
		if row.Net > 0 {
			n++
		}
	}
	return n
}

// Runner executes the diagnostic against a price source.
type Runner struct {
	source domain.PriceSource
	cfg    Config
	logger *slog.Logger
}

// NewRunner creates a Runner. Zero-value config fields fall back to
// DefaultConfig.
func NewRunner(source domain.PriceSource, cfg Config, logger *slog.Logger) *Runner {
	def := DefaultConfig()
	if cfg.MaxMarkets <= 0 {
		cfg.MaxMarkets = def.MaxMarkets
	}
	if cfg.DeepScan <= 0 {
		cfg.DeepScan = def.DeepScan
	}
	if cfg.FeeRate <= 0 {
		cfg.FeeRate = def.FeeRate
	}
	return &Runner{
		source: source,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "diagnose")),
	}
}

// Run fetches markets and order books and assembles the efficiency report.
// Individual book fetch failures skip the affected market or group; only a
// failed market discovery aborts the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	markets, err := r.source.FetchMarkets(ctx, domain.MarketFilter{MaxMarkets: r.cfg.MaxMarkets})
	if err != nil {
		return nil, fmt.Errorf("diagnose: fetch markets: %w", err)
	}
	r.logger.InfoContext(ctx, "markets fetched", slog.Int("count", len(markets)))

	report := &Report{TotalMarkets: len(markets)}

	var binary, negrisk []domain.Market
	for _, m := range markets {
		switch {
		case m.Kind == domain.KindBinary && m.OutcomeCount() == 2:
			binary = append(binary, m)
		case m.Kind == domain.KindNegRisk:
			negrisk = append(negrisk, m)
		}
	}
	report.BinaryMarkets = len(binary)
	report.NegRiskTotal = len(negrisk)

	report.Binary = r.scanBinary(ctx, binary)
	report.Groups = r.scanGroups(ctx, negrisk)
	return report, nil
}

// scanBinary pulls books for the first deepScan*3 binary markets and keeps
// those with both sides quoted on both outcomes.
func (r *Runner) scanBinary(ctx context.Context, markets []domain.Market) []BinaryRow {
	limit := r.cfg.DeepScan * 3
	if limit > len(markets) {
		limit = len(markets)
	}

	rows := make([]BinaryRow, 0, limit)
	for _, m := range markets[:limit] {
		if ctx.Err() != nil {
			break
		}
		books, err := r.source.FetchOrderBooks(ctx, m.TokenIDs)
		if err != nil {
			r.logger.DebugContext(ctx, "book fetch failed",
				slog.String("market", m.ID),
				slog.String("error", err.Error()))
			continue
		}

		var askSum, bidSum float64
		quoted := 0
		for _, book := range books {
			if book == nil || book.BestAsk <= 0 || book.BestBid <= 0 {
				continue
			}
			askSum += book.BestAsk
			bidSum += book.BestBid
			quoted++
		}
		if quoted != 2 {
			continue
		}

		rows = append(rows, BinaryRow{
			AskSum:   askSum,
			BidSum:   bidSum,
			Net:      wouldBeNet(askSum, r.cfg.FeeRate),
			Question: truncate(m.Question, 55),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].AskSum < rows[j].AskSum })
	return rows
}

// scanGroups sums the first-token asks across each NegRisk group with at
// least two members. A single unquoted member invalidates its group.
func (r *Runner) scanGroups(ctx context.Context, markets []domain.Market) []GroupRow {
	// Group by leading slug tokens so sibling buckets of one event land
	// together even when the NegRisk ID is missing. Insertion order is
	// kept so the deep-scan cutoff is stable.
	groups := make(map[string][]domain.Market)
	var order []string
	for _, m := range markets {
		parts := strings.Split(m.Slug, "-")
		n := len(parts)
		if n > 4 {
			n = 4
		}
		key := strings.Join(parts[:n], "-")
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	rows := make([]GroupRow, 0, r.cfg.DeepScan)
	scanned := 0
	for _, key := range order {
		if scanned >= r.cfg.DeepScan || ctx.Err() != nil {
			break
		}
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		scanned++

		var totalAsk float64
		valid := true
		for _, m := range group {
			if len(m.TokenIDs) == 0 {
				valid = false
				break
			}
			book, err := r.source.FetchOrderBook(ctx, m.TokenIDs[0])
			if err != nil || !book.HasAsk() {
				valid = false
				break
			}
			totalAsk += book.BestAsk
		}
		if !valid {
			continue
		}

		rows = append(rows, GroupRow{
			Buckets: len(group),
			AskSum:  totalAsk,
			Net:     wouldBeNet(totalAsk, r.cfg.FeeRate),
			Label:   truncate(group[0].Question, 50),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].AskSum < rows[j].AskSum })
	return rows
}

// wouldBeNet is the profit of buying the full set at askSum: fees apply to
// winnings only, so losses are not discounted.
func wouldBeNet(askSum, feeRate float64) float64 {
	gross := 1.0 - askSum
	if gross > 0 {
		return gross * (1.0 - feeRate)
	}
	return gross
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
