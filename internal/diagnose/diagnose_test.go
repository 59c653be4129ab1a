package diagnose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyarb/internal/domain"
)

type fakeSource struct {
	markets    []domain.Market
	marketsErr error
	books      map[string]*domain.OrderBook
}

var _ domain.PriceSource = (*fakeSource)(nil)

func (f *fakeSource) FetchMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error) {
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	return f.markets, nil
}

func (f *fakeSource) FetchMidpoint(ctx context.Context, tokenID string) (float64, error) {
	return 0, domain.ErrPriceUnavailable
}

func (f *fakeSource) FetchBestAsk(ctx context.Context, tokenID string) (float64, error) {
	if b, ok := f.books[tokenID]; ok {
		return b.BestAsk, nil
	}
	return 0, domain.ErrPriceUnavailable
}

func (f *fakeSource) FetchOrderBook(ctx context.Context, tokenID string) (*domain.OrderBook, error) {
	if b, ok := f.books[tokenID]; ok {
		return b, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSource) FetchOrderBooks(ctx context.Context, tokenIDs []string) ([]*domain.OrderBook, error) {
	out := make([]*domain.OrderBook, len(tokenIDs))
	for i, id := range tokenIDs {
		out[i] = f.books[id]
	}
	return out, nil
}

func testRunner(src domain.PriceSource) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(src, DefaultConfig(), logger)
}

func binaryMarket(id, question string) domain.Market {
	return domain.Market{
		ID:       id,
		Question: question,
		Slug:     id,
		Kind:     domain.KindBinary,
		Outcomes: []string{"Yes", "No"},
		TokenIDs: []string{id + "-yes", id + "-no"},
		Active:   true,
	}
}

func negRiskMarket(id, slug string) domain.Market {
	return domain.Market{
		ID:       id,
		Question: "Will " + id + " win?",
		Slug:     slug,
		Kind:     domain.KindNegRisk,
		Outcomes: []string{"Yes", "No"},
		TokenIDs: []string{id + "-yes", id + "-no"},
		Active:   true,
	}
}

func book(bid, ask float64) *domain.OrderBook {
	return &domain.OrderBook{
		BestBid:   bid,
		BestAsk:   ask,
		MidPrice:  (bid + ask) / 2,
		Timestamp: time.Now().UTC(),
	}
}

func TestRun_BinaryRowsSortedByAskSum(t *testing.T) {
	src := &fakeSource{
		markets: []domain.Market{
			binaryMarket("wide", "Will the wide market resolve yes?"),
			binaryMarket("tight", "Will the tight market resolve yes?"),
		},
		books: map[string]*domain.OrderBook{
			"wide-yes":  book(0.50, 0.56),
			"wide-no":   book(0.42, 0.48),
			"tight-yes": book(0.46, 0.47),
			"tight-no":  book(0.47, 0.48),
		},
	}

	report, err := testRunner(src).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalMarkets)
	assert.Equal(t, 2, report.BinaryMarkets)
	require.Len(t, report.Binary, 2)

	// tight: ask sum 0.95, closest to arb, listed first
	assert.InDelta(t, 0.95, report.Binary[0].AskSum, 1e-9)
	assert.InDelta(t, 0.93, report.Binary[0].BidSum, 1e-9)
	assert.InDelta(t, 0.02, report.Binary[0].Spread(), 1e-9)
	assert.InDelta(t, 0.05*0.98, report.Binary[0].Net, 1e-9)

	// wide: ask sum 1.04, negative net, no fee discount on losses
	assert.InDelta(t, 1.04, report.Binary[1].AskSum, 1e-9)
	assert.InDelta(t, -0.04, report.Binary[1].Net, 1e-9)

	assert.Equal(t, 1, report.BinaryArbs())
}

func TestRun_SkipsBinaryMarketsWithOneSidedBooks(t *testing.T) {
	src := &fakeSource{
		markets: []domain.Market{binaryMarket("thin", "Will the thin market resolve yes?")},
		books: map[string]*domain.OrderBook{
			"thin-yes": book(0.45, 0.47),
			"thin-no":  {BestAsk: 0.48}, // no bid
		},
	}

	report, err := testRunner(src).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Binary)
}

func TestRun_GroupsNegRiskBySlugPrefix(t *testing.T) {
	src := &fakeSource{
		markets: []domain.Market{
			negRiskMarket("alpha", "us-election-2028-winner-alpha"),
			negRiskMarket("beta", "us-election-2028-winner-beta"),
			negRiskMarket("gamma", "us-election-2028-winner-gamma"),
			negRiskMarket("lone", "some-other-event-entirely"),
		},
		books: map[string]*domain.OrderBook{
			"alpha-yes": book(0.30, 0.32),
			"beta-yes":  book(0.28, 0.30),
			"gamma-yes": book(0.29, 0.31),
		},
	}

	report, err := testRunner(src).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.NegRiskTotal)
	require.Len(t, report.Groups, 1, "single-member groups are skipped")

	group := report.Groups[0]
	assert.Equal(t, 3, group.Buckets)
	assert.InDelta(t, 0.32+0.30+0.31, group.AskSum, 1e-9)
	assert.InDelta(t, 1.0-group.AskSum, group.Net, 1e-9)
	assert.Equal(t, "Will alpha win?", group.Label)
}

func TestRun_UnquotedMemberInvalidatesGroup(t *testing.T) {
	src := &fakeSource{
		markets: []domain.Market{
			negRiskMarket("alpha", "us-election-2028-winner-alpha"),
			negRiskMarket("beta", "us-election-2028-winner-beta"),
		},
		books: map[string]*domain.OrderBook{
			"alpha-yes": book(0.30, 0.32),
			// beta has no book at all
		},
	}

	report, err := testRunner(src).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Groups)
}

func TestRun_MarketFetchFailureAborts(t *testing.T) {
	src := &fakeSource{
		marketsErr: fmt.Errorf("gamma GET /markets: %w", domain.ErrUpstream),
	}

	report, err := testRunner(src).Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestRender_MarksArbRowsAndSummarizes(t *testing.T) {
	report := &Report{
		TotalMarkets:  10,
		BinaryMarkets: 4,
		NegRiskTotal:  6,
		Binary: []BinaryRow{
			{AskSum: 0.96, BidSum: 0.94, Net: 0.0392, Question: "Cheap market"},
			{AskSum: 1.03, BidSum: 1.00, Net: -0.03, Question: "Expensive market"},
		},
		Groups: []GroupRow{
			{Buckets: 3, AskSum: 1.02, Net: -0.02, Label: "Some event"},
		},
	}

	var buf bytes.Buffer
	report.Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "** ARB ** Cheap market")
	assert.NotContains(t, out, "** ARB ** Expensive market")
	assert.Contains(t, out, "Binary arbitrage opportunities:  1")
	assert.Contains(t, out, "NegRisk arbitrage opportunities: 0")
	assert.Contains(t, out, "ask sum $0.9600")
}
