package paper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyarb/internal/domain"
	"polyarb/internal/store/jsonl"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func opp(key string, cost, net float64) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		Key:       key,
		Question:  "Will " + key + " happen?",
		TotalCost: cost,
		NetProfit: net,
		ROIPct:    net / cost * 100,
	}
}

func TestPortfolio_AccumulatesTotals(t *testing.T) {
	p, err := NewPortfolio(context.Background(), nil, discardLogger())
	require.NoError(t, err)

	p.Record(context.Background(), opp("m1", 0.90, 0.098))
	p.Record(context.Background(), opp("m2", 0.93, 0.0686))

	totals := p.Totals()
	assert.Equal(t, int64(2), totals.Trades)
	assert.InDelta(t, 1.83, totals.Invested, 1e-9)
	assert.InDelta(t, 0.1666, totals.Profit, 1e-9)
	assert.InDelta(t, 0.1666/1.83*100, totals.ROIPct(), 1e-9)
}

func TestPortfolio_EmptyPortfolioHasZeroROI(t *testing.T) {
	p, err := NewPortfolio(context.Background(), nil, discardLogger())
	require.NoError(t, err)

	assert.Zero(t, p.Totals().ROIPct())
}

func TestPortfolio_RecordResultFillsEveryOpportunity(t *testing.T) {
	p, err := NewPortfolio(context.Background(), nil, discardLogger())
	require.NoError(t, err)

	result := &domain.ScanResult{Opportunities: []domain.ArbitrageOpportunity{
		opp("m1", 0.90, 0.098),
		opp("m2", 0.95, 0.04),
	}}
	trades := p.RecordResult(context.Background(), result)

	require.Len(t, trades, 2)
	assert.Equal(t, "m1", trades[0].MarketKey)
	assert.Equal(t, "m2", trades[1].MarketKey)
	assert.NotEmpty(t, trades[0].ID)
	assert.NotEqual(t, trades[0].ID, trades[1].ID)
}

func TestPortfolio_TruncatesLongQuestions(t *testing.T) {
	p, err := NewPortfolio(context.Background(), nil, discardLogger())
	require.NoError(t, err)

	long := opp("m1", 0.90, 0.05)
	long.Question = strings.Repeat("x", 200)

	trade := p.Record(context.Background(), long)
	assert.Len(t, trade.Question, maxQuestionLen)
}

func TestPortfolio_TotalsSurviveRestartThroughLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")

	ledger, err := jsonl.NewTradeStore(path, 100, discardLogger())
	require.NoError(t, err)
	p, err := NewPortfolio(context.Background(), ledger, discardLogger())
	require.NoError(t, err)

	p.Record(context.Background(), opp("m1", 0.90, 0.098))
	p.Record(context.Background(), opp("m2", 0.93, 0.0686))

	// Fresh ledger and portfolio over the same file.
	ledger2, err := jsonl.NewTradeStore(path, 100, discardLogger())
	require.NoError(t, err)
	p2, err := NewPortfolio(context.Background(), ledger2, discardLogger())
	require.NoError(t, err)

	totals := p2.Totals()
	assert.Equal(t, int64(2), totals.Trades)
	assert.InDelta(t, 1.83, totals.Invested, 1e-9)
	assert.InDelta(t, 0.1666, totals.Profit, 1e-9)
}

type failingLedger struct{}

func (failingLedger) Record(context.Context, domain.PaperTrade) error { return errors.New("disk full") }
func (failingLedger) ListRecent(context.Context, int) ([]domain.PaperTrade, error) {
	return nil, nil
}
func (failingLedger) Totals(context.Context) (domain.PaperTotals, error) {
	return domain.PaperTotals{}, nil
}

func TestPortfolio_LedgerFailureStillAdvancesTotals(t *testing.T) {
	p, err := NewPortfolio(context.Background(), failingLedger{}, discardLogger())
	require.NoError(t, err)

	p.Record(context.Background(), opp("m1", 0.90, 0.098))

	assert.Equal(t, int64(1), p.Totals().Trades)
}
