package jsonl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyarb/internal/domain"
)

func newTestStore(t *testing.T, path string, maxMemory int) *TradeStore {
	t.Helper()
	s, err := NewTradeStore(path, maxMemory, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func sampleTrade(id string, cost, profit float64) domain.PaperTrade {
	return domain.PaperTrade{
		ID:         id,
		MarketKey:  "mkt-" + id,
		Question:   "Will it settle?",
		TotalCost:  cost,
		NetProfit:  profit,
		ROIPct:     profit / cost * 100,
		ExecutedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestTradeStore_AppendsAndReplays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	ctx := context.Background()

	s := newTestStore(t, path, 100)
	require.NoError(t, s.Record(ctx, sampleTrade("1", 0.90, 0.098)))
	require.NoError(t, s.Record(ctx, sampleTrade("2", 0.93, 0.0686)))
	require.NoError(t, s.Record(ctx, sampleTrade("3", 0.80, 0.196)))

	// Fresh store on the same file sees the full history.
	s2 := newTestStore(t, path, 100)

	trades, err := s2.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "3", trades[0].ID, "newest first")
	assert.Equal(t, "1", trades[2].ID)

	totals, err := s2.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Trades)
	assert.InDelta(t, 2.63, totals.Invested, 1e-9)
	assert.InDelta(t, 0.3626, totals.Profit, 1e-9)
	assert.InDelta(t, 0.3626/2.63*100, totals.ROIPct(), 1e-9)
}

func TestTradeStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	body := `{"id":"1","market_id":"mkt-1","total_cost":0.9,"net_profit":0.098,"roi_pct":10.89,"timestamp":"2026-08-25T12:00:00Z"}
this is not json
{"id":"2","market_id":"mkt-2","total_cost":0.8,"net_profit":0.196,"roi_pct":24.5,"timestamp":"2026-08-25T12:01:00Z"}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s := newTestStore(t, path, 100)

	totals, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Trades)

	trades, err := s.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "2", trades[0].ID)
}

func TestTradeStore_CapsMemoryButCountsAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	ctx := context.Background()

	s := newTestStore(t, path, 2)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, s.Record(ctx, sampleTrade(id, 0.9, 0.05)))
	}

	trades, err := s.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2, "memory window holds only the newest trades")
	assert.Equal(t, "5", trades[0].ID)
	assert.Equal(t, "4", trades[1].ID)

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), totals.Trades, "totals cover the full history")
}

func TestTradeStore_ListRecentHonorsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	ctx := context.Background()

	s := newTestStore(t, path, 100)
	require.NoError(t, s.Record(ctx, sampleTrade("1", 0.9, 0.05)))
	require.NoError(t, s.Record(ctx, sampleTrade("2", 0.9, 0.05)))

	trades, err := s.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2", trades[0].ID)
}

func TestTradeStore_MissingFileStartsEmpty(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "absent.jsonl"), 100)

	totals, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.Trades)
	assert.Zero(t, totals.ROIPct())
}
