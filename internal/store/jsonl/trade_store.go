// Package jsonl implements the paper-trading ledger as an append-only JSONL
// file, one trade per line. This is the standalone backend used when
// Postgres is not configured.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"polyarb/internal/domain"
)

// TradeStore implements domain.PaperLedger on a local JSONL file. An
// in-memory window of the newest trades serves reads; totals cover the whole
// file history.
type TradeStore struct {
	path      string
	maxMemory int
	logger    *slog.Logger

	mu     sync.Mutex
	recent []domain.PaperTrade
	totals domain.PaperTotals
}

var _ domain.PaperLedger = (*TradeStore)(nil)

// NewTradeStore opens (or creates on first write) the ledger at path and
// replays the existing history. Malformed lines are skipped with a warning.
func NewTradeStore(path string, maxMemory int, logger *slog.Logger) (*TradeStore, error) {
	if maxMemory <= 0 {
		maxMemory = 1000
	}
	s := &TradeStore{
		path:      path,
		maxMemory: maxMemory,
		logger:    logger.With(slog.String("component", "paper_ledger")),
	}
	if err := s.replay(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TradeStore) replay() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jsonl: open %s: %w", s.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var t domain.PaperTrade
		if err := json.Unmarshal(raw, &t); err != nil {
			s.logger.Warn("skipping malformed ledger line",
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.remember(t)
		s.tally(t)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("jsonl: read %s: %w", s.path, err)
	}
	return nil
}

// remember appends to the in-memory window, dropping the oldest entries once
// the window is full.
func (s *TradeStore) remember(t domain.PaperTrade) {
	s.recent = append(s.recent, t)
	if len(s.recent) > s.maxMemory {
		s.recent = s.recent[len(s.recent)-s.maxMemory:]
	}
}

func (s *TradeStore) tally(t domain.PaperTrade) {
	s.totals.Trades++
	s.totals.Invested += t.TotalCost
	s.totals.Profit += t.NetProfit
}

// Record appends the trade to the file and to the in-memory window.
func (s *TradeStore) Record(ctx context.Context, trade domain.PaperTrade) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("jsonl: marshal trade: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl: open %s: %w", s.path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("jsonl: append trade: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("jsonl: close %s: %w", s.path, err)
	}

	s.remember(trade)
	s.tally(trade)
	return nil
}

// ListRecent returns up to limit trades from the in-memory window, newest
// first. A non-positive limit returns the whole window.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.PaperTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.PaperTrade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.recent[i])
	}
	return out, nil
}

// Totals aggregates the full ledger history, including trades written before
// this process started.
func (s *TradeStore) Totals(ctx context.Context) (domain.PaperTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals, nil
}
