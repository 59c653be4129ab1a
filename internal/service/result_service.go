// Package service fans each completed scan cycle out to its sinks:
// persistence, the Redis bus, notifications, the S3 archive, the live
// WebSocket feed, the paper portfolio and the heartbeat file. Every
// sink is optional and every sink failure is isolated; a cycle is
// never lost because one consumer misbehaved.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"polyarb/internal/domain"
	"polyarb/internal/health"
	"polyarb/internal/notify"
	"polyarb/internal/paper"
)

// Broadcaster pushes a scan result to live consumers (the WS hub).
type Broadcaster interface {
	Broadcast(result *domain.ScanResult)
}

// Sinks bundles the optional consumers of a scan cycle. Nil fields are
// skipped.
type Sinks struct {
	Opportunities domain.OpportunityStore
	Bus           domain.ResultBus
	Notifier      *notify.Notifier
	Archiver      *Archiver
	Hub           Broadcaster
	Portfolio     *paper.Portfolio
	Heartbeat     *health.Writer
}

// ResultService receives each cycle's ScanResult, holds the latest one
// for the API layer, and distributes it to the configured sinks.
type ResultService struct {
	sinks  Sinks
	logger *slog.Logger

	mu     sync.RWMutex
	latest *domain.ScanResult
}

// NewResultService creates a ResultService delivering to sinks.
func NewResultService(sinks Sinks, logger *slog.Logger) *ResultService {
	return &ResultService{
		sinks:  sinks,
		logger: logger.With(slog.String("component", "results")),
	}
}

// Record takes ownership of one completed cycle. The result is handed
// off whole before any sink runs, so API readers always see a complete
// cycle. Sink failures are logged and collected; the returned error is
// informational and never aborts the scan loop.
func (s *ResultService) Record(ctx context.Context, result *domain.ScanResult) error {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	var failures []string
	fail := func(sink string, err error) {
		s.logger.WarnContext(ctx, "result sink failed",
			slog.String("sink", sink),
			slog.String("error", err.Error()),
		)
		failures = append(failures, fmt.Sprintf("%s: %v", sink, err))
	}

	if s.sinks.Opportunities != nil && len(result.Opportunities) > 0 {
		if err := s.sinks.Opportunities.SaveAll(ctx, result.Opportunities); err != nil {
			fail("store", err)
		}
	}

	if s.sinks.Bus != nil {
		if err := s.sinks.Bus.Publish(ctx, result); err != nil {
			fail("bus", err)
		}
	}

	if s.sinks.Archiver != nil {
		if err := s.sinks.Archiver.Archive(ctx, result); err != nil {
			fail("archive", err)
		}
	}

	if s.sinks.Hub != nil {
		s.sinks.Hub.Broadcast(result)
	}

	if s.sinks.Portfolio != nil && len(result.Opportunities) > 0 {
		trades := s.sinks.Portfolio.RecordResult(ctx, result)
		s.logger.InfoContext(ctx, "paper trades recorded",
			slog.Int("trades", len(trades)),
			slog.Float64("invested", sumCost(trades)),
		)
	}

	if s.sinks.Notifier != nil {
		if err := s.sinks.Notifier.Opportunities(ctx, result); err != nil {
			fail("notify", err)
		}
	}

	if s.sinks.Heartbeat != nil {
		if err := s.sinks.Heartbeat.Write(result); err != nil {
			fail("heartbeat", err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("service: %d sink(s) failed: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

// Latest returns the most recently recorded scan result, or nil before
// the first cycle completes.
func (s *ResultService) Latest() *domain.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// PaperTotals reports the paper portfolio standings. The second return
// is false when paper trading is not active.
func (s *ResultService) PaperTotals() (domain.PaperTotals, bool) {
	if s.sinks.Portfolio == nil {
		return domain.PaperTotals{}, false
	}
	return s.sinks.Portfolio.Totals(), true
}

func sumCost(trades []domain.PaperTrade) float64 {
	var total float64
	for _, t := range trades {
		total += t.TotalCost
	}
	return total
}
