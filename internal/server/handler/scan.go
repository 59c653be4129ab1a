package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"polyarb/internal/domain"
)

// ResultProvider exposes the most recent completed scan cycle.
type ResultProvider interface {
	Latest() *domain.ScanResult
}

// OpportunityHistory reads persisted opportunities. Used as a fallback so the
// API can serve data from earlier runs before the first cycle completes.
type OpportunityHistory interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error)
}

// ScanHandler serves scan status and opportunity endpoints.
type ScanHandler struct {
	results ResultProvider
	history OpportunityHistory // optional
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler with the given provider and logger.
func NewScanHandler(results ResultProvider, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{results: results, logger: logger}
}

// WithHistory sets the persisted-opportunity fallback store.
func (h *ScanHandler) WithHistory(history OpportunityHistory) *ScanHandler {
	h.history = history
	return h
}

// Status reports metadata about the last completed scan cycle.
// GET /api/v1/status
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	result := h.results.Latest()
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "starting",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"started_at":       result.StartedAt.UTC().Format(time.RFC3339),
		"elapsed_ms":       result.Elapsed.Milliseconds(),
		"markets_scanned":  result.MarketsScanned,
		"candidates_found": result.CandidatesFound,
		"deep_scanned":     result.DeepScanned,
		"opportunities":    len(result.Opportunities),
		"total_net_profit": result.TotalProfit(),
		"errors":           len(result.Errors),
	})
}

// listOpportunitiesResponse wraps the list opportunities response.
type listOpportunitiesResponse struct {
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
	AsOf          string                        `json:"as_of,omitempty"`
}

// ListOpportunities returns the ranked opportunities from the latest cycle.
// Before the first cycle completes it falls back to the persisted history
// when a store is configured.
// GET /api/v1/opportunities?limit=50
func (h *ScanHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 200)

	if result := h.results.Latest(); result != nil {
		opps := result.Opportunities
		if len(opps) > limit {
			opps = opps[:limit]
		}
		if opps == nil {
			opps = []domain.ArbitrageOpportunity{}
		}
		writeJSON(w, http.StatusOK, listOpportunitiesResponse{
			Opportunities: opps,
			AsOf:          result.StartedAt.UTC().Format(time.RFC3339),
		})
		return
	}

	if h.history == nil {
		writeJSON(w, http.StatusOK, listOpportunitiesResponse{
			Opportunities: []domain.ArbitrageOpportunity{},
		})
		return
	}

	opps, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunitiesResponse{Opportunities: opps})
}
