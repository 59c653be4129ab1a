package handler

import (
	"log/slog"
	"net/http"

	"polyarb/internal/domain"
)

// PortfolioReader exposes paper-trading totals. The bool reports whether
// paper trading is active at all.
type PortfolioReader interface {
	PaperTotals() (domain.PaperTotals, bool)
}

// PortfolioHandler serves the paper-trading portfolio endpoint.
type PortfolioHandler struct {
	portfolio PortfolioReader
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given reader.
func NewPortfolioHandler(portfolio PortfolioReader, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, logger: logger}
}

// GetPortfolio returns cumulative paper-trading totals.
// GET /api/v1/portfolio
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	totals, enabled := h.portfolio.PaperTotals()
	if !enabled {
		writeError(w, http.StatusNotImplemented, "paper trading not enabled")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades":       totals.Trades,
		"invested_usd": totals.Invested,
		"profit_usd":   totals.Profit,
		"roi_pct":      totals.ROIPct(),
	})
}
