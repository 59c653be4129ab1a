package handler

import (
	"log/slog"
	"net/http"
	"time"

	"polyarb/internal/health"
)

// HealthHandler serves the liveness endpoint. When a heartbeat path is
// configured it also reflects scan-loop freshness, so an orchestrator probe
// fails when the process is up but the scanner has stalled.
type HealthHandler struct {
	heartbeatPath string
	stale         time.Duration
	logger        *slog.Logger
}

// NewHealthHandler creates a HealthHandler. heartbeatPath may be empty, in
// which case the endpoint reports process liveness only.
func NewHealthHandler(heartbeatPath string, stale time.Duration, logger *slog.Logger) *HealthHandler {
	if stale <= 0 {
		stale = health.DefaultStaleThreshold
	}
	return &HealthHandler{heartbeatPath: heartbeatPath, stale: stale, logger: logger}
}

// HealthCheck responds with the server status.
// GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)

	if h.heartbeatPath == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": now,
		})
		return
	}

	if health.Check(h.heartbeatPath, h.stale) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"heartbeat": "fresh",
			"timestamp": now,
		})
		return
	}

	logHandler(h.logger, "health").Warn("heartbeat missing or stale",
		slog.String("path", h.heartbeatPath),
		slog.Duration("threshold", h.stale))
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"status":    "unhealthy",
		"heartbeat": "missing or stale",
		"timestamp": now,
	})
}
