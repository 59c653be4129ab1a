package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"polyarb/internal/server/handler"
	"polyarb/internal/server/middleware"
	"polyarb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	AuthToken      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Scan      *handler.ScanHandler
	Portfolio *handler.PortfolioHandler
}

// Server is the read-only HTTP + WebSocket API over the scanner's state.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (recover, CORS, auth, request logging) and attaches
// the WebSocket hub when one is provided.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Liveness probe.
	mux.HandleFunc("GET /healthz", handlers.Health.HealthCheck)

	// Scan state endpoints.
	mux.HandleFunc("GET /api/v1/status", handlers.Scan.Status)
	mux.HandleFunc("GET /api/v1/opportunities", handlers.Scan.ListOpportunities)

	// Paper-trading portfolio.
	mux.HandleFunc("GET /api/v1/portfolio", handlers.Portfolio.GetPortfolio)

	// WebSocket scan-result feed.
	if wsHub != nil {
		mux.HandleFunc("GET /api/v1/ws", wsHub.HandleWS)
	}

	// Build the middleware chain, outermost first: recover wraps everything,
	// CORS answers preflights before auth can reject them.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.Auth(cfg.AuthToken)(h)
	h = middleware.CORS(cfg.AllowedOrigins)(h)
	h = middleware.Recover(logger)(h)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
