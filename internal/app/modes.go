package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"polyarb/internal/arbitrage"
	"polyarb/internal/diagnose"
	"polyarb/internal/domain"
	"polyarb/internal/health"
	"polyarb/internal/paper"
	"polyarb/internal/scanner"
	"polyarb/internal/server"
	"polyarb/internal/server/handler"
	"polyarb/internal/server/ws"
	"polyarb/internal/service"
)

// ScanMode runs the scan loop together with the optional HTTP/WS surface.
// It blocks until the context is cancelled or a subsystem fails.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
		slog.Bool("paper", a.cfg.Scan.Paper),
		slog.Bool("orderbooks", a.cfg.Scan.UseOrderBooks),
	)

	g, ctx := errgroup.WithContext(ctx)

	scan := a.buildScanner(deps)
	svc, hub, err := a.buildResultService(ctx, deps, true)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	detail := fmt.Sprintf("interval=%s min_profit=$%.4f max_markets=%d paper=%v",
		a.cfg.Scan.Interval.Duration, a.cfg.Scan.MinProfit, a.cfg.Scan.MaxMarkets, a.cfg.Scan.Paper)
	if err := deps.Notifier.Startup(ctx, detail); err != nil {
		a.logger.WarnContext(ctx, "startup notification failed", slog.String("error", err.Error()))
	}

	g.Go(func() error {
		return scan.RunLoop(ctx, a.cfg.Scan.Interval.Duration, svc)
	})

	if hub != nil {
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svc, hub)
	}

	waitErr := g.Wait()

	// The loop context is gone by now; give the farewell its own deadline.
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := deps.Notifier.Shutdown(shutCtx, a.sessionSummary(svc)); err != nil {
		a.logger.Warn("shutdown notification failed", slog.String("error", err.Error()))
	}

	return waitErr
}

// OnceMode runs a single scan cycle, records it through the persistence
// sinks, and prints the outcome as plain-text tables.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting single scan",
		slog.Bool("paper", a.cfg.Scan.Paper),
	)

	scan := a.buildScanner(deps)
	svc, _, err := a.buildResultService(ctx, deps, false)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}

	result := scan.Scan(ctx)
	if err := svc.Record(ctx, result); err != nil {
		a.logger.WarnContext(ctx, "recording scan result failed", slog.String("error", err.Error()))
	}

	printResultTable(os.Stdout, result)
	if totals, ok := svc.PaperTotals(); ok {
		printPaperTotals(os.Stdout, totals)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(os.Stdout, "error: %s\n", msg)
	}
	fmt.Fprintf(os.Stdout, "\nScan completed in %.1fs, found %d opportunities\n",
		result.Elapsed.Seconds(), len(result.Opportunities))

	return nil
}

// DiagnoseMode prints the one-shot market-efficiency report.
func (a *App) DiagnoseMode(ctx context.Context, deps *Dependencies) error {
	runner := diagnose.NewRunner(deps.Source, diagnose.Config{
		MaxMarkets: a.cfg.Scan.MaxMarkets,
		FeeRate:    a.cfg.Scan.FeeRate,
	}, a.logger)

	report, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("diagnose mode: %w", err)
	}
	report.Render(os.Stdout)
	return nil
}

// CheckHealthMode probes the heartbeat file and prints OK or UNHEALTHY. A
// non-nil return makes the process exit non-zero, which is what cron and
// container health checks key on.
func (a *App) CheckHealthMode(_ context.Context) error {
	path := a.cfg.Health.HeartbeatFile
	if health.Check(path, a.cfg.Health.StaleThreshold.Duration) {
		fmt.Println("OK")
		return nil
	}
	fmt.Println("UNHEALTHY")
	return fmt.Errorf("app: heartbeat at %s is missing or stale", path)
}

// buildScanner assembles the detector and scanner from config.
func (a *App) buildScanner(deps *Dependencies) *scanner.Scanner {
	det := arbitrage.NewDetector(arbitrage.DetectorConfig{
		FeeRate:       a.cfg.Scan.FeeRate,
		MinProfit:     a.cfg.Scan.MinProfit,
		Alpha:         a.cfg.Scan.Alpha,
		MinDivergence: a.cfg.Scan.MinDivergence,
	}, a.logger)

	return scanner.NewScanner(deps.Source, det, scanner.Config{
		MaxMarkets:      a.cfg.Scan.MaxMarkets,
		MinLiquidity:    a.cfg.Scan.MinLiquidity,
		MinVolume:       a.cfg.Scan.MinVolume,
		UseOrderBooks:   a.cfg.Scan.UseOrderBooks,
		PrefilterMargin: a.cfg.Scan.PrefilterMargin,
		Concurrency:     a.cfg.API.Concurrency,
	}, a.logger)
}

// buildResultService assembles the per-cycle sink fan-out. live enables the
// sinks that only make sense for a long-running process: notifications, the
// heartbeat file, and the WebSocket hub.
func (a *App) buildResultService(ctx context.Context, deps *Dependencies, live bool) (*service.ResultService, *ws.Hub, error) {
	sinks := service.Sinks{
		Opportunities: deps.OppStore,
		Bus:           deps.Bus,
	}

	if deps.Blob != nil {
		sinks.Archiver = service.NewArchiver(deps.Blob, a.cfg.S3.Prefix, a.logger)
	}

	if a.cfg.Scan.Paper {
		portfolio, err := paper.NewPortfolio(ctx, deps.Ledger, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("paper portfolio: %w", err)
		}
		sinks.Portfolio = portfolio
	}

	var hub *ws.Hub
	if live {
		sinks.Notifier = deps.Notifier
		if a.cfg.Health.Enabled {
			sinks.Heartbeat = health.NewWriter(a.cfg.Health.HeartbeatFile, true)
		}
		if a.cfg.Server.Enabled {
			hub = ws.NewHub(a.logger)
			sinks.Hub = hub
		}
	}

	return service.NewResultService(sinks, a.logger), hub, nil
}

// startHTTPServer adds the API server goroutines to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *service.ResultService, hub *ws.Hub) {
	heartbeatPath := ""
	if a.cfg.Health.Enabled {
		heartbeatPath = a.cfg.Health.HeartbeatFile
	}

	scanHandler := handler.NewScanHandler(svc, a.logger)
	if deps.OppStore != nil {
		scanHandler = scanHandler.WithHistory(deps.OppStore)
	}

	srv := server.NewServer(server.Config{
		Addr:           a.cfg.Server.Addr,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		AuthToken:      a.cfg.Server.AuthToken,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(heartbeatPath, a.cfg.Health.StaleThreshold.Duration, a.logger),
		Scan:      scanHandler,
		Portfolio: handler.NewPortfolioHandler(svc, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// sessionSummary renders the farewell line for the shutdown notification.
func (a *App) sessionSummary(svc *service.ResultService) string {
	totals, ok := svc.PaperTotals()
	if !ok || totals.Trades == 0 {
		return "scan loop stopped"
	}
	return fmt.Sprintf("%d paper trades, $%.4f profit on $%.4f invested (%.2f%% ROI)",
		totals.Trades, totals.Profit, totals.Invested, totals.ROIPct())
}

// printResultTable writes the cycle's opportunities as a plain-text table.
func printResultTable(w io.Writer, result *domain.ScanResult) {
	fmt.Fprintf(w, "Scanned %d markets, %d candidates, %d deep scanned\n\n",
		result.MarketsScanned, result.CandidatesFound, result.DeepScanned)

	if len(result.Opportunities) == 0 {
		fmt.Fprintln(w, "No arbitrage opportunities found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMARKET\tTYPE\tOUTCOMES\tCOST\tNET\tROI %\tKL DIV")
	for i, opp := range result.Opportunities {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t$%.4f\t$%.4f\t%.2f%%\t%.4f\n",
			i+1,
			truncate(opp.Question, 50),
			opp.Kind,
			opp.OutcomeCount,
			opp.TotalCost,
			opp.NetProfit,
			opp.ROIPct,
			opp.Guarantee.KLDivergence,
		)
	}
	tw.Flush()
}

// printPaperTotals writes the cumulative paper portfolio table.
func printPaperTotals(w io.Writer, totals domain.PaperTotals) {
	fmt.Fprintln(w, "\nPaper Portfolio")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Trades\t%d\n", totals.Trades)
	fmt.Fprintf(tw, "Total Invested\t$%.4f\n", totals.Invested)
	fmt.Fprintf(tw, "Total Profit\t$%.4f\n", totals.Profit)
	fmt.Fprintf(tw, "Overall ROI\t%.2f%%\n", totals.ROIPct())
	tw.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
