// Command polyarb is the entry point for the Polymarket arbitrage scanner. It
// loads configuration, applies CLI overrides, sets up signal handling, and
// starts the application in the selected mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polyarb/internal/app"
	"polyarb/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "polyarb.toml", "path to configuration file")
		mode       = flag.String("mode", "", "operating mode: scan, once, diagnose, checkhealth")
		once       = flag.Bool("once", false, "run a single scan and exit (shorthand for -mode once)")
		paper      = flag.Bool("paper", false, "enable paper trading")
		fast       = flag.Bool("fast", false, "midpoint prices only, skip order books")
		interval   = flag.Duration("interval", time.Minute, "scan interval")
		minProfit  = flag.Float64("min-profit", 0.005, "minimum net profit threshold in dollars")
		maxMarkets = flag.Int("max-markets", 100, "maximum markets per scan")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	// Bootstrap logger until the config tells us the real level and format.
	logger := newLogger("info", "json")
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// CLI flags override file and environment, but only when actually given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = *mode
		case "once":
			if *once {
				cfg.Mode = "once"
			}
		case "paper":
			cfg.Scan.Paper = *paper
		case "fast":
			cfg.Scan.UseOrderBooks = !*fast
		case "interval":
			cfg.Scan.Interval.Duration = *interval
		case "min-profit":
			cfg.Scan.MinProfit = *minProfit
		case "max-markets":
			cfg.Scan.MaxMarkets = *maxMarkets
		case "verbose":
			if *verbose {
				cfg.Log.Level = "debug"
			}
		}
	})

	logger = newLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("polyarb starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			application.Close()
			os.Exit(1)
		}
	}

	logger.Info("polyarb stopped")
}

// newLogger builds a slog logger writing to stderr, keeping stdout clean for
// the mode output (tables, OK/UNHEALTHY).
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
