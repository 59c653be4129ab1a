package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "polyarb/internal/blob/s3"
	"polyarb/internal/cache/redis"
	"polyarb/internal/config"
	"polyarb/internal/domain"
	"polyarb/internal/notify"
	"polyarb/internal/platform/polymarket"
	"polyarb/internal/store/jsonl"
	"polyarb/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Source is the Polymarket API client; every mode reads prices
	// through it.
	Source domain.PriceSource

	// OppStore persists detected opportunities. Nil unless the postgres
	// backend is configured.
	OppStore domain.OpportunityStore

	// Ledger persists paper trades. Nil when storage.backend is "none".
	Ledger domain.PaperLedger

	// Bus publishes scan results to the Redis stream. Nil when Redis is
	// disabled.
	Bus domain.ResultBus

	// Cooldown gates duplicate alerts; Redis-backed when available, with
	// an in-memory fallback otherwise.
	Cooldown domain.Cooldown

	// Blob writes scan archives to object storage. Nil when S3 is
	// disabled.
	Blob *s3blob.Writer

	// Notifier delivers startup, error, and opportunity alerts.
	Notifier *notify.Notifier
}

// needsStorage returns true for modes that persist or publish results.
// Diagnose only reads prices, so its failures should never depend on a
// database being reachable.
func needsStorage(mode string) bool {
	switch mode {
	case "scan", "once":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode string) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Polymarket API client (every mode reads prices) ---
	deps.Source = polymarket.NewClient(polymarket.Config{
		GammaURL:     cfg.API.GammaURL,
		ClobURL:      cfg.API.ClobURL,
		Timeout:      cfg.API.Timeout.Duration,
		MaxRetries:   cfg.API.MaxRetries,
		RetryBackoff: cfg.API.RetryBackoff.Duration,
		PageSize:     cfg.API.PageSize,
	}, logger)

	// --- Trade ledger + opportunity store ---
	if needsStorage(mode) {
		switch cfg.Storage.Backend {
		case "postgres":
			pgClient, err := postgres.New(ctx, postgres.ClientConfig{
				DSN:      cfg.Postgres.DSN,
				Host:     cfg.Postgres.Host,
				Port:     cfg.Postgres.Port,
				Database: cfg.Postgres.Database,
				User:     cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				SSLMode:  cfg.Postgres.SSLMode,
				MaxConns: cfg.Postgres.PoolMaxConns,
				MinConns: cfg.Postgres.PoolMinConns,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres: %w", err)
			}
			closers = append(closers, pgClient.Close)

			if cfg.Postgres.RunMigrations {
				if err := pgClient.RunMigrations(ctx); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
				}
			}

			pool := pgClient.Pool()
			deps.OppStore = postgres.NewOpportunityStore(pool)
			deps.Ledger = postgres.NewPaperStore(pool)

		case "jsonl":
			ledger, err := jsonl.NewTradeStore(cfg.Storage.TradesFile, cfg.Storage.MaxMemory, logger)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: jsonl ledger: %w", err)
			}
			deps.Ledger = ledger
		}
	}

	// --- Redis (result stream + alert cooldown) ---
	if needsStorage(mode) && cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Bus = redis.NewResultBus(redisClient, cfg.Redis.Stream, cfg.Redis.StreamMaxLen)
		deps.Cooldown = redis.NewCooldown(redisClient)
	} else {
		deps.Cooldown = notify.NewMemoryCooldown()
	}

	// --- S3 blob storage (scan archives) ---
	if needsStorage(mode) && cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 bucket check: %w", err)
		}
		deps.Blob = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	notifyMin := cfg.Notify.MinProfit
	if notifyMin <= 0 {
		notifyMin = cfg.Scan.MinProfit
	}
	deps.Notifier = notify.NewNotifier(senders, notify.Config{
		OnStartup: cfg.Notify.OnStartup,
		OnError:   cfg.Notify.OnError,
		OnArb:     cfg.Notify.OnArb,
		Cooldown:  cfg.Notify.Cooldown.Duration,
		MinProfit: notifyMin,
	}, deps.Cooldown, logger)

	return deps, cleanup, nil
}
