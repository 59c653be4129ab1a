package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYARB_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the scanner runs
// fine on defaults plus environment. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Scan ──
	setDuration(&cfg.Scan.Interval, "POLYARB_SCAN_INTERVAL")
	setFloat64(&cfg.Scan.MinProfit, "POLYARB_SCAN_MIN_PROFIT")
	setInt(&cfg.Scan.MaxMarkets, "POLYARB_SCAN_MAX_MARKETS")
	setFloat64(&cfg.Scan.FeeRate, "POLYARB_SCAN_FEE_RATE")
	setBool(&cfg.Scan.UseOrderBooks, "POLYARB_SCAN_USE_ORDERBOOKS")
	setFloat64(&cfg.Scan.MinLiquidity, "POLYARB_SCAN_MIN_LIQUIDITY")
	setFloat64(&cfg.Scan.MinVolume, "POLYARB_SCAN_MIN_VOLUME")
	setFloat64(&cfg.Scan.Alpha, "POLYARB_SCAN_ALPHA")
	setFloat64(&cfg.Scan.MinDivergence, "POLYARB_SCAN_EPSILON_D")
	setFloat64(&cfg.Scan.PrefilterMargin, "POLYARB_SCAN_PREFILTER_MARGIN")
	setBool(&cfg.Scan.Paper, "POLYARB_SCAN_PAPER")

	// ── API ──
	setStr(&cfg.API.GammaURL, "POLYARB_API_GAMMA_URL")
	setStr(&cfg.API.ClobURL, "POLYARB_API_CLOB_URL")
	setInt(&cfg.API.Concurrency, "POLYARB_API_CONCURRENCY")
	setDuration(&cfg.API.Timeout, "POLYARB_API_TIMEOUT")
	setInt(&cfg.API.MaxRetries, "POLYARB_API_MAX_RETRIES")
	setDuration(&cfg.API.RetryBackoff, "POLYARB_API_RETRY_BACKOFF")
	setInt(&cfg.API.PageSize, "POLYARB_API_PAGE_SIZE")

	// ── Log ──
	setStr(&cfg.Log.Level, "POLYARB_LOG_LEVEL")
	setStr(&cfg.Log.Format, "POLYARB_LOG_FORMAT")

	// ── Notify ──
	setStr(&cfg.Notify.DiscordWebhook, "POLYARB_NOTIFY_DISCORD_WEBHOOK")
	setStr(&cfg.Notify.TelegramToken, "POLYARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYARB_NOTIFY_TELEGRAM_CHAT_ID")
	setDuration(&cfg.Notify.Cooldown, "POLYARB_NOTIFY_COOLDOWN")
	setBool(&cfg.Notify.OnStartup, "POLYARB_NOTIFY_ON_STARTUP")
	setBool(&cfg.Notify.OnError, "POLYARB_NOTIFY_ON_ERROR")
	setBool(&cfg.Notify.OnArb, "POLYARB_NOTIFY_ON_ARB")
	setFloat64(&cfg.Notify.MinProfit, "POLYARB_NOTIFY_MIN_PROFIT")

	// ── Health ──
	setBool(&cfg.Health.Enabled, "POLYARB_HEALTH_ENABLED")
	setStr(&cfg.Health.HeartbeatFile, "POLYARB_HEALTH_HEARTBEAT_FILE")
	setDuration(&cfg.Health.StaleThreshold, "POLYARB_HEALTH_STALE_THRESHOLD")

	// ── Storage ──
	setStr(&cfg.Storage.Backend, "POLYARB_STORAGE_BACKEND")
	setStr(&cfg.Storage.TradesFile, "POLYARB_STORAGE_TRADES_FILE")
	setInt(&cfg.Storage.MaxMemory, "POLYARB_STORAGE_MAX_MEMORY")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POLYARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYARB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYARB_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Stream, "POLYARB_REDIS_STREAM")
	setInt64(&cfg.Redis.StreamMaxLen, "POLYARB_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYARB_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "POLYARB_S3_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POLYARB_SERVER_ENABLED")
	setStr(&cfg.Server.Addr, "POLYARB_SERVER_ADDR")
	setStr(&cfg.Server.AuthToken, "POLYARB_SERVER_AUTH_TOKEN")
	setStringSlice(&cfg.Server.AllowedOrigins, "POLYARB_SERVER_ALLOWED_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYARB_MODE")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
