// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYARB_* environment variables.
type Config struct {
	Scan     ScanConfig     `toml:"scan"`
	API      APIConfig      `toml:"api"`
	Log      LogConfig      `toml:"log"`
	Notify   NotifyConfig   `toml:"notify"`
	Health   HealthConfig   `toml:"health"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
}

// ScanConfig holds the scan-cycle and detection parameters.
type ScanConfig struct {
	Interval        duration `toml:"interval"`
	MinProfit       float64  `toml:"min_profit"`
	MaxMarkets      int      `toml:"max_markets"`
	FeeRate         float64  `toml:"fee_rate"`
	UseOrderBooks   bool     `toml:"use_orderbooks"`
	MinLiquidity    float64  `toml:"min_liquidity"`
	MinVolume       float64  `toml:"min_volume"`
	Alpha           float64  `toml:"alpha"`
	MinDivergence   float64  `toml:"epsilon_d"`
	PrefilterMargin float64  `toml:"prefilter_margin"`
	Paper           bool     `toml:"paper"`
}

// APIConfig holds Polymarket API endpoints and client tuning.
type APIConfig struct {
	GammaURL     string   `toml:"gamma_url"`
	ClobURL      string   `toml:"clob_url"`
	Concurrency  int      `toml:"concurrency"`
	Timeout      duration `toml:"timeout"`
	MaxRetries   int      `toml:"max_retries"`
	RetryBackoff duration `toml:"retry_backoff"`
	PageSize     int      `toml:"page_size"`
}

// LogConfig holds logger output settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NotifyConfig holds notification channel credentials and gating.
type NotifyConfig struct {
	DiscordWebhook string   `toml:"discord_webhook"`
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Cooldown       duration `toml:"cooldown"`
	OnStartup      bool     `toml:"on_startup"`
	OnError        bool     `toml:"on_error"`
	OnArb          bool     `toml:"on_arb"`
	// MinProfit is the notification floor; 0 means use the scan floor.
	MinProfit float64 `toml:"min_profit"`
}

// HealthConfig holds heartbeat-file settings.
type HealthConfig struct {
	Enabled        bool     `toml:"enabled"`
	HeartbeatFile  string   `toml:"heartbeat_file"`
	StaleThreshold duration `toml:"stale_threshold"`
}

// StorageConfig selects the trade-ledger backend.
type StorageConfig struct {
	// Backend is "jsonl", "postgres", or "none".
	Backend    string `toml:"backend"`
	TradesFile string `toml:"trades_file"`
	MaxMemory  int    `toml:"max_memory"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters and the result stream.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	Stream       string `toml:"stream"`
	StreamMaxLen int64  `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters for scan archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled        bool     `toml:"enabled"`
	Addr           string   `toml:"addr"`
	AuthToken      string   `toml:"auth_token"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in polyarb.example.toml.
func Defaults() Config {
	return Config{
		Scan: ScanConfig{
			Interval:        duration{60 * time.Second},
			MinProfit:       0.005,
			MaxMarkets:      100,
			FeeRate:         0.02,
			UseOrderBooks:   true,
			MinLiquidity:    0,
			MinVolume:       0,
			Alpha:           0.9,
			MinDivergence:   0.05,
			PrefilterMargin: 0.02,
			Paper:           false,
		},
		API: APIConfig{
			GammaURL:     "https://gamma-api.polymarket.com",
			ClobURL:      "https://clob.polymarket.com",
			Concurrency:  10,
			Timeout:      duration{15 * time.Second},
			MaxRetries:   3,
			RetryBackoff: duration{time.Second},
			PageSize:     100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Notify: NotifyConfig{
			Cooldown:  duration{5 * time.Minute},
			OnStartup: true,
			OnError:   true,
			OnArb:     true,
		},
		Health: HealthConfig{
			Enabled:        true,
			HeartbeatFile:  "heartbeat.json",
			StaleThreshold: duration{5 * time.Minute},
		},
		Storage: StorageConfig{
			Backend:    "jsonl",
			TradesFile: "trades.jsonl",
			MaxMemory:  1000,
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "polyarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			TLSEnabled:   false,
			Stream:       "polyarb:scans",
			StreamMaxLen: 10_000,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polyarb-data",
			UseSSL:         false,
			ForcePathStyle: true,
			Prefix:         "scans",
		},
		Server: ServerConfig{
			Enabled:        true,
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode: "scan",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":        true,
	"once":        true,
	"diagnose":    true,
	"checkhealth": true,
}

// validLogLevels enumerates the accepted values for Log.Level.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats enumerates the accepted values for Log.Format.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// validBackends enumerates the accepted values for Storage.Backend.
var validBackends = map[string]bool{
	"jsonl":    true,
	"postgres": true,
	"none":     true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, once, diagnose, checkhealth)", c.Mode))
	}

	// Log
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log: unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log: unknown format %q (valid: json, text)", c.Log.Format))
	}

	// Scan
	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0")
	}
	if c.Scan.MinProfit < 0 {
		errs = append(errs, "scan: min_profit must be >= 0")
	}
	if c.Scan.MaxMarkets < 1 {
		errs = append(errs, "scan: max_markets must be >= 1")
	}
	if c.Scan.FeeRate < 0 || c.Scan.FeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("scan: fee_rate must be in [0, 1), got %g", c.Scan.FeeRate))
	}
	if c.Scan.Alpha <= 0 || c.Scan.Alpha > 1 {
		errs = append(errs, fmt.Sprintf("scan: alpha must be in (0, 1], got %g", c.Scan.Alpha))
	}
	if c.Scan.MinDivergence < 0 {
		errs = append(errs, "scan: epsilon_d must be >= 0")
	}
	if c.Scan.PrefilterMargin < 0 {
		errs = append(errs, "scan: prefilter_margin must be >= 0")
	}

	// API
	if c.API.GammaURL == "" {
		errs = append(errs, "api: gamma_url must not be empty")
	}
	if c.API.ClobURL == "" {
		errs = append(errs, "api: clob_url must not be empty")
	}
	if c.API.Concurrency < 1 {
		errs = append(errs, "api: concurrency must be >= 1")
	}
	if c.API.Timeout.Duration <= 0 {
		errs = append(errs, "api: timeout must be > 0")
	}
	if c.API.MaxRetries < 1 {
		errs = append(errs, "api: max_retries must be >= 1")
	}
	if c.API.PageSize < 1 {
		errs = append(errs, "api: page_size must be >= 1")
	}

	// Notify
	if c.Notify.Cooldown.Duration < 0 {
		errs = append(errs, "notify: cooldown must be >= 0")
	}
	if c.Notify.MinProfit < 0 {
		errs = append(errs, "notify: min_profit must be >= 0")
	}

	// Health
	if c.Health.Enabled {
		if c.Health.HeartbeatFile == "" {
			errs = append(errs, "health: heartbeat_file must not be empty when enabled")
		}
		if c.Health.StaleThreshold.Duration <= 0 {
			errs = append(errs, "health: stale_threshold must be > 0")
		}
	}

	// Storage
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: jsonl, postgres, none)", c.Storage.Backend))
	}
	if strings.ToLower(c.Storage.Backend) == "jsonl" {
		if c.Storage.TradesFile == "" {
			errs = append(errs, "storage: trades_file must not be empty for jsonl backend")
		}
		if c.Storage.MaxMemory < 1 {
			errs = append(errs, "storage: max_memory must be >= 1")
		}
	}

	// Postgres settings are only checked when the ledger actually uses them.
	if strings.ToLower(c.Storage.Backend) == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.Stream == "" {
			errs = append(errs, "redis: stream must not be empty when enabled")
		}
		if c.Redis.StreamMaxLen < 1 {
			errs = append(errs, "redis: stream_max_len must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Addr == "" {
			errs = append(errs, "server: addr must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
