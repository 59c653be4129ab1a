package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, 60*time.Second, cfg.Scan.Interval.Duration)
	assert.InDelta(t, 0.005, cfg.Scan.MinProfit, 1e-9)
	assert.InDelta(t, 0.02, cfg.Scan.FeeRate, 1e-9)
	assert.InDelta(t, 0.9, cfg.Scan.Alpha, 1e-9)
	assert.InDelta(t, 0.05, cfg.Scan.MinDivergence, 1e-9)
	assert.Equal(t, 100, cfg.Scan.MaxMarkets)
	assert.True(t, cfg.Scan.UseOrderBooks)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout.Duration)
	assert.Equal(t, "jsonl", cfg.Storage.Backend)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "warp"
	cfg.Log.Level = "shout"
	cfg.Scan.Interval.Duration = 0
	cfg.Scan.Alpha = 2
	cfg.API.GammaURL = ""
	cfg.Storage.Backend = "floppy"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "warp"`)
	assert.Contains(t, msg, `unknown level "shout"`)
	assert.Contains(t, msg, "interval must be > 0")
	assert.Contains(t, msg, "alpha must be in (0, 1]")
	assert.Contains(t, msg, "gamma_url must not be empty")
	assert.Contains(t, msg, `unknown backend "floppy"`)
}

func TestValidate_PostgresCheckedOnlyWhenSelected(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	cfg.Postgres.Port = -1
	require.NoError(t, cfg.Validate(), "jsonl backend must not require postgres settings")

	cfg.Storage.Backend = "postgres"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host must not be empty")
	assert.Contains(t, err.Error(), "postgres: port must be 1-65535")
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Scan.MaxMarkets, cfg.Scan.MaxMarkets)
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polyarb.toml")
	body := `
mode = "once"

[scan]
interval = "30s"
min_profit = 0.01
use_orderbooks = false

[server]
enabled = false

[redis]
enabled = true
stream = "custom:stream"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "once", cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.Scan.Interval.Duration)
	assert.InDelta(t, 0.01, cfg.Scan.MinProfit, 1e-9)
	assert.False(t, cfg.Scan.UseOrderBooks)
	assert.False(t, cfg.Server.Enabled)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "custom:stream", cfg.Redis.Stream)

	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Scan.MaxMarkets)
	assert.Equal(t, "https://clob.polymarket.com", cfg.API.ClobURL)
}

func TestLoad_EnvOverridesWinOverTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polyarb.toml")
	body := `
[scan]
min_profit = 0.01
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("POLYARB_SCAN_MIN_PROFIT", "0.02")
	t.Setenv("POLYARB_API_TIMEOUT", "5s")
	t.Setenv("POLYARB_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.02, cfg.Scan.MinProfit, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestRedactedConfig_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "redispass"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "shhh"
	cfg.Notify.DiscordWebhook = "https://discord.com/api/webhooks/1/abc"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Server.AuthToken = "bearer-me"

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.AccessKey)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Notify.DiscordWebhook)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Equal(t, "***", out.Server.AuthToken)

	// Originals are untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)

	// Non-secret fields pass through.
	assert.Equal(t, cfg.Scan.MaxMarkets, out.Scan.MaxMarkets)
}
