package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.DiscordWebhook)
	redact(&out.Notify.TelegramToken)

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.AuthToken)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Server.AllowedOrigins != nil {
		out.Server.AllowedOrigins = make([]string, len(cfg.Server.AllowedOrigins))
		copy(out.Server.AllowedOrigins, cfg.Server.AllowedOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
