package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the
	// redacted copy.
	if cfg.LP.Providers != nil {
		out.LP.Providers = make([]LPProviderConfig, len(cfg.LP.Providers))
		copy(out.LP.Providers, cfg.LP.Providers)
		for i := range out.LP.Providers {
			redact(&out.LP.Providers[i].APIKey)
			redact(&out.LP.Providers[i].APISecret)
		}
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	}
	if cfg.Feed.Symbols != nil {
		out.Feed.Symbols = append([]string(nil), cfg.Feed.Symbols...)
	}

	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
