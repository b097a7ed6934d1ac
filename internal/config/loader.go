package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BROKERD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BROKERD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BROKERD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BROKERD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BROKERD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BROKERD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BROKERD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BROKERD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BROKERD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BROKERD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BROKERD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BROKERD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BROKERD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BROKERD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BROKERD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BROKERD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BROKERD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BROKERD_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.PriceStaleSeconds, "BROKERD_REDIS_PRICE_STALE_SECONDS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BROKERD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BROKERD_S3_REGION")
	setStr(&cfg.S3.Bucket, "BROKERD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BROKERD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BROKERD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BROKERD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BROKERD_S3_FORCE_PATH_STYLE")

	// ── Feed ──
	setStr(&cfg.Feed.WsURL, "BROKERD_FEED_WS_URL")
	setStringSlice(&cfg.Feed.Symbols, "BROKERD_FEED_SYMBOLS")

	// ── Routing ──
	setBool(&cfg.Routing.Enabled, "BROKERD_ROUTING_ENABLED")
	setFloat64(&cfg.Routing.SizeThresholdUSD, "BROKERD_ROUTING_SIZE_THRESHOLD_USD")
	setFloat64(&cfg.Routing.ExposureLimitPerInstrUSD, "BROKERD_ROUTING_EXPOSURE_LIMIT_PER_INSTRUMENT_USD")
	setFloat64(&cfg.Routing.ExposureLimitTotalUSD, "BROKERD_ROUTING_EXPOSURE_LIMIT_TOTAL_USD")
	setStr(&cfg.Routing.PrimaryProvider, "BROKERD_ROUTING_PRIMARY_PROVIDER")
	setStr(&cfg.Routing.FallbackProvider, "BROKERD_ROUTING_FALLBACK_PROVIDER")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "BROKERD_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.IntervalMinutes, "BROKERD_ARCHIVE_INTERVAL_MINUTES")
	setStr(&cfg.Archive.Prefix, "BROKERD_ARCHIVE_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BROKERD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BROKERD_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "BROKERD_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "BROKERD_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.OrderRateLimit, "BROKERD_SERVER_ORDER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BROKERD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BROKERD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BROKERD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BROKERD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BROKERD_MODE")
	setStr(&cfg.LogLevel, "BROKERD_LOG_LEVEL")
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

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
