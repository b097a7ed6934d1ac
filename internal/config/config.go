// Package config defines the top-level configuration for the brokerage
// execution daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BROKERD_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Routing  RoutingConfig  `toml:"routing"`
	LP       LPConfig       `toml:"lp"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// PriceStaleSeconds is the staleness window after which a cached price
	// is no longer trusted for execution.
	PriceStaleSeconds int `toml:"price_stale_seconds"`
}

// S3Config holds S3-compatible object storage parameters for audit archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig holds the upstream market-data stream parameters.
type FeedConfig struct {
	WsURL   string   `toml:"ws_url"`
	Symbols []string `toml:"symbols"`
}

// RoutingConfig holds the parameters for A-Book/B-Book routing decisions.
// Enabled is read once at construction time; there is no ad-hoc toggle read
// mid-transaction.
type RoutingConfig struct {
	Enabled                  bool    `toml:"enabled"`
	SizeThresholdUSD         float64 `toml:"size_threshold_usd"`
	ExposureLimitPerInstrUSD float64 `toml:"exposure_limit_per_instrument_usd"`
	ExposureLimitTotalUSD    float64 `toml:"exposure_limit_total_usd"`
	PrimaryProvider          string  `toml:"primary_provider"`
	FallbackProvider         string  `toml:"fallback_provider"`
}

// LPConfig holds liquidity-provider connection parameters.
type LPConfig struct {
	Providers []LPProviderConfig `toml:"providers"`
}

// LPProviderConfig configures a single LP connection. Type selects the
// implementation: "mock" or "rest".
type LPProviderConfig struct {
	Name           string  `toml:"name"`
	Type           string  `toml:"type"`
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	APISecret      string  `toml:"api_secret"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	FailureRate    float64 `toml:"failure_rate"` // mock only
	SlippageBps    int     `toml:"slippage_bps"` // mock only
}

// ArchiveConfig holds the audit export schedule.
type ArchiveConfig struct {
	Enabled         bool   `toml:"enabled"`
	IntervalMinutes int    `toml:"interval_minutes"`
	Prefix          string `toml:"prefix"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// OrderRateLimit is the per-account order placement limit per minute.
	OrderRateLimit int `toml:"order_rate_limit"`
}

// NotifyConfig holds notification channel credentials and event filters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "brokerd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:              "localhost:6379",
			PoolSize:          20,
			MaxRetries:        3,
			PriceStaleSeconds: 60,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "brokerd-audit",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Feed: FeedConfig{
			WsURL:   "wss://stream.binance.com:9443/ws",
			Symbols: []string{"BTCUSDT", "ETHUSDT"},
		},
		Routing: RoutingConfig{
			Enabled:                  false,
			SizeThresholdUSD:         100_000,
			ExposureLimitPerInstrUSD: 500_000,
			ExposureLimitTotalUSD:    5_000_000,
			PrimaryProvider:          "mock_lp",
		},
		LP: LPConfig{
			Providers: []LPProviderConfig{
				{Name: "mock_lp", Type: "mock", TimeoutSeconds: 5, FailureRate: 0.02, SlippageBps: 5},
			},
		},
		Archive: ArchiveConfig{
			Enabled:         false,
			IntervalMinutes: 60,
			Prefix:          "audit",
		},
		Server: ServerConfig{
			Enabled:        true,
			Port:           8080,
			OrderRateLimit: 10,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"serve":  true, // HTTP API only
	"worker": true, // feed + pending-order processing only
	"full":   true, // everything
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency. It collects
// every problem it finds and reports them together.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, worker, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty when dsn is unset")
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty when dsn is unset")
		}
		if c.Postgres.User == "" {
			errs = append(errs, "postgres: user must not be empty when dsn is unset")
		}
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PriceStaleSeconds <= 0 {
		errs = append(errs, "redis: price_stale_seconds must be positive")
	}

	if c.Routing.Enabled {
		if c.Routing.PrimaryProvider == "" {
			errs = append(errs, "routing: primary_provider is required when routing is enabled")
		}
		if c.Routing.SizeThresholdUSD <= 0 {
			errs = append(errs, "routing: size_threshold_usd must be positive")
		}
		names := map[string]bool{}
		for _, p := range c.LP.Providers {
			names[p.Name] = true
		}
		if !names[c.Routing.PrimaryProvider] {
			errs = append(errs, fmt.Sprintf("routing: primary_provider %q not found in lp.providers", c.Routing.PrimaryProvider))
		}
		if c.Routing.FallbackProvider != "" && !names[c.Routing.FallbackProvider] {
			errs = append(errs, fmt.Sprintf("routing: fallback_provider %q not found in lp.providers", c.Routing.FallbackProvider))
		}
	}

	for i, p := range c.LP.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("lp: providers[%d]: name must not be empty", i))
		}
		switch p.Type {
		case "mock":
		case "rest":
			if p.BaseURL == "" {
				errs = append(errs, fmt.Sprintf("lp: provider %q: base_url is required for type rest", p.Name))
			}
			if p.APIKey == "" || p.APISecret == "" {
				errs = append(errs, fmt.Sprintf("lp: provider %q: api_key and api_secret are required for type rest", p.Name))
			}
		default:
			errs = append(errs, fmt.Sprintf("lp: provider %q: unknown type %q (valid: mock, rest)", p.Name, p.Type))
		}
	}

	if c.Archive.Enabled {
		if c.Archive.IntervalMinutes <= 0 {
			errs = append(errs, "archive: interval_minutes must be positive")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket is required when archive is enabled")
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
	}

	mode := strings.ToLower(c.Mode)
	if mode == "worker" || mode == "full" {
		if c.Feed.WsURL == "" {
			errs = append(errs, "feed: ws_url is required for mode "+c.Mode)
		}
		if len(c.Feed.Symbols) == 0 {
			errs = append(errs, "feed: at least one symbol is required for mode "+c.Mode)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
