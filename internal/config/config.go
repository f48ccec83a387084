// Package config defines the top-level configuration for the farm panel
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FARMPANEL_* environment variables.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Eldorado   EldoradoConfig   `toml:"eldorado"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Reconciler ReconcilerConfig `toml:"reconciler"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Vault      VaultConfig      `toml:"vault"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
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
}

// S3Config holds S3-compatible object storage parameters for scan
// snapshot archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EldoradoConfig holds the marketplace API parameters.
type EldoradoConfig struct {
	BaseURL string `toml:"base_url"`
}

// ScannerConfig tunes the paginated market scan.
type ScannerConfig struct {
	MinBandSamples int      `toml:"min_band_samples"`
	StallPagesBand int      `toml:"stall_pages_band"`
	StallPagesAny  int      `toml:"stall_pages_any"`
	MaxPages       int      `toml:"max_pages"`
	PageSize       int      `toml:"page_size"`
	PageTimeout    duration `toml:"page_timeout"`
	PageDelay      duration `toml:"page_delay"`
	// OwnStoreMarkers exclude our own listings from competitor pricing.
	OwnStoreMarkers []string `toml:"own_store_markers"`
	// CacheTTL bounds how long a computed recommendation is reused.
	CacheTTL duration `toml:"cache_ttl"`
}

// ReconcilerConfig tunes the listing reconciliation pass.
type ReconcilerConfig struct {
	Workers        int      `toml:"workers"`
	SearchAttempts int      `toml:"search_attempts"`
	RetryDelay     duration `toml:"retry_delay"`
	SearchPages    int      `toml:"search_pages"`
	PageSize       int      `toml:"page_size"`
	LockTTL        duration `toml:"lock_ttl"`
	PausedGrace    duration `toml:"paused_grace"`
}

// PipelineConfig holds the background loop schedule.
type PipelineConfig struct {
	Enabled           bool     `toml:"enabled"`
	ScanInterval      duration `toml:"scan_interval"`
	ReconcileInterval duration `toml:"reconcile_interval"`
	// MaxTrackedItems caps how many item/rate pairs one refresh pass covers.
	MaxTrackedItems int `toml:"max_tracked_items"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards the whole API surface; empty disables auth.
	APIKey string `toml:"api_key"`
	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// VaultConfig holds the master secret that encrypts stored marketplace
// API keys.
type VaultConfig struct {
	Secret string `toml:"secret"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "farmpanel",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "farmpanel-scans",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Eldorado: EldoradoConfig{
			BaseURL: "https://www.eldorado.gg",
		},
		Scanner: ScannerConfig{
			MinBandSamples:  10,
			StallPagesBand:  10,
			StallPagesAny:   15,
			MaxPages:        50,
			PageSize:        100,
			PageTimeout:     duration{15 * time.Second},
			PageDelay:       duration{500 * time.Millisecond},
			OwnStoreMarkers: []string{"#gs", "glitched store"},
			CacheTTL:        duration{15 * time.Minute},
		},
		Reconciler: ReconcilerConfig{
			Workers:        5,
			SearchAttempts: 3,
			RetryDelay:     duration{2 * time.Second},
			SearchPages:    3,
			PageSize:       100,
			LockTTL:        duration{time.Minute},
			PausedGrace:    duration{72 * time.Hour},
		},
		Pipeline: PipelineConfig{
			Enabled:           true,
			ScanInterval:      duration{10 * time.Minute},
			ReconcileInterval: duration{30 * time.Minute},
			MaxTrackedItems:   50,
		},
		Server: ServerConfig{
			Enabled:            true,
			Port:               8000,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMinute: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"price_change", "listing_paused", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":     true,
	"scan":      true,
	"reconcile": true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, scan, reconcile, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
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

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is optional; validated only when archival is on.
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Eldorado
	if c.Eldorado.BaseURL == "" {
		errs = append(errs, "eldorado: base_url must not be empty")
	}

	// Scanner
	if c.Scanner.MaxPages < 1 {
		errs = append(errs, "scanner: max_pages must be >= 1")
	}
	if c.Scanner.PageSize < 1 || c.Scanner.PageSize > 100 {
		errs = append(errs, fmt.Sprintf("scanner: page_size must be 1-100, got %d", c.Scanner.PageSize))
	}
	if c.Scanner.MinBandSamples < 1 {
		errs = append(errs, "scanner: min_band_samples must be >= 1")
	}
	if c.Scanner.CacheTTL.Duration <= 0 {
		errs = append(errs, "scanner: cache_ttl must be positive")
	}

	// Reconciler
	if c.Reconciler.Workers < 1 {
		errs = append(errs, "reconciler: workers must be >= 1")
	}
	if c.Reconciler.SearchAttempts < 1 {
		errs = append(errs, "reconciler: search_attempts must be >= 1")
	}
	if c.Reconciler.PausedGrace.Duration <= 0 {
		errs = append(errs, "reconciler: paused_grace must be positive")
	}

	// Pipeline
	if c.Pipeline.Enabled {
		if c.Pipeline.ScanInterval.Duration <= 0 {
			errs = append(errs, "pipeline: scan_interval must be positive when enabled")
		}
		if c.Pipeline.ReconcileInterval.Duration <= 0 {
			errs = append(errs, "pipeline: reconcile_interval must be positive when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Vault — required whenever users can store marketplace API keys.
	if c.Server.Enabled && strings.TrimSpace(c.Vault.Secret) == "" {
		errs = append(errs, "vault: secret must not be empty when the server is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
