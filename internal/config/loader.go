package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FARMPANEL_* environment variable overrides, and
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

// applyEnvOverrides reads well-known FARMPANEL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FARMPANEL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FARMPANEL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FARMPANEL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FARMPANEL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FARMPANEL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FARMPANEL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FARMPANEL_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FARMPANEL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FARMPANEL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FARMPANEL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FARMPANEL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FARMPANEL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FARMPANEL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FARMPANEL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FARMPANEL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FARMPANEL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FARMPANEL_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FARMPANEL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FARMPANEL_S3_REGION")
	setStr(&cfg.S3.Bucket, "FARMPANEL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FARMPANEL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FARMPANEL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FARMPANEL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FARMPANEL_S3_FORCE_PATH_STYLE")

	// ── Eldorado ──
	setStr(&cfg.Eldorado.BaseURL, "FARMPANEL_ELDORADO_BASE_URL")

	// ── Scanner ──
	setInt(&cfg.Scanner.MinBandSamples, "FARMPANEL_SCANNER_MIN_BAND_SAMPLES")
	setInt(&cfg.Scanner.StallPagesBand, "FARMPANEL_SCANNER_STALL_PAGES_BAND")
	setInt(&cfg.Scanner.StallPagesAny, "FARMPANEL_SCANNER_STALL_PAGES_ANY")
	setInt(&cfg.Scanner.MaxPages, "FARMPANEL_SCANNER_MAX_PAGES")
	setInt(&cfg.Scanner.PageSize, "FARMPANEL_SCANNER_PAGE_SIZE")
	setDuration(&cfg.Scanner.PageTimeout, "FARMPANEL_SCANNER_PAGE_TIMEOUT")
	setDuration(&cfg.Scanner.PageDelay, "FARMPANEL_SCANNER_PAGE_DELAY")
	setStringSlice(&cfg.Scanner.OwnStoreMarkers, "FARMPANEL_SCANNER_OWN_STORE_MARKERS")
	setDuration(&cfg.Scanner.CacheTTL, "FARMPANEL_SCANNER_CACHE_TTL")

	// ── Reconciler ──
	setInt(&cfg.Reconciler.Workers, "FARMPANEL_RECONCILER_WORKERS")
	setInt(&cfg.Reconciler.SearchAttempts, "FARMPANEL_RECONCILER_SEARCH_ATTEMPTS")
	setDuration(&cfg.Reconciler.RetryDelay, "FARMPANEL_RECONCILER_RETRY_DELAY")
	setInt(&cfg.Reconciler.SearchPages, "FARMPANEL_RECONCILER_SEARCH_PAGES")
	setInt(&cfg.Reconciler.PageSize, "FARMPANEL_RECONCILER_PAGE_SIZE")
	setDuration(&cfg.Reconciler.LockTTL, "FARMPANEL_RECONCILER_LOCK_TTL")
	setDuration(&cfg.Reconciler.PausedGrace, "FARMPANEL_RECONCILER_PAUSED_GRACE")

	// ── Pipeline ──
	setBool(&cfg.Pipeline.Enabled, "FARMPANEL_PIPELINE_ENABLED")
	setDuration(&cfg.Pipeline.ScanInterval, "FARMPANEL_PIPELINE_SCAN_INTERVAL")
	setDuration(&cfg.Pipeline.ReconcileInterval, "FARMPANEL_PIPELINE_RECONCILE_INTERVAL")
	setInt(&cfg.Pipeline.MaxTrackedItems, "FARMPANEL_PIPELINE_MAX_TRACKED_ITEMS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FARMPANEL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FARMPANEL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FARMPANEL_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FARMPANEL_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "FARMPANEL_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FARMPANEL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FARMPANEL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FARMPANEL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FARMPANEL_NOTIFY_EVENTS")

	// ── Vault ──
	setStr(&cfg.Vault.Secret, "FARMPANEL_VAULT_SECRET")

	// ── Top-level ──
	setStr(&cfg.Mode, "FARMPANEL_MODE")
	setStr(&cfg.LogLevel, "FARMPANEL_LOG_LEVEL")
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
