package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Vault.Secret = "test-secret"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Redis.Addr = ""
	cfg.Scanner.PageSize = 500
	cfg.Vault.Secret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "scanner: page_size")
	assert.Contains(t, err.Error(), "vault: secret")
}

func TestValidateVaultOptionalWithoutServer(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Enabled = false
	cfg.Vault.Secret = ""
	cfg.Mode = "scan"

	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "scan"

[postgres]
database = "paneltest"

[scanner]
cache_ttl = "5m"
`), 0o600))

	t.Setenv("FARMPANEL_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("FARMPANEL_SCANNER_MAX_PAGES", "25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, "paneltest", cfg.Postgres.Database)
	assert.Equal(t, 5*time.Minute, cfg.Scanner.CacheTTL.Duration)
	// Env overrides win over both defaults and the file.
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 25, cfg.Scanner.MaxPages)
	// Untouched values keep their defaults.
	assert.Equal(t, 10, cfg.Scanner.MinBandSamples)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "panel-key"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Vault.Secret)
	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
