package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout.Duration)
	assert.Equal(t, "1000000000", cfg.Limits.MaxLoanAmount.String())
	assert.Equal(t, 600, cfg.Limits.MaxTermMonths)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.Requests)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Duration)
	assert.Equal(t, 10000, cfg.Cache.MaxEntries)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "loancalc.toml", `
[server]
port = 9090
request_timeout = "3s"

[limits]
max_loan_amount = "500000.00"
max_term_months = 360

[rate_limit]
requests = 5
window = "30s"

[storage]
driver = "sqlite"
sqlite_path = "/var/lib/loancalc/loans.db"

[cache]
driver = "redis"
redis_addr = "cache:6379"
ttl = "10m"

[log]
level = "debug"
format = "text"

[tracing]
endpoint = "otel-collector:4318"
insecure = true
`)

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout.Duration)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Duration, "unset keys keep defaults")
	assert.Equal(t, "500000", cfg.Limits.MaxLoanAmount.String())
	assert.Equal(t, 360, cfg.Limits.MaxTermMonths)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window.Duration)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/loancalc/loans.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "otel-collector:4318", cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.Insecure)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "loancalc.toml", "[server]\nprot = 9090\n")

	_, err := Load(path, noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.prot")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "loancalc.toml", "[server]\nport = 9090\n")
	t.Setenv("LOANCALC_SERVER_PORT", "7070")
	t.Setenv("LOANCALC_STORAGE_DRIVER", "postgres")
	t.Setenv("LOANCALC_POSTGRES_HOST", "db")
	t.Setenv("LOANCALC_LIMITS_MAX_INTEREST_RATE", "99.5")
	t.Setenv("LOANCALC_RATE_LIMIT_ENABLED", "false")
	t.Setenv("LOANCALC_CACHE_MAX_ENTRIES", "500")

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "db", cfg.Storage.Postgres.Host)
	assert.Equal(t, "99.5", cfg.Limits.MaxInterestRate.String())
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
}

func TestLoad_DotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "LOANCALC_LOG_LEVEL=warn\nLOANCALC_CACHE_DRIVER=none\n")
	t.Setenv("LOANCALC_LOG_LEVEL", "error")
	// godotenv sets variables in the process; restore them after the test.
	t.Setenv("LOANCALC_CACHE_DRIVER", "")
	os.Unsetenv("LOANCALC_CACHE_DRIVER")

	cfg, err := Load("", envFile)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level, "real environment wins over .env")
	assert.Equal(t, "none", cfg.Cache.Driver)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("LOANCALC_SERVER_PORT", "eighty")
	t.Setenv("LOANCALC_CACHE_TTL", "forever")

	_, err := Load("", noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOANCALC_SERVER_PORT")
	assert.Contains(t, err.Error(), "LOANCALC_CACHE_TTL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown storage", func(c *Config) { c.Storage.Driver = "mongo" }, `storage.driver "mongo"`},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, `cache.driver "memcached"`},
		{"redis without addr", func(c *Config) { c.Cache.Driver = "redis"; c.Cache.RedisAddr = "" }, "cache.redis_addr"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite"; c.Storage.SQLitePath = "" }, "storage.sqlite_path"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"rate limit without window", func(c *Config) { c.RateLimit.Window = Duration{} }, "rate_limit"},
		{"negative cache bound", func(c *Config) { c.Cache.MaxEntries = -1 }, "cache.max_entries"},
		{"negative cache ttl", func(c *Config) { c.Cache.TTL = Duration{-time.Second} }, "cache.ttl"},
		{"term months", func(c *Config) { c.Limits.MaxTermMonths = 0 }, "limits.max_term_months"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
