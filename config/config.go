// Package config loads service settings from defaults, an optional TOML
// file, a .env file and LOANCALC_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const envPrefix = "LOANCALC_"

// Duration decodes TOML and environment strings such as "15s" or "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Limits    LimitsConfig    `toml:"limits"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Storage   StorageConfig   `toml:"storage"`
	Cache     CacheConfig     `toml:"cache"`
	Log       LogConfig       `toml:"log"`
	Tracing   TracingConfig   `toml:"tracing"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	RequestTimeout  Duration `toml:"request_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type LimitsConfig struct {
	MaxLoanAmount      decimal.Decimal `toml:"max_loan_amount"`
	MaxInterestRate    decimal.Decimal `toml:"max_interest_rate"`
	MaxTermMonths      int             `toml:"max_term_months"`
	MaxTermRangeMonths int             `toml:"max_term_range_months"`
}

type RateLimitConfig struct {
	Enabled  bool     `toml:"enabled"`
	Requests int      `toml:"requests"`
	Window   Duration `toml:"window"`
}

type StorageConfig struct {
	Driver     string         `toml:"driver"` // memory, sqlite, postgres
	SQLitePath string         `toml:"sqlite_path"`
	Postgres   PostgresConfig `toml:"postgres"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
	MaxConns int32  `toml:"max_conns"`
	MinConns int32  `toml:"min_conns"`
}

type CacheConfig struct {
	Driver        string   `toml:"driver"` // none, memory, redis
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	TTL           Duration `toml:"ttl"`
	MaxEntries    int      `toml:"max_entries"` // memory driver only
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json, text
}

type TracingConfig struct {
	ServiceName string  `toml:"service_name"`
	Endpoint    string  `toml:"endpoint"`
	Insecure    bool    `toml:"insecure"`
	SampleRatio float64 `toml:"sample_ratio"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{15 * time.Second},
			IdleTimeout:     Duration{60 * time.Second},
			RequestTimeout:  Duration{10 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Limits: LimitsConfig{
			MaxLoanAmount:      decimal.NewFromInt(1_000_000_000),
			MaxInterestRate:    decimal.NewFromInt(1000),
			MaxTermMonths:      600,
			MaxTermRangeMonths: 120,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 60,
			Window:   Duration{time.Minute},
		},
		Storage: StorageConfig{
			Driver:     "memory",
			SQLitePath: "loancalc.db",
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "loancalc",
				Database: "loancalc",
				SSLMode:  "disable",
				MaxConns: 10,
			},
		},
		Cache: CacheConfig{
			Driver:    "memory",
			RedisAddr: "localhost:6379",
			TTL:        Duration{time.Hour},
			MaxEntries: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "loan-calculator",
			SampleRatio: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load builds the configuration. path names an optional TOML file; an empty
// path skips it. envFiles default to ".env"; missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !c.Limits.MaxLoanAmount.IsPositive() {
		errs = append(errs, errors.New("limits.max_loan_amount must be positive"))
	}
	if c.Limits.MaxInterestRate.IsNegative() {
		errs = append(errs, errors.New("limits.max_interest_rate must not be negative"))
	}
	if c.Limits.MaxTermMonths < 1 {
		errs = append(errs, errors.New("limits.max_term_months must be at least 1"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Window.Duration <= 0) {
		errs = append(errs, errors.New("rate_limit needs positive requests and window"))
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.Postgres.Host == "" || c.Storage.Postgres.Database == "" {
			errs = append(errs, errors.New("storage.postgres host and database are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver))
	}

	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must not be negative"))
	}
	if c.Cache.TTL.Duration < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	switch c.Cache.Driver {
	case "none", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q is not one of none, memory, redis", c.Cache.Driver))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) applyEnv() error {
	e := envReader{}

	e.setString("SERVER_HOST", &c.Server.Host)
	e.setInt("SERVER_PORT", &c.Server.Port)
	e.setDuration("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	e.setDuration("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	e.setDuration("SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout)
	e.setDuration("SERVER_REQUEST_TIMEOUT", &c.Server.RequestTimeout)
	e.setDuration("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	e.setDecimal("LIMITS_MAX_LOAN_AMOUNT", &c.Limits.MaxLoanAmount)
	e.setDecimal("LIMITS_MAX_INTEREST_RATE", &c.Limits.MaxInterestRate)
	e.setInt("LIMITS_MAX_TERM_MONTHS", &c.Limits.MaxTermMonths)
	e.setInt("LIMITS_MAX_TERM_RANGE_MONTHS", &c.Limits.MaxTermRangeMonths)

	e.setBool("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	e.setInt("RATE_LIMIT_REQUESTS", &c.RateLimit.Requests)
	e.setDuration("RATE_LIMIT_WINDOW", &c.RateLimit.Window)

	e.setString("STORAGE_DRIVER", &c.Storage.Driver)
	e.setString("STORAGE_SQLITE_PATH", &c.Storage.SQLitePath)
	e.setString("POSTGRES_HOST", &c.Storage.Postgres.Host)
	e.setInt("POSTGRES_PORT", &c.Storage.Postgres.Port)
	e.setString("POSTGRES_USER", &c.Storage.Postgres.User)
	e.setString("POSTGRES_PASSWORD", &c.Storage.Postgres.Password)
	e.setString("POSTGRES_DATABASE", &c.Storage.Postgres.Database)
	e.setString("POSTGRES_SSLMODE", &c.Storage.Postgres.SSLMode)

	e.setString("CACHE_DRIVER", &c.Cache.Driver)
	e.setString("REDIS_ADDR", &c.Cache.RedisAddr)
	e.setString("REDIS_PASSWORD", &c.Cache.RedisPassword)
	e.setInt("REDIS_DB", &c.Cache.RedisDB)
	e.setDuration("CACHE_TTL", &c.Cache.TTL)
	e.setInt("CACHE_MAX_ENTRIES", &c.Cache.MaxEntries)

	e.setString("LOG_LEVEL", &c.Log.Level)
	e.setString("LOG_FORMAT", &c.Log.Format)

	e.setString("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)
	e.setString("OTEL_ENDPOINT", &c.Tracing.Endpoint)
	e.setBool("OTEL_INSECURE", &c.Tracing.Insecure)
	e.setFloat("OTEL_SAMPLE_RATIO", &c.Tracing.SampleRatio)

	e.setBool("METRICS_ENABLED", &c.Metrics.Enabled)
	e.setString("METRICS_PATH", &c.Metrics.Path)

	if len(e.errs) > 0 {
		return fmt.Errorf("config: environment: %w", errors.Join(e.errs...))
	}
	return nil
}

// envReader overrides fields from LOANCALC_* variables and collects parse
// errors instead of silently keeping the default.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) setBool(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) setFloat(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) setDuration(key string, dst *Duration) {
	if v, ok := e.lookup(key); ok {
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			e.fail(key, err)
		}
	}
}

func (e *envReader) setDecimal(key string, dst *decimal.Decimal) {
	if v, ok := e.lookup(key); ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}
