package cli

import (
	"context"
	"fmt"
	"log/slog"

	"loan-calculator/config"
	"loan-calculator/repository"
)

// storage bundles the configured persistence with its lifecycle hooks.
type storage struct {
	loans  repository.LoanRepository
	cache  repository.CacheRepository
	health func(context.Context) error
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	st := &storage{close: func() {}}
	var checks []func(context.Context) error
	var closers []func()

	switch cfg.Storage.Driver {
	case "sqlite":
		repo, err := repository.OpenLoanRepositorySQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		st.loans = repo
		checks = append(checks, repo.Ping)
		closers = append(closers, func() { repo.Close() })
		logger.Info("using sqlite storage", "path", cfg.Storage.SQLitePath)

	case "postgres":
		pg := cfg.Storage.Postgres
		pool, err := repository.NewPostgresPool(ctx, repository.PostgresConfig{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			Database: pg.Database,
			SSLMode:  pg.SSLMode,
			MaxConns: pg.MaxConns,
			MinConns: pg.MinConns,
		})
		if err != nil {
			return nil, err
		}
		repo := repository.NewLoanRepositoryPostgres(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		st.loans = repo
		checks = append(checks, repo.Ping)
		closers = append(closers, pool.Close)
		logger.Info("using postgres storage", "host", pg.Host, "database", pg.Database)

	case "memory":
		st.loans = repository.NewLoanRepositoryMemory()
		logger.Info("using in-memory storage")

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	switch cfg.Cache.Driver {
	case "redis":
		cache := repository.NewRedisCache(repository.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL.Duration,
		}, logger)
		// Redis is optional; an unreachable cache only costs recomputation.
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, continuing without cache hits", "addr", cfg.Cache.RedisAddr, "error", err)
		}
		st.cache = cache
		closers = append(closers, func() { cache.Close() })
	case "memory":
		st.cache = repository.NewMemoryCache(repository.MemoryCacheConfig{
			TTL:        cfg.Cache.TTL.Duration,
			MaxEntries: cfg.Cache.MaxEntries,
		})
	}

	st.health = func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	st.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return st, nil
}
