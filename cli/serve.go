package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loan-calculator/config"
	httpLayer "loan-calculator/http"
	"loan-calculator/observability"
	"loan-calculator/service"
)

// version is overridden at build time with -ldflags.
var version = "dev"

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Listen port (overrides configuration)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the loan calculator HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Error("error flushing traces", "error", err)
		}
	}()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.close()

	loanService := service.NewLoanService(st.loans, st.cache, logger, limitsFromConfig(cfg))
	termRecommendationService := service.NewTermRecommendationService(loanService, logger)

	routerCfg := httpLayer.RouterConfig{
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
		HealthCheck:    st.health,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if cfg.RateLimit.Enabled {
		rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration)
		defer rateLimiter.Stop()
		routerCfg.RateLimiter = rateLimiter
	}

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: httpLayer.NewRouter(
			httpLayer.NewLoanHandler(loanService, logger),
			httpLayer.NewTermRecommendationHandler(termRecommendationService, logger),
			routerCfg,
		),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("loan calculator listening", "addr", server.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("start server: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := server.Shutdown(sctx); err != nil {
		logger.Error("error during server shutdown", "error", err)
		return err
	}

	logger.Info("server exited")
	return nil
}

func limitsFromConfig(cfg *config.Config) service.Limits {
	return service.Limits{
		MaxLoanAmount:      cfg.Limits.MaxLoanAmount,
		MaxInterestRate:    cfg.Limits.MaxInterestRate,
		MaxTermMonths:      cfg.Limits.MaxTermMonths,
		MaxTermRangeMonths: cfg.Limits.MaxTermRangeMonths,
	}
}
