package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendlog/internal/cli"
	apphttp "spendlog/internal/http"
	"spendlog/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	res := cli.InitLedger(startCtx, logger, cfg)
	cancel()

	srv, err := apphttp.NewServer(":"+cfg.Port, res.Ledger, apphttp.Options{
		HistogramBins:      cfg.HistogramBins,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if err != nil {
		logger.ErrorContext(startCtx, "Failed to create HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", log.FieldError, err.Error())
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.ErrorContext(ctx, "Backend cleanup error", log.FieldError, err.Error())
			}
		}
	})

	logger.InfoContext(ctx, "Starting spendlog server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", cfg.AMQPURL != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
