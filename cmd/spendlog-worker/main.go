package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"spendlog/internal/amqp"
	"spendlog/internal/backend"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	"spendlog/internal/log"
	"spendlog/internal/sheets"
	gsheet "spendlog/internal/sheets/google"
	"spendlog/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Starting spendlog-worker", "backend", cfg.DataBackend)

	if cfg.DataBackend == config.BackendMemory {
		logger.ErrorContext(ctx, "The worker needs a shared store; memory backend is process-local")
		os.Exit(1)
	}

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateStore(bc)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open ledger store", log.FieldError, err.Error())
		os.Exit(1)
	}
	if c, ok := store.(interface{ Close() error }); ok {
		defer c.Close()
	}

	// Sheets mirroring is optional.
	var publisher sheets.TablePublisher
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromConfig(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		publisher = client
		logger.InfoContext(ctx, "Google Sheets publishing enabled", "sheet", cfg.GoogleSheetName)
	}

	reports := worker.NewReportWorker(store, cfg.ReportPath, publisher, cfg.GoogleSheetName)

	// Catch up on anything written while the worker was down.
	if err := reports.Refresh(ctx); err != nil {
		logger.ErrorContext(ctx, "Startup report refresh failed", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		g.Go(func() error {
			client, err := amqp.ConnectWithRetry(gctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()
			logger.InfoContext(gctx, "Consuming ledger events", "queue", cfg.AMQPQueue)
			return client.ConsumeLedgerEvents(gctx, reports.HandleLedgerEvent)
		})
	} else {
		logger.InfoContext(ctx, "AMQP disabled, relying on periodic refresh", "interval", cfg.ReportInterval)
	}

	g.Go(func() error {
		return reports.Run(gctx, cfg.ReportInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete")
}
