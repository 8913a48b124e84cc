package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendlog/internal/aggregate"
	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/export"
	"spendlog/internal/ledger"
	"spendlog/internal/sheets"
	"spendlog/internal/storage/csvfile"
)

// ReportWorker regenerates the category report whenever the ledger changes.
// The report is written to a local CSV file and, when a publisher is set,
// mirrored to a spreadsheet.
type ReportWorker struct {
	store      ledger.Store
	reportPath string
	publisher  sheets.TablePublisher
	sheetName  string
}

// NewReportWorker creates a worker. publisher may be nil.
func NewReportWorker(store ledger.Store, reportPath string, publisher sheets.TablePublisher, sheetName string) *ReportWorker {
	return &ReportWorker{
		store:      store,
		reportPath: reportPath,
		publisher:  publisher,
		sheetName:  sheetName,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP. Events only
// signal a change; the ledger itself is always reloaded from storage.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"id", event.ID,
		"type", event.Type,
		"version", event.Version)

	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh report for %s: %w", event.Type, err)
	}
	return nil
}

// Refresh rebuilds the report from the stored ledger.
func (w *ReportWorker) Refresh(ctx context.Context) error {
	l, err := w.store.Load(ctx)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("load ledger: %w", err)
	}

	stats := aggregate.CategoryStatistics(l.View())
	data, err := export.ToCategoryStatsTable(stats)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := csvfile.WriteFileAtomic(w.reportPath, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if w.publisher != nil {
		if err := w.publisher.PublishTable(ctx, w.sheetName, export.CategoryStatsHeader, export.CategoryStatsRows(stats)); err != nil {
			return fmt.Errorf("publish report: %w", err)
		}
	}

	slog.InfoContext(ctx, "Category report refreshed",
		"path", w.reportPath,
		"categories", len(stats),
		"transactions", l.Len())
	return nil
}

// Run refreshes the report every interval until ctx is cancelled. It is a
// backstop for lost or undelivered events.
func (w *ReportWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic report refresh failed", "error", err)
			}
		}
	}
}
