// Package worker exports per-period area summaries after imports. It
// normally reacts to batch-imported events; the pending-export scan is the
// backup path for events lost while the worker was down.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/services"
	"saldo/internal/store"
)

// ReportWriter is the export target for one period's area summary.
type ReportWriter interface {
	AppendAreaSummary(ctx context.Context, period core.Period, aggregates []ledger.AreaAggregate) error
}

type ExportWorker struct {
	tracker   store.ExportTracker
	reports   *services.ReportService
	writer    ReportWriter
	batchSize int
}

func NewExportWorker(tracker store.ExportTracker, reports *services.ReportService, writer ReportWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		tracker:   tracker,
		reports:   reports,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleBatchImported processes one batch-imported event from AMQP.
func (w *ExportWorker) HandleBatchImported(ctx context.Context, msg *amqp.BatchImportedMessage) error {
	slog.InfoContext(ctx, "Processing batch imported message",
		"filename", msg.Filename,
		"year", msg.Year,
		"month", msg.Month)

	return w.exportPeriod(ctx, msg.Filename, core.NewPeriod(msg.Year, msg.Month))
}

// ProcessPendingExports exports batches whose export is still outstanding.
// This is the backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.tracker.PendingExportBatches(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending export batches: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))
	for _, batch := range pending {
		if err := w.exportPeriod(ctx, batch.Filename, batch.Period()); err != nil {
			slog.ErrorContext(ctx, "Failed to export batch",
				"filename", batch.Filename, "error", err)
		}
	}
	return nil
}

// StartupExportCheck processes any exports missed while the worker was
// down, with a larger batch than the periodic scan.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.tracker.PendingExportBatches(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending export batches for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, batch := range pending {
		if err := w.exportPeriod(ctx, batch.Filename, batch.Period()); err != nil {
			slog.ErrorContext(ctx, "Failed to export batch during startup",
				"filename", batch.Filename, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)
	return nil
}

// exportPeriod recomputes the area summary for one period from storage and
// pushes it to the report target. The recomputation makes a replayed or
// stale event harmless: whatever is in storage now is what gets exported.
func (w *ExportWorker) exportPeriod(ctx context.Context, filename string, period core.Period) error {
	if err := period.Validate(); err != nil {
		return fmt.Errorf("batch %s period: %w", filename, err)
	}

	if err := w.reports.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh ledger: %w", err)
	}

	aggregates, err := w.reports.AreaSummary(period)
	if err != nil {
		return fmt.Errorf("area summary for %s: %w", period, err)
	}

	if err := w.writer.AppendAreaSummary(ctx, period, aggregates); err != nil {
		if markErr := w.tracker.MarkExportError(ctx, filename); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"filename", filename, "error", markErr)
		}
		return fmt.Errorf("append area summary: %w", err)
	}

	if err := w.tracker.MarkExported(ctx, filename); err != nil {
		// The export itself worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark batch as exported",
			"filename", filename, "error", err)
	}

	slog.InfoContext(ctx, "Exported area summary",
		"filename", filename,
		"period", period.String(),
		"groups", len(aggregates))
	return nil
}
