// Package worker mirrors transactions to the external ledger. The normal
// path is AMQP driven; a periodic backup scan picks up transactions whose
// message was lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/ledger"
	"fintrack/internal/store"
)

// Store is the storage surface the worker needs: the export queue plus
// category lookup for resolving ledger row names.
type Store interface {
	store.ExportQueue
	GetCategory(ctx context.Context, userID, id int64) (core.Category, error)
}

// ExportWorker consumes export and delete messages and writes ledger rows.
type ExportWorker struct {
	store     Store
	ledger    ledger.Ledger
	batchSize int
}

var _ events.Handler = (*ExportWorker)(nil)

func NewExportWorker(store Store, ledger ledger.Ledger, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		store:     store,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleExport processes a single export message from AMQP.
func (w *ExportWorker) HandleExport(ctx context.Context, msg *events.TransactionExportMessage) error {
	tx, err := w.store.GetTransactionForExport(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and consume. Nothing to mirror.
		slog.WarnContext(ctx, "Transaction gone before export", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.exportTransaction(ctx, tx)
}

// HandleDelete processes a single delete message from AMQP.
func (w *ExportWorker) HandleDelete(ctx context.Context, msg *events.TransactionDeleteMessage) error {
	if err := w.ledger.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove ledger row: %w", err)
	}

	slog.InfoContext(ctx, "Removed transaction from ledger", "id", msg.ID)
	return nil
}

// ProcessPendingExports mirrors any transactions that still carry pending
// export status. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", tx.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupCheck drains the pending backlog at worker startup, using a larger
// batch to recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", tx.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}

// RunBackupScan runs ProcessPendingExports on the given interval until ctx
// is cancelled.
func (w *ExportWorker) RunBackupScan(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPendingExports(ctx); err != nil {
				slog.ErrorContext(ctx, "Backup export scan failed", "error", err)
			}
		}
	}
}

func (w *ExportWorker) exportTransaction(ctx context.Context, tx core.Transaction) error {
	categoryName := ""
	cat, err := w.store.GetCategory(ctx, tx.UserID, tx.CategoryID)
	if err != nil {
		// Rows without a resolvable category still get mirrored; the name
		// column just stays empty.
		slog.WarnContext(ctx, "Category not resolvable for export",
			"id", tx.ID,
			"category_id", tx.CategoryID,
			"error", err)
	} else {
		categoryName = cat.Name
	}

	row := ledger.Row{
		TxID:     tx.ID,
		Date:     tx.Date,
		Type:     tx.Type,
		Category: categoryName,
		Amount:   tx.Amount,
		Note:     tx.Note,
	}

	ref, err := w.ledger.Append(ctx, row)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.store.MarkExported(ctx, tx.ID); err != nil {
		// The row landed; only the status write failed. The backup scan will
		// retry and the ledger append is keyed by transaction ID.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction to ledger",
		"id", tx.ID,
		"ledger_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}
