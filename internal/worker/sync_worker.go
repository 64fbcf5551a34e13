// Package worker consumes change-feed messages and keeps the Google
// Sheets export and the profile table in step with the database.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/amqp"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/sheets"
	"github.com/rhexdiaz/pcshop-finance-tracker/internal/storage"
)

// SyncWorker exports transactions from SQLite to the spreadsheet and
// applies queued profile reconciliations.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	appender  sheets.TransactionAppender
	remover   sheets.TransactionRemover
	summaries sheets.SummaryWriter
	batchSize int
}

func NewSyncWorker(
	storage *storage.SQLiteRepository,
	appender sheets.TransactionAppender,
	remover sheets.TransactionRemover,
	summaries sheets.SummaryWriter,
	batchSize int,
) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		storage:   storage,
		appender:  appender,
		remover:   remover,
		summaries: summaries,
		batchSize: batchSize,
	}
}

// HandleTransactionEvent processes one change-feed message. The message
// carries only the id; the database row is authoritative.
func (w *SyncWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"type", msg.Type, "id", msg.ID, "version", msg.Version)

	switch msg.Type {
	case amqp.EventTransactionDeleted:
		return w.removeFromExport(ctx, msg.ID)
	case amqp.EventTransactionChanged:
		// fallthrough below
	default:
		slog.WarnContext(ctx, "Unknown transaction event type, ignoring", "type", msg.Type)
		return nil
	}

	t, err := w.storage.GetTransaction(ctx, msg.ID)
	if errors.Is(err, storage.ErrTransactionNotFound) {
		// Deleted between publish and consume; make sure the export
		// doesn't keep it either.
		return w.removeFromExport(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	return w.export(ctx, t)
}

func (w *SyncWorker) export(ctx context.Context, t core.Transaction) error {
	if w.appender == nil {
		slog.WarnContext(ctx, "No export target configured, skipping", "id", t.ID)
		return nil
	}

	ref, err := w.appender.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append to export: %w", err)
	}
	if err := w.storage.MarkTransactionSynced(ctx, t.ID); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction", "id", t.ID, "row_ref", ref)

	w.refreshMonthSummary(ctx, t.Date.Year(), t.Date.Month())
	return nil
}

func (w *SyncWorker) removeFromExport(ctx context.Context, id int64) error {
	if w.remover == nil {
		slog.WarnContext(ctx, "No export remover configured, skipping", "id", id)
		return nil
	}
	if err := w.remover.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove from export: %w", err)
	}
	slog.InfoContext(ctx, "Removed transaction from export", "id", id)
	return nil
}

// refreshMonthSummary recomputes and re-exports the month's totals. A
// failure is logged; the per-row export already succeeded.
func (w *SyncWorker) refreshMonthSummary(ctx context.Context, year, month int) {
	if w.summaries == nil {
		return
	}
	summary, err := w.storage.MonthSummary(ctx, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to compute month summary",
			"year", year, "month", month, "error", err)
		return
	}
	if err := w.summaries.WriteMonthSummary(ctx, summary); err != nil {
		slog.ErrorContext(ctx, "Failed to export month summary",
			"year", year, "month", month, "error", err)
	}
}

// HandleProfileReconcile re-applies a profile write that failed during
// provisioning. The upsert is idempotent, so duplicate deliveries are
// harmless.
func (w *SyncWorker) HandleProfileReconcile(ctx context.Context, msg *amqp.ProfileReconcileMessage) error {
	slog.InfoContext(ctx, "Processing profile reconcile",
		"user_id", msg.UserID, "role", msg.Role)

	profile := core.Profile{
		ID:       msg.UserID,
		FullName: msg.FullName,
		Role:     core.NormalizeRole(msg.Role),
	}
	if err := w.storage.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	slog.InfoContext(ctx, "Reconciled profile", "user_id", msg.UserID, "role", profile.Role)
	return nil
}

// ProcessPendingTransactions sweeps rows the change feed may have
// missed. One failed row does not stop the sweep.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.ListUnsyncedTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	var firstErr error
	for _, t := range pending {
		if err := w.export(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				"id", t.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
