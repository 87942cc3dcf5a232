// Package worker mirrors ledger changes into the transaction export sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/sheets"
)

// Source is the part of the ledger the worker reads from.
type Source interface {
	GetTransaction(ctx context.Context, id core.ID) (core.Transaction, error)
	GetCategory(ctx context.Context, id core.ID) (core.Category, error)
	ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error)
}

// ExportWorker handles ledger events by upserting or clearing sheet rows.
type ExportWorker struct {
	source    Source
	exporter  sheets.TransactionExporter
	batchSize int
}

func NewExportWorker(source Source, exporter sheets.TransactionExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 || batchSize > ledger.MaxListLimit {
		batchSize = ledger.MaxListLimit
	}
	return &ExportWorker{source: source, exporter: exporter, batchSize: batchSize}
}

// HandleEvent processes a single ledger event from AMQP. Events carry ids
// only, so the row is always built from the current stored transaction.
func (w *ExportWorker) HandleEvent(ctx context.Context, evt amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event", evt.Event,
		"transaction_id", evt.TransactionID,
		"user_id", evt.UserID)

	switch evt.Event {
	case amqp.TransactionCreated, amqp.TransactionUpdated, amqp.InstallmentPaid:
		return w.export(ctx, evt.TransactionID)
	case amqp.TransactionDeleted:
		return w.clear(ctx, evt.TransactionID)
	case amqp.TransactionsCleared:
		n, err := w.exporter.ClearUserYear(ctx, evt.UserID, evt.Year)
		if err != nil {
			return fmt.Errorf("clear user year: %w", err)
		}
		slog.InfoContext(ctx, "Cleared exported rows",
			"user_id", evt.UserID,
			"year", evt.Year,
			"rows", n)
		return nil
	}
	return fmt.Errorf("unknown event type %q", evt.Event)
}

func (w *ExportWorker) export(ctx context.Context, id core.ID) error {
	t, err := w.source.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// deleted before the event was handled
		slog.InfoContext(ctx, "Transaction gone, clearing row", "transaction_id", id)
		return w.clear(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	return w.upsert(ctx, t)
}

func (w *ExportWorker) upsert(ctx context.Context, t core.Transaction) error {
	name := ""
	c, err := w.source.GetCategory(ctx, t.CategoryID)
	switch {
	case err == nil:
		name = c.Name
	case errors.Is(err, core.ErrNotFound):
		slog.WarnContext(ctx, "Category missing for exported transaction",
			"transaction_id", t.ID,
			"category_id", t.CategoryID)
	default:
		return fmt.Errorf("get category: %w", err)
	}

	ref, err := w.exporter.Upsert(ctx, sheets.NewRow(t, name))
	if err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}
	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", t.ID,
		"row", ref,
		"value_cents", t.Value.Cents)
	return nil
}

func (w *ExportWorker) clear(ctx context.Context, id core.ID) error {
	if err := w.exporter.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear row: %w", err)
	}
	slog.InfoContext(ctx, "Cleared exported transaction", "transaction_id", id)
	return nil
}

// ExportUser re-exports every transaction of userID in pages of batchSize.
// It recovers rows after lost messages or worker downtime. Failed rows are
// logged and skipped.
func (w *ExportWorker) ExportUser(ctx context.Context, userID core.ID) (synced, failed int, err error) {
	for skip := 0; ; skip += w.batchSize {
		page, err := w.source.ListTransactions(ctx, ledger.TransactionFilter{
			UserID: userID,
			Skip:   skip,
			Limit:  w.batchSize,
		})
		if err != nil {
			return synced, failed, fmt.Errorf("list transactions: %w", err)
		}
		for _, t := range page {
			if err := ctx.Err(); err != nil {
				return synced, failed, err
			}
			if err := w.upsert(ctx, t); err != nil {
				slog.ErrorContext(ctx, "Failed to export transaction",
					"transaction_id", t.ID, "error", err)
				failed++
				continue
			}
			synced++
		}
		if len(page) < w.batchSize {
			break
		}
	}

	slog.InfoContext(ctx, "User export completed",
		"user_id", userID,
		"synced", synced,
		"errors", failed)
	return synced, failed, nil
}
