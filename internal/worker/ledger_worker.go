package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"expensedesk/internal/amqp"
	"expensedesk/internal/cache"
	"expensedesk/internal/core"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote"
	"expensedesk/internal/sheets"
)

// exportedTTL bounds how long an exported id is remembered.
const exportedTTL = 30 * 24 * time.Hour

// LedgerWorker appends approved expenses to the ledger. Each expense id is
// written at most once per dedupe window.
type LedgerWorker struct {
	ledger   sheets.LedgerWriter
	exported *cache.LRUCache[string]
	logger   *applog.Logger
}

func NewLedgerWorker(ledger sheets.LedgerWriter, dedupeSize int, logger *applog.Logger) *LedgerWorker {
	if dedupeSize <= 0 {
		dedupeSize = 1024
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &LedgerWorker{
		ledger:   ledger,
		exported: cache.NewLRUCache[string](dedupeSize, exportedTTL),
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Exported exposes the dedupe cache for registration with a cache manager.
func (w *LedgerWorker) Exported() *cache.LRUCache[string] {
	return w.exported
}

// HandleStatusChanged processes a single status-change message from AMQP.
// Non-approvals and already exported ids are acknowledged without a write.
func (w *LedgerWorker) HandleStatusChanged(ctx context.Context, msg *amqp.StatusChangedMessage) error {
	if !msg.Approved() {
		w.logger.DebugContext(ctx, "Skipping non-approval",
			applog.FieldExpenseID, msg.ExpenseID, applog.FieldStatus, msg.Status)
		return nil
	}
	return w.export(ctx, msg.LedgerEntry())
}

func (w *LedgerWorker) export(ctx context.Context, entry core.LedgerEntry) error {
	key := strconv.FormatInt(entry.ExpenseID, 10)
	if ref, ok := w.exported.Get(key); ok {
		w.logger.DebugContext(ctx, "Expense already exported",
			applog.FieldExpenseID, entry.ExpenseID, "ledger_ref", ref)
		return nil
	}

	ref, err := w.ledger.AppendEntry(ctx, entry)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export expense",
			applog.FieldOperation, applog.OpExport,
			applog.FieldExpenseID, entry.ExpenseID,
			applog.FieldError, err)
		return fmt.Errorf("append to ledger: %w", err)
	}
	w.exported.Set(key, ref)

	w.logger.InfoContext(ctx, "Exported approved expense",
		applog.FieldOperation, applog.OpExport,
		applog.FieldExpenseID, entry.ExpenseID,
		applog.FieldAmountCents, entry.Amount.Cents,
		"ledger_ref", ref)
	return nil
}

// WarmDedupe marks every id already present in the ledger as exported.
// Ledgers that cannot be read are left as they are.
func (w *LedgerWorker) WarmDedupe(ctx context.Context) error {
	reader, ok := w.ledger.(sheets.LedgerReader)
	if !ok {
		return nil
	}
	entries, err := reader.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list ledger entries: %w", err)
	}
	for _, e := range entries {
		w.exported.Set(strconv.FormatInt(e.ExpenseID, 10), "existing")
	}
	w.logger.InfoContext(ctx, "Ledger dedupe warmed", applog.FieldCount, len(entries))
	return nil
}

// Backfill exports approved expenses the worker may have missed while it
// was down. It needs a source that can list every employee's records.
func (w *LedgerWorker) Backfill(ctx context.Context, src remote.ExpenseLister) error {
	approved, err := src.ListExpenses(ctx, core.ScopeAll, core.ListFilter{Status: core.StatusApproved})
	if err != nil {
		return fmt.Errorf("list approved expenses: %w", err)
	}
	if len(approved) == 0 {
		w.logger.InfoContext(ctx, "No approved expenses found on startup")
		return nil
	}

	exported, failed := 0, 0
	for _, e := range approved {
		if w.exported.Peek(strconv.FormatInt(e.ID, 10)) {
			continue
		}
		if err := w.export(ctx, ledgerEntryFor(e)); err != nil {
			failed++
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Startup backfill completed",
		"total", len(approved),
		"exported", exported,
		"errors", failed)
	return nil
}

func ledgerEntryFor(e core.Expense) core.LedgerEntry {
	return amqp.NewStatusChangedMessage(e).LedgerEntry()
}
