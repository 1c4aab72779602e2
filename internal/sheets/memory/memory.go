package memory

import (
	"context"
	"fmt"
	"sync"

	"expensedesk/internal/core"
	ports "expensedesk/internal/sheets"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger keeps exported rows in memory. Used when no spreadsheet is configured.
type Ledger struct {
	mu    sync.Mutex
	items []core.LedgerEntry
}

func New(seed ...core.LedgerEntry) *Ledger {
	return &Ledger{items: append([]core.LedgerEntry(nil), seed...)}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (l *Ledger) AppendEntry(_ context.Context, e core.LedgerEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, e)
	return fmt.Sprintf("mem:%d", len(l.items)), nil
}

func (l *Ledger) ListEntries(_ context.Context) ([]core.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.LedgerEntry(nil), l.items...), nil
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
