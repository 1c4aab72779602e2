package sheets

import (
	"context"

	"expensedesk/internal/core"
)

// Ports for the ledger export adapters.
type (
	LedgerWriter interface {
		AppendEntry(ctx context.Context, e core.LedgerEntry) (rowRef string, err error)
	}

	// LedgerReader lists the rows already exported, oldest first.
	LedgerReader interface {
		ListEntries(ctx context.Context) ([]core.LedgerEntry, error)
	}

	Ledger interface {
		LedgerWriter
		LedgerReader
	}
)
