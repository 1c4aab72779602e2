package core

import "errors"

var ErrMissingExpenseID = errors.New("ledger entry requires an expense id")

func (e LedgerEntry) Validate() error {
	if e.ExpenseID <= 0 {
		return ErrMissingExpenseID
	}
	return e.Amount.Validate()
}

// Row renders the entry as spreadsheet cells in column order:
// id, date, title, owner, category, amount, approved-at.
func (e LedgerEntry) Row() []any {
	return []any{e.ExpenseID, e.Date.ISO(), e.Title, e.Owner, e.Category, e.Amount.Float(), e.ApprovedAt}
}
