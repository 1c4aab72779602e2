package core

type (
	// Insights is the free-text spending summary produced by the remote
	// assistant for the last Days days.
	Insights struct {
		Text         string
		Days         int
		ExpenseCount int
		TotalAmount  Money
	}

	// BudgetAdvice holds budget recommendations against a monthly budget.
	BudgetAdvice struct {
		Recommendations string
		MonthlyBudget   Money
		TotalSpent      Money
		Remaining       Money
	}

	// LedgerEntry is one exported row for an approved expense.
	LedgerEntry struct {
		ExpenseID  int64
		Date       Date
		Title      string
		Owner      string
		Category   string
		Amount     Money
		ApprovedAt string
	}
)
