// Package remote declares the boundary to the authoritative expense service.
// Implementations live in the httpapi, memory and storage packages.
package remote

import (
	"context"

	"expensedesk/internal/core"
)

// Ports for outbound adapters.
type (
	ExpenseCreator interface {
		// CreateExpense returns the server-confirmed record (server id, pending status).
		CreateExpense(ctx context.Context, d core.Draft) (core.Expense, error)
	}

	ExpenseLister interface {
		ListExpenses(ctx context.Context, scope core.Scope, filter core.ListFilter) ([]core.Expense, error)
	}

	// StatusSetter moves an expense to approved or rejected.
	StatusSetter interface {
		SetStatus(ctx context.Context, id int64, status core.Status) error
	}

	AnalyticsReader interface {
		ReadAnalytics(ctx context.Context, scope core.Scope) (core.AnalyticsSnapshot, error)
	}

	CategoryLister interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// CategoryPredictor returns a free-text category name. The vocabulary is
	// not guaranteed to match the local category list.
	CategoryPredictor interface {
		PredictCategory(ctx context.Context, title string, amount core.Money, description string) (string, error)
	}

	IdentityReader interface {
		CurrentUser(ctx context.Context) (core.User, error)
	}

	InsightsReader interface {
		Summary(ctx context.Context, days int) (core.Insights, error)
		BudgetAdvice(ctx context.Context, monthly core.Money) (core.BudgetAdvice, error)
	}
)

// Service is everything a session needs from the remote side.
type Service interface {
	ExpenseCreator
	ExpenseLister
	StatusSetter
	AnalyticsReader
	CategoryLister
	CategoryPredictor
	IdentityReader
	InsightsReader
}
