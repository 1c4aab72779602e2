package local

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"expensedesk/internal/core"
)

// Since returns the records dated within the last days days.
func Since(records []core.Expense, days int, now time.Time) []core.Expense {
	cutoff := core.DateOf(now.AddDate(0, 0, -days))
	var out []core.Expense
	for _, e := range records {
		if !e.Date.Before(cutoff.Time) {
			out = append(out, e)
		}
	}
	return out
}

// InMonth returns the records dated in now's calendar month.
func InMonth(records []core.Expense, now time.Time) []core.Expense {
	label := core.DateOf(now).MonthLabel()
	var out []core.Expense
	for _, e := range records {
		if e.Date.MonthLabel() == label {
			out = append(out, e)
		}
	}
	return out
}

// Summarize produces a plain-text spending summary over the given records.
func Summarize(records []core.Expense, userName string, days int) core.Insights {
	in := core.Insights{Days: days, ExpenseCount: len(records)}
	if len(records) == 0 {
		in.Text = "No expenses found for analysis. Start by adding some expenses to get personalized insights."
		return in
	}
	for _, e := range records {
		in.TotalAmount = in.TotalAmount.Add(e.Amount)
	}

	snap := BuildSnapshot(records, time.Now())
	var b strings.Builder
	fmt.Fprintf(&b, "%s spent %s across %d expenses in the last %d days.\n", userName, in.TotalAmount, len(records), days)
	for i, c := range snap.Top(3) {
		fmt.Fprintf(&b, "%d. %s: %s (%.1f%%)\n", i+1, c.CategoryName, c.Total, c.Percentage)
	}
	largest := largestExpense(records)
	fmt.Fprintf(&b, "Largest single expense: %s (%s).", largest.Title, largest.Amount)
	in.Text = b.String()
	return in
}

// Advise compares spending against a monthly budget.
func Advise(records []core.Expense, monthly core.Money) core.BudgetAdvice {
	adv := core.BudgetAdvice{MonthlyBudget: monthly}
	for _, e := range records {
		adv.TotalSpent = adv.TotalSpent.Add(e.Amount)
	}
	adv.Remaining = core.Money{Cents: monthly.Cents - adv.TotalSpent.Cents}

	if len(records) == 0 {
		adv.Recommendations = "No expense data available for budget recommendations. Start by adding some expenses."
		return adv
	}

	snap := BuildSnapshot(records, time.Now())
	top := snap.Top(1)
	var b strings.Builder
	switch {
	case adv.Remaining.Cents < 0:
		fmt.Fprintf(&b, "Over budget by %s.", core.Money{Cents: -adv.Remaining.Cents})
	case monthly.Cents > 0 && adv.Remaining.Cents*5 < monthly.Cents:
		fmt.Fprintf(&b, "Less than 20%% of the budget remains (%s).", adv.Remaining)
	default:
		fmt.Fprintf(&b, "On track: %s of %s remaining.", adv.Remaining, monthly)
	}
	if len(top) == 1 {
		fmt.Fprintf(&b, " Largest category is %s at %.1f%% of spending.", top[0].CategoryName, top[0].Percentage)
	}
	adv.Recommendations = b.String()
	return adv
}

func largestExpense(records []core.Expense) core.Expense {
	sorted := core.CloneExpenses(records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount.Cents > sorted[j].Amount.Cents })
	return sorted[0]
}
