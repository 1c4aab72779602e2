// Package local computes, from a plain list of records, the same aggregates
// and advisory answers the expense service returns. The memory and SQLite
// backends use it to stand in for the service when running offline.
package local

import (
	"math"
	"sort"
	"time"

	"expensedesk/internal/core"
)

const (
	// TrendMonths is how far back monthly trends reach.
	TrendMonths = 6
	// RecentLimit caps the recent-expenses list of a snapshot.
	RecentLimit = 10
)

// BuildSnapshot aggregates records into a snapshot. Percentages are computed
// over the full category population and rounded to two decimals.
func BuildSnapshot(records []core.Expense, now time.Time) core.AnalyticsSnapshot {
	var total core.Money
	statuses := map[core.Status]int{}
	type bucket struct {
		total core.Money
		count int
	}
	byCategory := map[string]*bucket{}
	byMonth := map[string]*bucket{}
	cutoff := now.AddDate(0, 0, -TrendMonths*30)

	for _, e := range records {
		total = total.Add(e.Amount)
		statuses[e.Status]++

		b, ok := byCategory[e.CategoryName]
		if !ok {
			b = &bucket{}
			byCategory[e.CategoryName] = b
		}
		b.total = b.total.Add(e.Amount)
		b.count++

		if !e.Date.Before(cutoff) {
			label := e.Date.MonthLabel()
			m, ok := byMonth[label]
			if !ok {
				m = &bucket{}
				byMonth[label] = m
			}
			m.total = m.total.Add(e.Amount)
			m.count++
		}
	}

	shares := make([]core.CategoryShare, 0, len(byCategory))
	for name, b := range byCategory {
		shares = append(shares, core.CategoryShare{
			CategoryName: name,
			Total:        b.total,
			Count:        b.count,
			Percentage:   Percentage(b.total, total),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Total.Cents != shares[j].Total.Cents {
			return shares[i].Total.Cents > shares[j].Total.Cents
		}
		return shares[i].CategoryName < shares[j].CategoryName
	})

	trends := make([]core.MonthlyTrend, 0, len(byMonth))
	for label, m := range byMonth {
		trends = append(trends, core.MonthlyTrend{Month: label, Total: m.total, Count: m.count})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })

	var average core.Money
	if len(records) > 0 {
		average = core.Money{Cents: int64(math.Round(float64(total.Cents) / float64(len(records))))}
	}

	return core.NewSnapshot(core.SnapshotFields{
		Total:          total,
		Count:          len(records),
		Average:        average,
		TopCategories:  shares,
		MonthlyTrends:  trends,
		Statuses:       statuses,
		RecentExpenses: Recent(records, RecentLimit),
	})
}

// Percentage returns part/whole*100 rounded to two decimals, 0 for an empty whole.
func Percentage(part, whole core.Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	return math.Round(float64(part.Cents)/float64(whole.Cents)*10000) / 100
}

// Recent returns up to limit records, newest first by creation time.
func Recent(records []core.Expense, limit int) []core.RecentExpense {
	sorted := core.CloneExpenses(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]core.RecentExpense, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, core.RecentExpense{
			ID:        e.ID,
			Title:     e.Title,
			Amount:    e.Amount,
			Category:  e.CategoryName,
			Status:    e.Status,
			Date:      e.Date,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
