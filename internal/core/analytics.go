package core

import (
	"math"
	"time"
)

// PercentageTolerance is how far the sum of category percentages may drift
// from 100 because of per-entry rounding.
const PercentageTolerance = 1.0

type (
	// CategoryShare is one row of the category breakdown.
	CategoryShare struct {
		CategoryName string
		Total        Money
		Count        int
		Percentage   float64
	}

	// MonthlyTrend is the total spent in one calendar month.
	MonthlyTrend struct {
		Month string // YYYY-MM
		Total Money
		Count int
	}

	// RecentExpense is the compact form of a record listed on dashboards.
	RecentExpense struct {
		ID        int64
		Title     string
		Amount    Money
		Category  string
		Status    Status
		Date      Date
		CreatedAt time.Time
	}

	// StatusBreakdown counts records per status. Every status is present.
	StatusBreakdown map[Status]int

	// AnalyticsSnapshot is one immutable set of aggregate values. Build it with
	// NewSnapshot and read it through the accessors, which return copies.
	AnalyticsSnapshot struct {
		total          Money
		count          int
		average        Money
		topCategories  []CategoryShare
		monthlyTrends  []MonthlyTrend
		statuses       StatusBreakdown
		recentExpenses []RecentExpense
	}

	// SnapshotFields carries the raw values a snapshot is built from.
	SnapshotFields struct {
		Total          Money
		Count          int
		Average        Money
		TopCategories  []CategoryShare
		MonthlyTrends  []MonthlyTrend
		Statuses       map[Status]int
		RecentExpenses []RecentExpense
	}
)

// NewStatusBreakdown zero-fills every status missing from counts.
func NewStatusBreakdown(counts map[Status]int) StatusBreakdown {
	out := make(StatusBreakdown, len(Statuses()))
	for _, s := range Statuses() {
		out[s] = counts[s]
	}
	return out
}

// NewSnapshot copies f into an immutable snapshot.
func NewSnapshot(f SnapshotFields) AnalyticsSnapshot {
	return AnalyticsSnapshot{
		total:          f.Total,
		count:          f.Count,
		average:        f.Average,
		topCategories:  append([]CategoryShare(nil), f.TopCategories...),
		monthlyTrends:  append([]MonthlyTrend(nil), f.MonthlyTrends...),
		statuses:       NewStatusBreakdown(f.Statuses),
		recentExpenses: append([]RecentExpense(nil), f.RecentExpenses...),
	}
}

func (s AnalyticsSnapshot) TotalAmount() Money   { return s.total }
func (s AnalyticsSnapshot) TotalCount() int      { return s.count }
func (s AnalyticsSnapshot) AverageAmount() Money { return s.average }

func (s AnalyticsSnapshot) TopCategories() []CategoryShare {
	return append([]CategoryShare(nil), s.topCategories...)
}

func (s AnalyticsSnapshot) MonthlyTrends() []MonthlyTrend {
	return append([]MonthlyTrend(nil), s.monthlyTrends...)
}

func (s AnalyticsSnapshot) RecentExpenses() []RecentExpense {
	return append([]RecentExpense(nil), s.recentExpenses...)
}

func (s AnalyticsSnapshot) StatusBreakdown() StatusBreakdown {
	return NewStatusBreakdown(s.statuses)
}

// PercentageSum adds up the category percentages.
func (s AnalyticsSnapshot) PercentageSum() float64 {
	var sum float64
	for _, c := range s.topCategories {
		sum += c.Percentage
	}
	return sum
}

// PercentagesConsistent reports whether the category percentages add up to
// 100 within tolerance. An empty population is trivially consistent.
func (s AnalyticsSnapshot) PercentagesConsistent() bool {
	if len(s.topCategories) == 0 {
		return true
	}
	return math.Abs(s.PercentageSum()-100) <= PercentageTolerance
}

// Top returns the first n category shares, the slice a dashboard shows.
func (s AnalyticsSnapshot) Top(n int) []CategoryShare {
	if n < 0 || n > len(s.topCategories) {
		n = len(s.topCategories)
	}
	return append([]CategoryShare(nil), s.topCategories[:n]...)
}
