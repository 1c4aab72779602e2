package storage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"expensedesk/internal/core"
	"expensedesk/internal/remote/local"
)

// ReadAnalytics computes the snapshot with SQL aggregates. The result
// matches local.BuildSnapshot over the same records.
func (r *SQLiteRepository) ReadAnalytics(ctx context.Context, scope core.Scope) (core.AnalyticsSnapshot, error) {
	where, args, err := r.scopeClause(scope)
	if err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var f core.SnapshotFields
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(e.amount_cents), 0), COUNT(*) FROM expenses e`+filter, args...,
	).Scan(&f.Total.Cents, &f.Count); err != nil {
		return core.AnalyticsSnapshot{}, fmt.Errorf("read totals: %w", err)
	}
	if f.Count > 0 {
		f.Average = core.Money{Cents: int64(math.Round(float64(f.Total.Cents) / float64(f.Count)))}
	}

	if f.TopCategories, err = r.categoryShares(ctx, filter, args, f.Total); err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	if f.MonthlyTrends, err = r.monthlyTrends(ctx, where, args); err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	if f.Statuses, err = r.statusCounts(ctx, filter, args); err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	if f.RecentExpenses, err = r.recent(ctx, filter, args); err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	return core.NewSnapshot(f), nil
}

func (r *SQLiteRepository) categoryShares(ctx context.Context, filter string, args []any, total core.Money) ([]core.CategoryShare, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.name, SUM(e.amount_cents) AS total, COUNT(*)
FROM expenses e JOIN categories c ON c.id = e.category_id`+filter+`
GROUP BY c.name
ORDER BY total DESC, c.name ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("read categories breakdown: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryShare
	for rows.Next() {
		var s core.CategoryShare
		if err := rows.Scan(&s.CategoryName, &s.Total.Cents, &s.Count); err != nil {
			return nil, fmt.Errorf("scan category share: %w", err)
		}
		s.Percentage = local.Percentage(s.Total, total)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) monthlyTrends(ctx context.Context, where []string, args []any) ([]core.MonthlyTrend, error) {
	where = append(append([]string(nil), where...), "e.expense_date >= ?")
	args = append(append([]any(nil), args...), trendStart(r.now()).ISO())

	rows, err := r.db.QueryContext(ctx, `
SELECT substr(e.expense_date, 1, 7) AS month, SUM(e.amount_cents), COUNT(*)
FROM expenses e WHERE `+strings.Join(where, " AND ")+`
GROUP BY month
ORDER BY month ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("read monthly trends: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyTrend
	for rows.Next() {
		var m core.MonthlyTrend
		if err := rows.Scan(&m.Month, &m.Total.Cents, &m.Count); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) statusCounts(ctx context.Context, filter string, args []any) (map[core.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT e.status, COUNT(*) FROM expenses e`+filter+` GROUP BY e.status`, args...)
	if err != nil {
		return nil, fmt.Errorf("read status breakdown: %w", err)
	}
	defer rows.Close()

	out := map[core.Status]int{}
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[core.Status(s)] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) recent(ctx context.Context, filter string, args []any) ([]core.RecentExpense, error) {
	q := selectExpense + filter + ` ORDER BY e.created_at DESC, e.id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, append(append([]any(nil), args...), local.RecentLimit)...)
	if err != nil {
		return nil, fmt.Errorf("read recent expenses: %w", err)
	}
	records, err := scanExpenses(rows)
	if err != nil {
		return nil, err
	}
	return local.Recent(records, local.RecentLimit), nil
}

// trendStart is the first calendar day included in monthly trends.
func trendStart(now time.Time) core.Date {
	cutoff := now.UTC().AddDate(0, 0, -local.TrendMonths*30)
	day := core.DateOf(cutoff)
	if day.Before(cutoff) {
		day = core.DateOf(day.AddDate(0, 0, 1))
	}
	return day
}
