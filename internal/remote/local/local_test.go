package local

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedesk/internal/core"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func expense(id int64, cents int64, category string, status core.Status, date core.Date) core.Expense {
	return core.Expense{
		ID:           id,
		Title:        "expense",
		Amount:       core.Money{Cents: cents},
		CategoryName: category,
		Status:       status,
		Date:         date,
		CreatedAt:    now.Add(time.Duration(id) * time.Minute),
	}
}

func TestBuildSnapshot(t *testing.T) {
	records := []core.Expense{
		expense(1, 10000, "Travel", core.StatusPending, core.NewDate(2025, 6, 1)),
		expense(2, 5000, "Meals", core.StatusApproved, core.NewDate(2025, 5, 20)),
		expense(3, 5000, "Travel", core.StatusApproved, core.NewDate(2024, 1, 1)),
	}
	snap := BuildSnapshot(records, now)

	assert.Equal(t, int64(20000), snap.TotalAmount().Cents)
	assert.Equal(t, 3, snap.TotalCount())
	assert.Equal(t, int64(6667), snap.AverageAmount().Cents)

	top := snap.TopCategories()
	require.Len(t, top, 2)
	assert.Equal(t, "Travel", top[0].CategoryName)
	assert.Equal(t, 75.0, top[0].Percentage)
	assert.Equal(t, 2, top[0].Count)
	assert.Equal(t, 25.0, top[1].Percentage)

	trends := snap.MonthlyTrends()
	require.Len(t, trends, 2, "records older than the trend window are excluded")
	assert.Equal(t, "2025-05", trends[0].Month)
	assert.Equal(t, "2025-06", trends[1].Month)

	assert.Equal(t, core.StatusBreakdown{core.StatusPending: 1, core.StatusApproved: 2, core.StatusRejected: 0}, snap.StatusBreakdown())

	recent := snap.RecentExpenses()
	require.Len(t, recent, 3)
	assert.Equal(t, int64(3), recent[0].ID)
}

func TestBuildSnapshotEmpty(t *testing.T) {
	snap := BuildSnapshot(nil, now)
	assert.Zero(t, snap.TotalCount())
	assert.Zero(t, snap.AverageAmount().Cents)
	assert.Empty(t, snap.TopCategories())
	assert.Len(t, snap.StatusBreakdown(), 3)
	assert.True(t, snap.PercentagesConsistent())
}

// For any non-empty population the percentages add up to 100 within rounding.
func TestPercentagesSumToHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 300; run++ {
		n := 1 + rng.Intn(40)
		var records []core.Expense
		for i := 0; i < n; i++ {
			cat := DefaultCategories[rng.Intn(len(DefaultCategories))]
			records = append(records, expense(int64(i+1), 1+rng.Int63n(500000), cat, core.StatusPending, core.NewDate(2025, 6, 1)))
		}
		snap := BuildSnapshot(records, now)
		sum := snap.PercentageSum()
		if math.Abs(sum-100) > core.PercentageTolerance {
			t.Fatalf("run %d: percentages sum to %.4f", run, sum)
		}
	}
}

func TestKeywordPredictor(t *testing.T) {
	p := NewKeywordPredictor()
	cases := map[string]string{
		"Taxi to airport":       "Transportation",
		"Hotel in Berlin":       "Travel",
		"Team lunch":            "Meals & Entertainment",
		"Training course fee":   "Training & Education",
		"Printer toner":         "Office Supplies",
		"Something unexpected":  FallbackCategory,
		"Cloud hosting invoice": "Software & Subscriptions",
	}
	for title, want := range cases {
		got, err := p.PredictCategory(context.Background(), title, core.Money{Cents: 100}, "")
		require.NoError(t, err)
		assert.Equal(t, want, got, title)
	}
}

func TestKeywordPredictorHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKeywordPredictor().PredictCategory(ctx, "Taxi", core.Money{Cents: 1}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarizeAndAdvise(t *testing.T) {
	records := []core.Expense{
		expense(1, 10000, "Travel", core.StatusPending, core.NewDate(2025, 6, 1)),
		expense(2, 5000, "Meals", core.StatusApproved, core.NewDate(2025, 6, 2)),
	}

	in := Summarize(records, "Ada", 30)
	assert.Equal(t, 2, in.ExpenseCount)
	assert.Equal(t, int64(15000), in.TotalAmount.Cents)
	assert.Contains(t, in.Text, "Travel")

	adv := Advise(records, core.Money{Cents: 10000})
	assert.Equal(t, int64(-5000), adv.Remaining.Cents)
	assert.Contains(t, adv.Recommendations, "Over budget by 50.00")

	empty := Summarize(nil, "Ada", 30)
	assert.Zero(t, empty.ExpenseCount)
	assert.NotEmpty(t, empty.Text)
}

func TestSince(t *testing.T) {
	records := []core.Expense{
		expense(1, 100, "Travel", core.StatusPending, core.NewDate(2025, 6, 10)),
		expense(2, 100, "Travel", core.StatusPending, core.NewDate(2025, 4, 1)),
	}
	got := Since(records, 30, now)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}
