package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedesk/internal/auth"
	"expensedesk/internal/core"
	applog "expensedesk/internal/log"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *auth.TokenStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tokens := auth.NewTokenStore("secret-token")
	c, err := New(Options{BaseURL: srv.URL + "/api/v1/", Tokens: tokens})
	require.NoError(t, err)
	return c, tokens
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url", Tokens: auth.NewTokenStore("x")})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "http://localhost:8000/api/v1"})
	assert.Error(t, err)
}

func TestCreateExpenseSendsDraftAndDecodesRecord(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/expenses/", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(applog.HeaderRequestID))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Taxi", body["title"])
		assert.InDelta(t, 42.5, body["amount"], 0.0001)
		assert.Equal(t, "2024-03-05T00:00:00", body["date"])
		assert.EqualValues(t, 2, body["category_id"])
		assert.NotContains(t, body, "description")

		writeJSON(w, http.StatusOK, map[string]any{
			"id": 9, "title": "Taxi", "amount": 42.5, "description": nil,
			"date": "2024-03-05T00:00:00", "category_id": 2, "status": "pending",
			"user_id": 1, "created_at": "2024-03-05T10:11:12.123456",
			"category_name": "Transportation", "user_name": "Ada Lovelace",
		})
	}))

	got, err := c.CreateExpense(context.Background(), core.Draft{
		Title: "Taxi", Amount: core.Money{Cents: 4250}, CategoryID: 2, Date: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 9, got.ID)
	assert.Equal(t, core.StatusPending, got.Status)
	assert.Equal(t, int64(4250), got.Amount.Cents)
	assert.Equal(t, "2024-03-05", got.Date.ISO())
	assert.Equal(t, "Transportation", got.CategoryName)
	assert.Equal(t, "Ada Lovelace", got.OwnerName)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestListExpensesRoutesByScope(t *testing.T) {
	record := func(id int, status string) map[string]any {
		return map[string]any{"id": id, "title": "Lunch", "amount": 10.0, "date": "2024-01-02", "category_id": 1, "status": status, "user_id": 1, "created_at": "2024-01-02T00:00:00"}
	}
	var paths []string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		writeJSON(w, http.StatusOK, []any{record(1, "pending"), record(2, "approved")})
	}))
	ctx := context.Background()

	own, err := c.ListExpenses(ctx, core.ScopeOwn, core.ListFilter{Status: core.StatusApproved})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.EqualValues(t, 2, own[0].ID)

	all, err := c.ListExpenses(ctx, core.ScopeAll, core.ListFilter{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = c.ListExpenses(ctx, core.ScopeAll, core.ListFilter{Status: core.StatusPending})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/v1/expenses/user",
		"/api/v1/expenses/?limit=50",
		"/api/v1/expenses/status/pending",
	}, paths)
}

func TestSetStatusUsesActionPath(t *testing.T) {
	var got []string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}))
	ctx := context.Background()

	require.NoError(t, c.SetStatus(ctx, 7, core.StatusApproved))
	require.NoError(t, c.SetStatus(ctx, 8, core.StatusRejected))
	err := c.SetStatus(ctx, 9, core.StatusPending)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	assert.Equal(t, []string{"PUT /api/v1/expenses/7/approve", "PUT /api/v1/expenses/8/reject"}, got)
}

func TestReadAnalyticsDecodesSnapshot(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analytics/all", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"total_expenses": 150.0, "total_count": 2, "average_amount": 75.0,
			"top_categories": []any{
				map[string]any{"category_name": "Travel", "total_amount": 100.0, "percentage": 66.67, "count": 1},
				map[string]any{"category_name": "Meals", "total_amount": 50.0, "percentage": 33.33, "count": 1},
			},
			"monthly_trends":   []any{map[string]any{"month": "2024-01", "total_amount": 150.0, "count": 2}},
			"status_breakdown": map[string]int{"pending": 1, "approved": 1},
			"recent_expenses":  []any{map[string]any{"id": 1, "title": "Flight", "amount": 100.0, "category": "Travel", "status": "pending", "date": "2024-01-03T00:00:00", "created_at": "2024-01-03T09:00:00"}},
		})
	}))

	snap, err := c.ReadAnalytics(context.Background(), core.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), snap.TotalAmount().Cents)
	assert.Equal(t, 2, snap.TotalCount())
	assert.True(t, snap.PercentagesConsistent())
	assert.Equal(t, 0, snap.StatusBreakdown()[core.StatusRejected])
	require.Len(t, snap.RecentExpenses(), 1)
	assert.Equal(t, "2024-01-03", snap.RecentExpenses()[0].Date.ISO())
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	}))

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Could not validate credentials", apiErr.Detail)
	assert.NotEmpty(t, apiErr.RequestID)

	select {
	case <-tokens.Invalidated():
	default:
		t.Fatal("token store was not invalidated")
	}

	_, err = c.ListCategories(context.Background())
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestErrorDetailVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"Expense not found"}`, "Expense not found"},
		{"list", `{"detail":[{"loc":["body","title"]}]}`, `[{"loc":["body","title"]}]`},
		{"plain", "Internal Server Error", "Internal Server Error"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, tc.body)
			}))
			err := c.SetStatus(context.Background(), 1, core.StatusApproved)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.want, apiErr.Detail)
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestPredictAndInsights(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/ai/predict-category":
			assert.Equal(t, "Taxi", r.URL.Query().Get("title"))
			assert.Equal(t, "42.50", r.URL.Query().Get("amount"))
			writeJSON(w, http.StatusOK, map[string]string{"predicted_category": "transportation", "confidence": "high"})
		case "/api/v1/ai/summary":
			var req summaryRequestDTO
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 14, req.Days)
			writeJSON(w, http.StatusOK, map[string]any{"insights": "steady", "total_expenses": 3, "total_amount": 99.99})
		case "/api/v1/ai/budget-recommendations":
			assert.Equal(t, "500.00", r.URL.Query().Get("monthly_budget"))
			writeJSON(w, http.StatusOK, map[string]any{"recommendations": "ok", "monthly_budget": 500.0, "total_spent": 120.0, "remaining_budget": 380.0})
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	name, err := c.PredictCategory(ctx, "Taxi", core.Money{Cents: 4250}, "")
	require.NoError(t, err)
	assert.Equal(t, "transportation", name)

	ins, err := c.Summary(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, 3, ins.ExpenseCount)
	assert.Equal(t, int64(9999), ins.TotalAmount.Cents)

	adv, err := c.BudgetAdvice(ctx, core.Money{Cents: 50000})
	require.NoError(t, err)
	assert.Equal(t, int64(38000), adv.Remaining.Cents)
}
