package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedesk/internal/auth"
	"expensedesk/internal/core"
	"expensedesk/internal/remote/memory"
)

var (
	manager  = core.User{ID: 1, Username: "mgr", FullName: "Grace Hopper", Role: core.RoleManager}
	employee = core.User{ID: 2, Username: "emp", FullName: "Alan Turing", Role: core.RoleEmployee}
)

func seeded(user core.User) *memory.Service {
	svc := memory.New(user, []string{"Travel", "Meals"})
	svc.Seed(
		core.Expense{ID: 1, Title: "Flight", Amount: core.Money{Cents: 10000}, CategoryID: 1, Status: core.StatusPending, OwnerID: 2, Date: core.NewDate(2024, 5, 2)},
		core.Expense{ID: 2, Title: "Lunch", Amount: core.Money{Cents: 5000}, CategoryID: 2, Status: core.StatusApproved, OwnerID: 3, Date: core.NewDate(2024, 5, 3)},
	)
	return svc
}

func start(t *testing.T, svc *memory.Service) (*Session, *auth.TokenStore) {
	t.Helper()
	tokens := auth.NewTokenStore("token")
	s, err := Start(context.Background(), Deps{Remote: svc, Tokens: tokens})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, tokens
}

func TestManagerSessionStartsWithAllRecords(t *testing.T) {
	s, _ := start(t, seeded(manager))

	assert.Equal(t, core.ScopeAll, s.Store().Scope())
	assert.Len(t, s.Store().Expenses(), 2)
	assert.Len(t, s.Store().Categories(), 2)

	d, ok := s.Dashboard()
	require.True(t, ok)
	require.NotNil(t, d.Local)
	assert.Equal(t, int64(10000), d.Local.Pending.Cents)
	assert.Equal(t, int64(15000), d.Local.Total.Cents)
}

func TestEmployeeSessionIsScopedToOwnRecords(t *testing.T) {
	s, _ := start(t, seeded(employee))

	assert.Equal(t, core.ScopeOwn, s.Store().Scope())
	assert.Len(t, s.Store().Expenses(), 1)
	d, ok := s.Dashboard()
	require.True(t, ok)
	assert.Nil(t, d.Local)

	err := s.Load(context.Background(), core.ScopeAll)
	assert.ErrorIs(t, err, core.ErrForbiddenScope)
	assert.Len(t, s.Store().Expenses(), 1)
}

func TestApproveReconcilesDashboard(t *testing.T) {
	s, _ := start(t, seeded(manager))
	ctx := context.Background()

	require.NoError(t, s.Approvals().Approve(ctx, 1))

	e, ok := s.Store().Expense(1)
	require.True(t, ok)
	assert.Equal(t, core.StatusApproved, e.Status)

	d, _ := s.Dashboard()
	require.NotNil(t, d.Local)
	assert.Zero(t, d.Local.Pending.Cents)
	assert.Equal(t, 2, d.Snapshot.StatusBreakdown()[core.StatusApproved])

	assert.ErrorIs(t, s.Approvals().Approve(ctx, 1), core.ErrInvalidTransition)
}

func TestSubmitAndPredict(t *testing.T) {
	s, _ := start(t, seeded(employee))
	ctx := context.Background()

	res, err := s.Predictor().Predict(ctx, "Flight to Berlin", core.Money{Cents: 20000}, "")
	require.NoError(t, err)
	assert.Equal(t, "Travel", res.Category.Name)

	created, err := s.Store().Submit(ctx, core.Draft{
		Title: "Taxi", Amount: core.Money{Cents: 4250}, CategoryID: res.Category.ID, Date: core.NewDate(2024, 5, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, created.Status)
	assert.Len(t, s.Store().Expenses(), 2)
}

func TestTokenInvalidationEndsSession(t *testing.T) {
	s, tokens := start(t, seeded(manager))

	tokens.Invalidate()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after token invalidation")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, tokens := start(t, seeded(manager))
	s.Close()
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
	assert.False(t, tokens.Valid())
	assert.Zero(t, s.Predictor().Cache().Size())
}

func TestStartFailsWithoutRemote(t *testing.T) {
	_, err := Start(context.Background(), Deps{Tokens: auth.NewTokenStore("x")})
	assert.Error(t, err)
}

func TestInsightsAndBudget(t *testing.T) {
	s, _ := start(t, seeded(employee))
	ctx := context.Background()

	ins, err := s.Insights(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, ins.Days)

	_, err = s.BudgetAdvice(ctx, core.Money{})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	adv, err := s.BudgetAdvice(ctx, core.Money{Cents: 100000})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), adv.MonthlyBudget.Cents)
}

func TestSubmitRefetchesAnalytics(t *testing.T) {
	for _, user := range []core.User{employee, manager} {
		t.Run(string(user.Role), func(t *testing.T) {
			s, _ := start(t, seeded(user))
			before, ok := s.Dashboard()
			require.True(t, ok)

			created, err := s.Submit(context.Background(), core.Draft{
				Title: "Taxi", Amount: core.Money{Cents: 4250}, CategoryID: 1, Date: core.NewDate(2024, 5, 10),
			})
			require.NoError(t, err)

			after, _ := s.Dashboard()
			assert.Equal(t, before.Snapshot.TotalCount()+1, after.Snapshot.TotalCount())
			_, held := s.Store().Expense(created.ID)
			assert.True(t, held)
		})
	}
}
