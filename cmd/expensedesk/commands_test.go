package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedesk/internal/auth"
	"expensedesk/internal/core"
	"expensedesk/internal/remote/local"
	"expensedesk/internal/remote/memory"
	"expensedesk/internal/session"
)

func startSession(t *testing.T, role core.Role, seed ...core.Expense) *session.Session {
	t.Helper()
	user := core.User{ID: 1, Username: "boss", FullName: "Boss", Role: role}
	svc := memory.New(user, local.DefaultCategories)
	svc.Seed(seed...)

	s, err := session.Start(context.Background(), session.Deps{
		Remote: svc,
		Tokens: auth.NewTokenStore("offline"),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func runCmd(t *testing.T, s *session.Session, name string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), s, name, args, &out)
	return out.String(), err
}

func TestSubmitCommand(t *testing.T) {
	s := startSession(t, core.RoleEmployee)

	out, err := runCmd(t, s, "submit", "-title", "Taxi", "-amount", "42.50", "-category", "travel", "-date", "2024-03-15")
	require.NoError(t, err)
	assert.Contains(t, out, "42.50")
	assert.Contains(t, out, "pending")

	records := s.Store().Expenses()
	require.Len(t, records, 1)
	assert.Equal(t, int64(4250), records[0].Amount.Cents)
	assert.Equal(t, "Travel", records[0].CategoryName)
}

func TestSubmitCommand_PredictsCategory(t *testing.T) {
	s := startSession(t, core.RoleEmployee)

	out, err := runCmd(t, s, "submit", "-title", "Taxi to airport", "-amount", "30", "-predict")
	require.NoError(t, err)
	assert.Contains(t, out, "Predicted category: Transportation")
}

func TestSubmitCommand_InvalidInputLeavesStoreUnchanged(t *testing.T) {
	s := startSession(t, core.RoleEmployee)

	_, err := runCmd(t, s, "submit", "-title", "Taxi", "-amount", "0", "-category", "Travel")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSubmission)

	_, err = runCmd(t, s, "submit", "-title", "Taxi", "-amount", "5", "-category", "Nope")
	require.Error(t, err)
	assert.Empty(t, s.Store().Expenses())
}

func TestApproveAndRejectCommands(t *testing.T) {
	s := startSession(t, core.RoleManager,
		core.Expense{ID: 7, Title: "Hotel", Amount: core.Money{Cents: 10000}, CategoryID: 1, Date: core.NewDate(2024, 3, 1), Status: core.StatusPending},
		core.Expense{ID: 8, Title: "Lunch", Amount: core.Money{Cents: 5000}, CategoryID: 2, Date: core.NewDate(2024, 3, 2), Status: core.StatusPending},
	)

	out, err := runCmd(t, s, "approve", "-id", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Expense #7 is now approved")

	_, err = runCmd(t, s, "approve", "-id", "7")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	out, err = runCmd(t, s, "reject", "-id", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "rejected")

	_, err = runCmd(t, s, "approve")
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	s := startSession(t, core.RoleManager,
		core.Expense{ID: 1, Title: "Hotel", Amount: core.Money{Cents: 10000}, CategoryID: 1, Date: core.NewDate(2024, 3, 1), Status: core.StatusPending},
		core.Expense{ID: 2, Title: "Lunch", Amount: core.Money{Cents: 5000}, CategoryID: 2, Date: core.NewDate(2024, 3, 2), Status: core.StatusApproved},
	)

	out, err := runCmd(t, s, "list", "-status", "approved")
	require.NoError(t, err)
	assert.Contains(t, out, "Lunch")
	assert.NotContains(t, out, "Hotel")

	_, err = runCmd(t, s, "list", "-status", "archived")
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestDashboardCommand(t *testing.T) {
	s := startSession(t, core.RoleManager,
		core.Expense{ID: 1, Title: "Hotel", Amount: core.Money{Cents: 10000}, CategoryID: 1, Date: core.NewDate(2024, 3, 1), Status: core.StatusPending},
		core.Expense{ID: 2, Title: "Lunch", Amount: core.Money{Cents: 5000}, CategoryID: 2, Date: core.NewDate(2024, 3, 2), Status: core.StatusApproved},
	)

	out, err := runCmd(t, s, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending: 100.00 of 150.00")
	assert.Contains(t, out, "Travel")
}

func TestMiscCommands(t *testing.T) {
	s := startSession(t, core.RoleEmployee)

	out, err := runCmd(t, s, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Travel")

	out, err = runCmd(t, s, "predict", "-title", "Uber ride", "-amount", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "Transportation")

	_, err = runCmd(t, s, "budget", "-monthly", "-5")
	assert.Error(t, err)

	_, err = runCmd(t, s, "insights", "-days", "7")
	assert.NoError(t, err)

	_, err = runCmd(t, s, "export")
	assert.Error(t, err)
}
