package httpapi

import (
	"time"

	"expensedesk/internal/core"
)

// Wire shapes of the expense service's JSON API.

type expenseDTO struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Amount       float64 `json:"amount"`
	Description  *string `json:"description"`
	Date         string  `json:"date"`
	CategoryID   int64   `json:"category_id"`
	Status       string  `json:"status"`
	UserID       int64   `json:"user_id"`
	CreatedAt    string  `json:"created_at"`
	CategoryName *string `json:"category_name"`
	UserName     *string `json:"user_name"`
}

type createExpenseDTO struct {
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Description *string `json:"description,omitempty"`
	Date        string  `json:"date"`
	CategoryID  int64   `json:"category_id"`
}

type categoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type categoryBreakdownDTO struct {
	CategoryName string  `json:"category_name"`
	TotalAmount  float64 `json:"total_amount"`
	Percentage   float64 `json:"percentage"`
	Count        int     `json:"count"`
}

type monthlyTrendDTO struct {
	Month       string  `json:"month"`
	TotalAmount float64 `json:"total_amount"`
	Count       int     `json:"count"`
}

type recentExpenseDTO struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Status    string  `json:"status"`
	Date      string  `json:"date"`
	CreatedAt string  `json:"created_at"`
}

type analyticsDTO struct {
	TotalExpenses   float64                `json:"total_expenses"`
	TotalCount      int                    `json:"total_count"`
	AverageAmount   float64                `json:"average_amount"`
	TopCategories   []categoryBreakdownDTO `json:"top_categories"`
	MonthlyTrends   []monthlyTrendDTO      `json:"monthly_trends"`
	StatusBreakdown map[string]int         `json:"status_breakdown"`
	RecentExpenses  []recentExpenseDTO     `json:"recent_expenses"`
}

type predictionDTO struct {
	PredictedCategory string `json:"predicted_category"`
	Confidence        string `json:"confidence"`
}

type summaryRequestDTO struct {
	Days int `json:"days"`
}

type summaryDTO struct {
	Insights      string  `json:"insights"`
	TotalExpenses int     `json:"total_expenses"`
	TotalAmount   float64 `json:"total_amount"`
}

type budgetDTO struct {
	Recommendations string  `json:"recommendations"`
	MonthlyBudget   float64 `json:"monthly_budget"`
	TotalSpent      float64 `json:"total_spent"`
	RemainingBudget float64 `json:"remaining_budget"`
}

func (d expenseDTO) toCore() (core.Expense, error) {
	date, err := core.ParseDate(d.Date)
	if err != nil {
		return core.Expense{}, err
	}
	status, err := core.ParseStatus(d.Status)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:         d.ID,
		Title:      d.Title,
		Amount:     core.MoneyFromFloat(d.Amount),
		CategoryID: d.CategoryID,
		Date:       date,
		Status:     status,
		OwnerID:    d.UserID,
		CreatedAt:  parseTimestamp(d.CreatedAt),
	}
	if d.Description != nil {
		e.Description = *d.Description
	}
	if d.CategoryName != nil {
		e.CategoryName = *d.CategoryName
	}
	if d.UserName != nil {
		e.OwnerName = *d.UserName
	}
	return e, nil
}

func newCreateExpenseDTO(d core.Draft) createExpenseDTO {
	out := createExpenseDTO{
		Title:      d.Title,
		Amount:     d.Amount.Float(),
		Date:       d.Date.Format("2006-01-02T15:04:05"),
		CategoryID: d.CategoryID,
	}
	if d.Description != "" {
		desc := d.Description
		out.Description = &desc
	}
	return out
}

func (d analyticsDTO) toCore() core.AnalyticsSnapshot {
	f := core.SnapshotFields{
		Total:    core.MoneyFromFloat(d.TotalExpenses),
		Count:    d.TotalCount,
		Average:  core.MoneyFromFloat(d.AverageAmount),
		Statuses: make(map[core.Status]int, len(d.StatusBreakdown)),
	}
	for _, c := range d.TopCategories {
		f.TopCategories = append(f.TopCategories, core.CategoryShare{
			CategoryName: c.CategoryName,
			Total:        core.MoneyFromFloat(c.TotalAmount),
			Count:        c.Count,
			Percentage:   c.Percentage,
		})
	}
	for _, m := range d.MonthlyTrends {
		f.MonthlyTrends = append(f.MonthlyTrends, core.MonthlyTrend{
			Month: m.Month,
			Total: core.MoneyFromFloat(m.TotalAmount),
			Count: m.Count,
		})
	}
	for k, v := range d.StatusBreakdown {
		if s, err := core.ParseStatus(k); err == nil {
			f.Statuses[s] = v
		}
	}
	for _, r := range d.RecentExpenses {
		re := core.RecentExpense{
			ID:        r.ID,
			Title:     r.Title,
			Amount:    core.MoneyFromFloat(r.Amount),
			Category:  r.Category,
			Status:    core.Status(r.Status),
			CreatedAt: parseTimestamp(r.CreatedAt),
		}
		if date, err := core.ParseDate(r.Date); err == nil {
			re.Date = date
		}
		f.RecentExpenses = append(f.RecentExpenses, re)
	}
	return core.NewSnapshot(f)
}

func (d userDTO) toCore() core.User {
	role := core.Role(d.Role)
	if !role.Valid() {
		role = core.RoleEmployee
	}
	return core.User{
		ID:       d.ID,
		Email:    d.Email,
		Username: d.Username,
		FullName: d.FullName,
		Role:     role,
	}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
