// Package memory is an in-process stand-in for the expense service. It
// keeps every record in memory and answers analytics and predictions the
// way the service does.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"expensedesk/internal/core"
	"expensedesk/internal/remote"
	"expensedesk/internal/remote/local"
)

// CategoriesFile is read from the data directory by NewFromFiles.
const CategoriesFile = "seed_categories.txt"

type Service struct {
	mu         sync.Mutex
	user       core.User
	categories []core.Category
	expenses   []core.Expense
	nextID     int64
	predictor  *local.KeywordPredictor
	now        func() time.Time
}

var _ remote.Service = (*Service)(nil)

func New(user core.User, categoryNames []string) *Service {
	names := dedupe(categoryNames)
	cats := make([]core.Category, 0, len(names))
	for i, n := range names {
		cats = append(cats, core.Category{ID: int64(i + 1), Name: n})
	}
	return &Service{
		user:       user,
		categories: cats,
		predictor:  local.NewKeywordPredictor(),
		now:        time.Now,
	}
}

// NewFromFiles seeds categories from base/seed_categories.txt, falling back
// to the prediction vocabulary.
func NewFromFiles(base string, user core.User) *Service {
	cats := readLines(filepath.Join(base, CategoriesFile))
	if len(cats) == 0 {
		cats = local.DefaultCategories
	}
	return New(user, cats)
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Seed inserts records as they are, keeping their ids and statuses.
func (s *Service) Seed(records ...core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range records {
		if e.ID == 0 {
			s.nextID++
			e.ID = s.nextID
		} else if e.ID > s.nextID {
			s.nextID = e.ID
		}
		if e.CategoryName == "" {
			e.CategoryName = s.categoryNameLocked(e.CategoryID)
		}
		s.expenses = append(s.expenses, e)
	}
}

func (s *Service) CreateExpense(ctx context.Context, d core.Draft) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	if err := d.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.categoryNameLocked(d.CategoryID)
	if name == "" {
		return core.Expense{}, fmt.Errorf("%w: category %d", core.ErrMissingCategory, d.CategoryID)
	}
	s.nextID++
	e := core.Expense{
		ID:           s.nextID,
		Title:        strings.TrimSpace(d.Title),
		Amount:       d.Amount,
		CategoryID:   d.CategoryID,
		CategoryName: name,
		Date:         d.Date,
		Description:  d.Description,
		Status:       core.StatusPending,
		OwnerID:      s.user.ID,
		OwnerName:    s.user.FullName,
		CreatedAt:    s.now(),
	}
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Service) ListExpenses(ctx context.Context, scope core.Scope, filter core.ListFilter) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	visible, err := s.visibleLocked(scope)
	if err != nil {
		return nil, err
	}
	var out []core.Expense
	for _, e := range visible {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, filter.Skip, filter.Limit), nil
}

// SetStatus requires a privileged user and a pending record.
func (s *Service) SetStatus(ctx context.Context, id int64, status core.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.user.Role.Privileged() {
		return fmt.Errorf("%w: only managers change status", core.ErrForbiddenScope)
	}
	for i := range s.expenses {
		if s.expenses[i].ID != id {
			continue
		}
		if !s.expenses[i].Status.CanTransition(status) {
			return fmt.Errorf("%w: expense %d is %s", core.ErrInvalidTransition, id, s.expenses[i].Status)
		}
		s.expenses[i] = s.expenses[i].WithStatus(status)
		return nil
	}
	return fmt.Errorf("%w: %d", core.ErrNotFound, id)
}

func (s *Service) ReadAnalytics(ctx context.Context, scope core.Scope) (core.AnalyticsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	visible, err := s.visibleLocked(scope)
	if err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	return local.BuildSnapshot(visible, s.now()), nil
}

func (s *Service) ListCategories(ctx context.Context) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneCategories(s.categories), nil
}

func (s *Service) PredictCategory(ctx context.Context, title string, amount core.Money, description string) (string, error) {
	return s.predictor.PredictCategory(ctx, title, amount, description)
}

func (s *Service) CurrentUser(ctx context.Context) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	return s.user, nil
}

func (s *Service) Summary(ctx context.Context, days int) (core.Insights, error) {
	if err := ctx.Err(); err != nil {
		return core.Insights{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	own, _ := s.visibleLocked(core.ScopeOwn)
	return local.Summarize(local.Since(own, days, s.now()), s.user.FullName, days), nil
}

func (s *Service) BudgetAdvice(ctx context.Context, monthly core.Money) (core.BudgetAdvice, error) {
	if err := ctx.Err(); err != nil {
		return core.BudgetAdvice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	own, _ := s.visibleLocked(core.ScopeOwn)
	return local.Advise(local.InMonth(own, s.now()), monthly), nil
}

func (s *Service) visibleLocked(scope core.Scope) ([]core.Expense, error) {
	switch scope {
	case core.ScopeAll:
		if !s.user.Role.Privileged() {
			return nil, fmt.Errorf("%w: %s", core.ErrForbiddenScope, s.user.Role)
		}
		return core.CloneExpenses(s.expenses), nil
	case core.ScopeOwn:
		var out []core.Expense
		for _, e := range s.expenses {
			if e.OwnerID == s.user.ID {
				out = append(out, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", core.ErrForbiddenScope, scope)
	}
}

func (s *Service) categoryNameLocked(id int64) string {
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func page(in []core.Expense, skip, limit int) []core.Expense {
	if skip < 0 {
		skip = 0
	}
	if skip > len(in) {
		return nil
	}
	in = in[skip:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
