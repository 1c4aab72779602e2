// Package store holds the session's in-memory expense collection and
// category list, kept consistent with the authoritative remote store.
package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"expensedesk/internal/core"
	"expensedesk/internal/events"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote"
)

type EventKind string

const (
	EventReplaced           EventKind = "replaced"
	EventAdded              EventKind = "added"
	EventStatusChanged      EventKind = "status_changed"
	EventCategoriesReplaced EventKind = "categories_replaced"
)

// Event tells observers the record set or category list changed.
type Event struct {
	Kind      EventKind
	ExpenseID int64
	Status    core.Status
	Count     int
}

// Remote is the subset of the remote boundary the store talks to.
type Remote interface {
	remote.ExpenseCreator
	remote.ExpenseLister
	remote.CategoryLister
}

type Store struct {
	remote Remote
	logger *applog.Logger

	mu         sync.RWMutex
	scope      core.Scope
	expenses   []core.Expense
	categories []core.Category
	issued     uint64
	applied    uint64

	group  singleflight.Group
	broker *events.Broker[Event]
}

func New(r Remote, logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Store{
		remote: r,
		logger: logger.WithComponent(applog.ComponentStore),
		scope:  core.ScopeOwn,
		broker: events.NewBroker[Event](),
	}
}

// Load fetches the records visible in scope and replaces the whole collection.
// On failure the previous collection stays in place.
func (s *Store) Load(ctx context.Context, scope core.Scope) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: unknown scope %q", core.ErrFetch, scope)
	}

	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	records, err := s.remote.ListExpenses(ctx, scope, core.ListFilter{})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load expenses",
			applog.FieldOperation, applog.OpLoad, applog.FieldScope, scope, applog.FieldError, err)
		return fmt.Errorf("%w: %w", core.ErrFetch, err)
	}

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Discarding stale expense load", applog.FieldScope, scope)
		return nil
	}
	s.applied = seq
	s.scope = scope
	s.expenses = core.CloneExpenses(records)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Expenses loaded",
		applog.FieldOperation, applog.OpLoad, applog.FieldScope, scope, applog.FieldCount, len(records))
	s.broker.Publish(Event{Kind: EventReplaced, Count: len(records)})
	return nil
}

// Refresh re-fetches the current scope.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Load(ctx, s.Scope())
}

// Submit creates the expense remotely and prepends the confirmed record.
// Nothing is inserted until the server has assigned an id.
func (s *Store) Submit(ctx context.Context, d core.Draft) (core.Expense, error) {
	if err := d.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", core.ErrSubmission, err)
	}

	created, err := s.remote.CreateExpense(ctx, d)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to submit expense",
			applog.FieldOperation, applog.OpSubmit, applog.FieldError, err)
		return core.Expense{}, fmt.Errorf("%w: %w", core.ErrSubmission, err)
	}
	if created.CategoryName == "" {
		created.CategoryName = s.categoryName(created.CategoryID)
	}

	// Loads issued before the create returned predate it and must not replace the collection.
	s.mu.Lock()
	s.issued++
	s.applied = s.issued
	s.expenses = append([]core.Expense{created}, s.expenses...)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Expense submitted",
		applog.FieldOperation, applog.OpSubmit,
		applog.FieldExpenseID, created.ID,
		applog.FieldAmountCents, created.Amount.Cents)
	s.broker.Publish(Event{Kind: EventAdded, ExpenseID: created.ID, Status: created.Status})
	return created, nil
}

// LoadCategories replaces the category list. Concurrent callers share one request.
func (s *Store) LoadCategories(ctx context.Context) ([]core.Category, error) {
	v, err, _ := s.group.Do("categories", func() (any, error) {
		return s.remote.ListCategories(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: categories: %w", core.ErrFetch, err)
	}
	cats := core.CloneCategories(v.([]core.Category))

	s.mu.Lock()
	s.categories = cats
	s.mu.Unlock()

	s.broker.Publish(Event{Kind: EventCategoriesReplaced, Count: len(cats)})
	return core.CloneCategories(cats), nil
}

// ApplyStatus commits a staged status change. It is a no-op returning false
// when the record is gone or already terminal.
func (s *Store) ApplyStatus(id int64, status core.Status) bool {
	s.mu.Lock()
	applied := false
	for i := range s.expenses {
		if s.expenses[i].ID != id {
			continue
		}
		if s.expenses[i].Status.CanTransition(status) {
			s.expenses[i] = s.expenses[i].WithStatus(status)
			applied = true
		}
		break
	}
	s.mu.Unlock()

	if applied {
		s.broker.Publish(Event{Kind: EventStatusChanged, ExpenseID: id, Status: status})
	}
	return applied
}

func (s *Store) Expenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneExpenses(s.expenses)
}

func (s *Store) Expense(id int64) (core.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneCategories(s.categories)
}

func (s *Store) Scope() core.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// Subscribe returns a channel of change events and its cancel func.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	return s.broker.Subscribe(buffer)
}

// Close ends every subscription.
func (s *Store) Close() {
	s.broker.Close()
}

func (s *Store) categoryName(id int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
