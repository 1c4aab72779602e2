// Package analytics folds the server-computed aggregate and the figures
// derived from the local collection into one dashboard value.
package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensedesk/internal/core"
	"expensedesk/internal/events"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote"
	"expensedesk/internal/store"
)

// LocalFigures are summed from the records held in memory. Only the
// privileged all-records view carries them.
type LocalFigures struct {
	Total        core.Money
	Pending      core.Money
	Count        int
	StatusCounts core.StatusBreakdown
}

// Dashboard is one immutable presentation of the analytics.
type Dashboard struct {
	Snapshot   core.AnalyticsSnapshot
	Local      *LocalFigures
	Role       core.Role
	Scope      core.Scope
	ComputedAt time.Time
}

// Records supplies the held collection.
type Records interface {
	Expenses() []core.Expense
}

type Aggregator struct {
	remote  remote.AnalyticsReader
	records Records
	logger  *applog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	role    core.Role
	scope   core.Scope
	current *Dashboard
	issued  uint64
	applied uint64

	broker *events.Broker[Dashboard]
}

func New(r remote.AnalyticsReader, records Records, logger *applog.Logger) *Aggregator {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Aggregator{
		remote:  r,
		records: records,
		logger:  logger.WithComponent(applog.ComponentAnalytics),
		now:     time.Now,
		role:    core.RoleEmployee,
		scope:   core.ScopeOwn,
		broker:  events.NewBroker[Dashboard](),
	}
}

// DeriveLocal sums totals, pending amounts and per-status counts.
func DeriveLocal(records []core.Expense) LocalFigures {
	counts := make(map[core.Status]int)
	var f LocalFigures
	for _, e := range records {
		f.Total = f.Total.Add(e.Amount)
		if e.Status == core.StatusPending {
			f.Pending = f.Pending.Add(e.Amount)
		}
		counts[e.Status]++
	}
	f.Count = len(records)
	f.StatusCounts = core.NewStatusBreakdown(counts)
	return f
}

// Aggregate fetches the remote snapshot for the effective scope. A
// privileged all-records view also gets figures derived from the held
// collection; everything else is the server's own-records aggregate as is.
func (a *Aggregator) Aggregate(ctx context.Context, role core.Role, scope core.Scope) (Dashboard, error) {
	effective := core.ScopeOwn
	if role.Privileged() && scope == core.ScopeAll {
		effective = core.ScopeAll
	}

	a.mu.Lock()
	a.issued++
	seq := a.issued
	a.role, a.scope = role, effective
	a.mu.Unlock()

	snap, err := a.remote.ReadAnalytics(ctx, effective)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to fetch analytics",
			applog.FieldOperation, applog.OpAggregate, applog.FieldScope, effective, applog.FieldError, err)
		return Dashboard{}, fmt.Errorf("%w: analytics: %w", core.ErrFetch, err)
	}
	if !snap.PercentagesConsistent() {
		a.logger.WarnContext(ctx, "Category percentages do not sum to 100",
			applog.FieldScope, effective, "sum", snap.PercentageSum())
	}

	d := Dashboard{Snapshot: snap, Role: role, Scope: effective}

	// Derived under the lock: an older derivation must not overwrite a concurrent rederive.
	a.mu.Lock()
	if seq < a.applied {
		cur := *a.current
		a.mu.Unlock()
		a.logger.DebugContext(ctx, "Discarding stale analytics", applog.FieldScope, effective)
		return cur, nil
	}
	if effective == core.ScopeAll {
		local := DeriveLocal(a.records.Expenses())
		d.Local = &local
	}
	d.ComputedAt = a.now()
	a.applied = seq
	a.current = &d
	a.mu.Unlock()

	a.broker.Publish(d)
	return d, nil
}

// Recompute re-runs Aggregate with the last role and scope.
func (a *Aggregator) Recompute(ctx context.Context) (Dashboard, error) {
	a.mu.RLock()
	role, scope := a.role, a.scope
	a.mu.RUnlock()
	return a.Aggregate(ctx, role, scope)
}

// Watch re-derives the local figures whenever the record set changes,
// keeping the last remote snapshot. It returns when ctx ends or changes closes.
func (a *Aggregator) Watch(ctx context.Context, changes <-chan store.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-changes:
			if !ok {
				return
			}
			if ev.Kind == store.EventCategoriesReplaced {
				continue
			}
			a.rederive()
		}
	}
}

func (a *Aggregator) rederive() {
	a.mu.Lock()
	if a.current == nil || a.current.Local == nil {
		a.mu.Unlock()
		return
	}
	local := DeriveLocal(a.records.Expenses())
	d := *a.current
	d.Local = &local
	d.ComputedAt = a.now()
	a.current = &d
	a.mu.Unlock()

	a.broker.Publish(d)
}

// Current returns the latest dashboard, if one has been computed.
func (a *Aggregator) Current() (Dashboard, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return Dashboard{}, false
	}
	return *a.current, true
}

func (a *Aggregator) Subscribe(buffer int) (<-chan Dashboard, func()) {
	return a.broker.Subscribe(buffer)
}

func (a *Aggregator) Close() {
	a.broker.Close()
}
