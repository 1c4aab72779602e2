// Package approval moves pending expenses to approved or rejected, one
// action per record at a time.
package approval

import (
	"context"
	"fmt"
	"sync"

	"expensedesk/internal/core"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote"
)

// Records is the expense collection the workflow reads and commits into.
type Records interface {
	Expense(id int64) (core.Expense, bool)
	ApplyStatus(id int64, status core.Status) bool
}

// Reconciler brings local state back in line with the server after a commit.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// ReconcilerFunc adapts a function to Reconciler.
type ReconcilerFunc func(ctx context.Context) error

func (f ReconcilerFunc) Reconcile(ctx context.Context) error { return f(ctx) }

// Publisher announces committed status changes to other processes.
type Publisher interface {
	PublishExpenseStatus(ctx context.Context, e core.Expense) error
}

type Option func(*Workflow)

func WithReconciler(r Reconciler) Option {
	return func(w *Workflow) { w.reconciler = r }
}

func WithPublisher(p Publisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

func WithLogger(l *applog.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l.WithComponent(applog.ComponentApproval)
		}
	}
}

type Workflow struct {
	records    Records
	remote     remote.StatusSetter
	locks      *LockTable
	reconciler Reconciler
	publisher  Publisher
	logger     *applog.Logger

	mu     sync.Mutex
	staged map[int64]core.Status
}

func New(records Records, setter remote.StatusSetter, opts ...Option) *Workflow {
	w := &Workflow{
		records: records,
		remote:  setter,
		locks:   NewLockTable(),
		logger:  applog.Discard().WithComponent(applog.ComponentApproval),
		staged:  make(map[int64]core.Status),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) Approve(ctx context.Context, id int64) error {
	return w.transition(ctx, id, core.StatusApproved, applog.OpApprove)
}

func (w *Workflow) Reject(ctx context.Context, id int64) error {
	return w.transition(ctx, id, core.StatusRejected, applog.OpReject)
}

// InFlight reports whether an action on id is currently running.
func (w *Workflow) InFlight(id int64) bool {
	return w.locks.Held(id)
}

// Staged returns the status awaiting remote confirmation for id, if any.
func (w *Workflow) Staged(id int64) (core.Status, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.staged[id]
	return s, ok
}

func (w *Workflow) transition(ctx context.Context, id int64, target core.Status, op string) error {
	if _, ok := w.records.Expense(id); !ok {
		return fmt.Errorf("%w: %d", core.ErrNotFound, id)
	}

	guard, ok := w.locks.Acquire(id)
	if !ok {
		w.logger.DebugContext(ctx, "Action already in progress",
			applog.FieldOperation, op, applog.FieldExpenseID, id)
		return fmt.Errorf("%w: expense %d", core.ErrActionInProgress, id)
	}
	defer guard.Release()

	current, ok := w.records.Expense(id)
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrNotFound, id)
	}
	if !current.Status.CanTransition(target) {
		return fmt.Errorf("%w: expense %d is %s", core.ErrInvalidTransition, id, current.Status)
	}

	w.stage(id, target)
	defer w.unstage(id)

	if err := w.remote.SetStatus(ctx, id, target); err != nil {
		w.logger.WarnContext(ctx, "Status change rejected by server",
			applog.NewFields().
				WithOperation(op).
				WithExpense(id, current.Status.String()).
				WithError(err).
				ToSlice()...)
		return fmt.Errorf("%w: expense %d: %w", core.ErrActionFailed, id, err)
	}

	status, ok := w.commit(id)
	if !ok {
		return fmt.Errorf("%w: expense %d has no staged status", core.ErrActionFailed, id)
	}
	w.records.ApplyStatus(id, status)
	committed := current.WithStatus(status)
	w.logger.InfoContext(ctx, "Expense status changed",
		applog.FieldOperation, op,
		applog.FieldExpenseID, id,
		applog.FieldStatus, status)

	if w.publisher != nil {
		if err := w.publisher.PublishExpenseStatus(ctx, committed); err != nil {
			w.logger.WarnContext(ctx, "Failed to publish status change",
				applog.FieldOperation, applog.OpPublish, applog.FieldExpenseID, id, applog.FieldError, err)
		}
	}
	if w.reconciler != nil {
		if err := w.reconciler.Reconcile(ctx); err != nil {
			w.logger.WarnContext(ctx, "Reconciliation after status change failed",
				applog.FieldOperation, applog.OpRefresh, applog.FieldExpenseID, id, applog.FieldError, err)
		}
	}
	return nil
}

func (w *Workflow) stage(id int64, s core.Status) {
	w.mu.Lock()
	w.staged[id] = s
	w.mu.Unlock()
}

// commit removes and returns the staged status for id.
func (w *Workflow) commit(id int64) (core.Status, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.staged[id]
	delete(w.staged, id)
	return s, ok
}

func (w *Workflow) unstage(id int64) {
	w.mu.Lock()
	delete(w.staged, id)
	w.mu.Unlock()
}
