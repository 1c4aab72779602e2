// Package session owns one signed-in user's store, workflow, predictor and
// dashboard, and tears them down together.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"expensedesk/internal/analytics"
	"expensedesk/internal/approval"
	"expensedesk/internal/auth"
	"expensedesk/internal/cache"
	"expensedesk/internal/core"
	applog "expensedesk/internal/log"
	"expensedesk/internal/predict"
	"expensedesk/internal/remote"
	"expensedesk/internal/store"
)

const DefaultCacheCleanup = time.Minute

type Deps struct {
	Remote    remote.Service
	Tokens    *auth.TokenStore
	Publisher approval.Publisher
	Logger    *applog.Logger

	PredictionCacheSize int
	PredictionCacheTTL  time.Duration
	CacheCleanup        time.Duration
}

type Session struct {
	user      core.User
	remote    remote.Service
	tokens    *auth.TokenStore
	store     *store.Store
	approvals *approval.Workflow
	predictor *predict.Predictor
	analytics *analytics.Aggregator
	caches    *cache.Manager
	logger    *applog.Logger

	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	watchers  sync.WaitGroup
}

// Start identifies the user, loads categories and the role's records,
// computes the first dashboard and starts watching for changes.
func Start(ctx context.Context, deps Deps) (*Session, error) {
	if deps.Remote == nil || deps.Tokens == nil {
		return nil, errors.New("session needs a remote and a token store")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	if deps.CacheCleanup <= 0 {
		deps.CacheCleanup = DefaultCacheCleanup
	}

	user, err := deps.Remote.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: current user: %w", core.ErrFetch, err)
	}

	s := &Session{
		user:   user,
		remote: deps.Remote,
		tokens: deps.Tokens,
		logger: logger.WithComponent(applog.ComponentSession),
		done:   make(chan struct{}),
	}
	s.store = store.New(deps.Remote, logger)
	s.analytics = analytics.New(deps.Remote, s.store, logger)
	s.predictor = predict.New(deps.Remote, s.store, predict.Config{
		CacheSize: deps.PredictionCacheSize,
		CacheTTL:  deps.PredictionCacheTTL,
		Logger:    logger,
	})

	opts := []approval.Option{
		approval.WithLogger(logger),
		approval.WithReconciler(approval.ReconcilerFunc(s.Reconcile)),
	}
	if deps.Publisher != nil {
		opts = append(opts, approval.WithPublisher(deps.Publisher))
	}
	s.approvals = approval.New(s.store, deps.Remote, opts...)

	scope := core.ScopeFor(user.Role)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.LoadCategories(gctx)
		return err
	})
	g.Go(func() error {
		return s.store.Load(gctx, scope)
	})
	if err := g.Wait(); err != nil {
		s.store.Close()
		s.analytics.Close()
		return nil, err
	}
	if _, err := s.analytics.Aggregate(ctx, user.Role, scope); err != nil {
		s.store.Close()
		s.analytics.Close()
		return nil, err
	}

	s.caches = cache.NewManager(logger)
	s.caches.Register(s.predictor.Cache())
	s.caches.StartCleanup(deps.CacheCleanup)

	watchCtx, stop := context.WithCancel(context.Background())
	s.stop = stop
	changes, _ := s.store.Subscribe(16)
	s.watchers.Add(2)
	go func() {
		defer s.watchers.Done()
		s.analytics.Watch(watchCtx, changes)
	}()
	go func() {
		defer s.watchers.Done()
		select {
		case <-s.tokens.Invalidated():
			s.logger.Warn("Session token rejected, ending session", applog.FieldUser, user.Username)
			go s.Close()
		case <-watchCtx.Done():
		}
	}()

	s.logger.InfoContext(ctx, "Session started",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldUser, user.Username,
		applog.FieldRole, user.Role,
		applog.FieldScope, scope)
	return s, nil
}

func (s *Session) User() core.User                  { return s.user }
func (s *Session) Store() *store.Store              { return s.store }
func (s *Session) Approvals() *approval.Workflow    { return s.approvals }
func (s *Session) Predictor() *predict.Predictor    { return s.predictor }
func (s *Session) Analytics() *analytics.Aggregator { return s.analytics }

// Load switches the session to scope. Employees may not request all records.
func (s *Session) Load(ctx context.Context, scope core.Scope) error {
	if scope == core.ScopeAll && !s.user.Role.Privileged() {
		return fmt.Errorf("%w: %s may not view %s", core.ErrForbiddenScope, s.user.Role, scope)
	}
	if err := s.store.Load(ctx, scope); err != nil {
		return err
	}
	_, err := s.analytics.Aggregate(ctx, s.user.Role, scope)
	return err
}

// Reconcile refreshes the records and refetches the analytics concurrently.
func (s *Session) Reconcile(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.store.Refresh(gctx) })
	g.Go(func() error {
		_, err := s.analytics.Recompute(gctx)
		return err
	})
	return g.Wait()
}

// Submit creates the expense and then refetches the analytics. A failed
// refetch is logged and keeps the last dashboard.
func (s *Session) Submit(ctx context.Context, d core.Draft) (core.Expense, error) {
	created, err := s.store.Submit(ctx, d)
	if err != nil {
		return core.Expense{}, err
	}
	if _, err := s.analytics.Recompute(ctx); err != nil {
		s.logger.WarnContext(ctx, "Analytics refetch after submit failed",
			applog.FieldOperation, applog.OpSubmit,
			applog.FieldExpenseID, created.ID,
			applog.FieldError, err)
	}
	return created, nil
}

// Dashboard returns the latest dashboard.
func (s *Session) Dashboard() (analytics.Dashboard, bool) {
	return s.analytics.Current()
}

func (s *Session) Insights(ctx context.Context, days int) (core.Insights, error) {
	if days <= 0 {
		days = 30
	}
	return s.remote.Summary(ctx, days)
}

func (s *Session) BudgetAdvice(ctx context.Context, monthly core.Money) (core.BudgetAdvice, error) {
	if err := monthly.Validate(); err != nil {
		return core.BudgetAdvice{}, err
	}
	return s.remote.BudgetAdvice(ctx, monthly)
}

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the watchers, purges caches and clears the token.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stop()
		s.watchers.Wait()
		s.caches.Stop()
		s.predictor.Cache().Purge()
		s.store.Close()
		s.analytics.Close()
		s.tokens.Invalidate()
		close(s.done)
		s.logger.Info("Session closed", applog.FieldOperation, applog.OpShutdown)
	})
}
