package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensedesk/internal/core"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote"
	"expensedesk/internal/remote/local"

	_ "modernc.org/sqlite"
)

// timestampLayout sorts lexically in chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository is an offline authoritative store. It answers every
// remote operation for one user against a local SQLite database.
type SQLiteRepository struct {
	db        *sql.DB
	user      core.User
	predictor *local.KeywordPredictor
	logger    *applog.Logger
	now       func() time.Time
}

var _ remote.Service = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) and migrates the database,
// then registers user, whose id is assigned by the database.
func NewSQLiteRepository(ctx context.Context, dbPath string, user core.User, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if !user.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", user.Role)
	}
	if strings.TrimSpace(user.Username) == "" {
		return nil, errors.New("username is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:        db,
		predictor: local.NewKeywordPredictor(),
		logger:    logger.WithComponent(applog.ComponentStorage),
		now:       time.Now,
	}
	if repo.user, err = repo.upsertUser(ctx, user); err != nil {
		db.Close()
		return nil, err
	}
	repo.logger.Info("SQLite repository ready", "path", dbPath, applog.FieldUser, repo.user.Username, applog.FieldRole, repo.user.Role)
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithClock replaces the time source; used by tests.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

// DB exposes the handle for maintenance commands and tests.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) upsertUser(ctx context.Context, u core.User) (core.User, error) {
	const q = `
INSERT INTO users (username, email, full_name, role) VALUES (?, ?, ?, ?)
ON CONFLICT (username) DO UPDATE SET email = excluded.email, full_name = excluded.full_name, role = excluded.role`
	if _, err := r.db.ExecContext(ctx, q, u.Username, u.Email, u.FullName, string(u.Role)); err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, u.Username).Scan(&u.ID); err != nil {
		return core.User{}, fmt.Errorf("read user id: %w", err)
	}
	return u, nil
}

// AddUser registers another user, for seeding multi-user data.
func (r *SQLiteRepository) AddUser(ctx context.Context, u core.User) (core.User, error) {
	return r.upsertUser(ctx, u)
}

func (r *SQLiteRepository) CurrentUser(ctx context.Context) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	return r.user, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, d core.Draft) (core.Expense, error) {
	return r.insertExpense(ctx, r.user.ID, d)
}

// CreateExpenseFor inserts a pending expense owned by userID.
func (r *SQLiteRepository) CreateExpenseFor(ctx context.Context, userID int64, d core.Draft) (core.Expense, error) {
	return r.insertExpense(ctx, userID, d)
}

func (r *SQLiteRepository) insertExpense(ctx context.Context, userID int64, d core.Draft) (core.Expense, error) {
	if err := d.Validate(); err != nil {
		return core.Expense{}, err
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, d.CategoryID).Scan(&exists); err != nil {
		return core.Expense{}, fmt.Errorf("check category: %w", err)
	}
	if exists == 0 {
		return core.Expense{}, fmt.Errorf("%w: category %d", core.ErrMissingCategory, d.CategoryID)
	}

	const q = `
INSERT INTO expenses (title, amount_cents, description, expense_date, category_id, status, user_id, created_at)
VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		strings.TrimSpace(d.Title), d.Amount.Cents, d.Description, d.Date.ISO(), d.CategoryID, userID,
		r.now().UTC().Format(timestampLayout))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("read expense id: %w", err)
	}

	e, err := r.getExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, e.ID,
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategory, e.CategoryName)
	return e, nil
}

const selectExpense = `
SELECT e.id, e.title, e.amount_cents, e.description, e.expense_date, e.category_id, c.name,
       e.status, e.user_id, u.full_name, e.created_at
FROM expenses e
JOIN categories c ON c.id = e.category_id
JOIN users u ON u.id = e.user_id`

func (r *SQLiteRepository) getExpense(ctx context.Context, id int64) (core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpense+` WHERE e.id = ?`, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	out, err := scanExpenses(rows)
	if err != nil {
		return core.Expense{}, err
	}
	if len(out) == 0 {
		return core.Expense{}, fmt.Errorf("%w: %d", core.ErrNotFound, id)
	}
	return out[0], nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, scope core.Scope, filter core.ListFilter) ([]core.Expense, error) {
	where, args, err := r.scopeClause(scope)
	if err != nil {
		return nil, err
	}
	if filter.Status != "" {
		where = append(where, "e.status = ?")
		args = append(args, string(filter.Status))
	}

	q := selectExpense
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY e.expense_date DESC, e.id DESC LIMIT ? OFFSET ?"
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return scanExpenses(rows)
}

// SetStatus moves a pending expense to status. Only managers may do so.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id int64, status core.Status) error {
	if !r.user.Role.Privileged() {
		return fmt.Errorf("%w: only managers change status", core.ErrForbiddenScope)
	}
	if !status.Terminal() {
		return fmt.Errorf("%w: %s", core.ErrInvalidTransition, status)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM expenses WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", core.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if !core.Status(current).CanTransition(status) {
		return fmt.Errorf("%w: expense %d is %s", core.ErrInvalidTransition, id, current)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE expenses SET status = ?, updated_at = ? WHERE id = ? AND status = 'pending'`,
		string(status), r.now().UTC().Format(timestampLayout), id); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense status updated", applog.NewFields().WithExpense(id, status.String()).ToSlice()...)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddCategory inserts name if it is not present and returns its row.
func (r *SQLiteRepository) AddCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, errors.New("category name is required")
	}
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	c := core.Category{Name: name}
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&c.ID); err != nil {
		return core.Category{}, fmt.Errorf("read category id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) PredictCategory(ctx context.Context, title string, amount core.Money, description string) (string, error) {
	return r.predictor.PredictCategory(ctx, title, amount, description)
}

func (r *SQLiteRepository) Summary(ctx context.Context, days int) (core.Insights, error) {
	own, err := r.ListExpenses(ctx, core.ScopeOwn, core.ListFilter{})
	if err != nil {
		return core.Insights{}, err
	}
	return local.Summarize(local.Since(own, days, r.now()), r.user.FullName, days), nil
}

func (r *SQLiteRepository) BudgetAdvice(ctx context.Context, monthly core.Money) (core.BudgetAdvice, error) {
	own, err := r.ListExpenses(ctx, core.ScopeOwn, core.ListFilter{})
	if err != nil {
		return core.BudgetAdvice{}, err
	}
	return local.Advise(local.InMonth(own, r.now()), monthly), nil
}

func (r *SQLiteRepository) scopeClause(scope core.Scope) ([]string, []any, error) {
	switch scope {
	case core.ScopeAll:
		if !r.user.Role.Privileged() {
			return nil, nil, fmt.Errorf("%w: %s", core.ErrForbiddenScope, r.user.Role)
		}
		return nil, nil, nil
	case core.ScopeOwn:
		return []string{"e.user_id = ?"}, []any{r.user.ID}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown scope %q", core.ErrForbiddenScope, scope)
	}
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		var (
			e                 core.Expense
			date, created, st string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount.Cents, &e.Description, &date, &e.CategoryID,
			&e.CategoryName, &st, &e.OwnerID, &e.OwnerName, &created); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("expense %d: bad date %q", e.ID, date)
		}
		e.Date = d
		e.Status = core.Status(st)
		e.CreatedAt, _ = time.Parse(timestampLayout, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
