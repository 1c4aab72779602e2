package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"

	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"

	ScopeOwn Scope = "own"
	ScopeAll Scope = "all"
)

const (
	MinTitleLength       = 3
	MaxDescriptionLength = 500
)

type (
	// Status is the approval state of an expense.
	Status string

	// Role gates which scope a caller may request.
	Role string

	// Scope selects the subset of records a query targets.
	Scope string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID           int64
		Title        string
		Amount       Money
		CategoryID   int64
		CategoryName string
		Date         Date
		Description  string
		Status       Status
		OwnerID      int64
		OwnerName    string
		CreatedAt    time.Time
	}

	// Draft is the input of a submission, before the server assigns an id.
	Draft struct {
		Title       string
		Amount      Money
		CategoryID  int64
		Date        Date
		Description string
	}

	Category struct {
		ID   int64
		Name string
	}

	User struct {
		ID       int64
		Email    string
		Username string
		FullName string
		Role     Role
	}

	// ListFilter narrows a list request. Zero values mean "no filter".
	ListFilter struct {
		Status Status
		Skip   int
		Limit  int
	}
)

var (
	ErrTitleTooShort      = errors.New("title must be at least 3 characters")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingCategory    = errors.New("category is required")
	ErrMissingDate        = errors.New("date is required")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrInvalidStatus      = errors.New("invalid status")
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether the move from s to next is permitted.
// Only pending records move, and only to approved or rejected.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.Terminal()
}

func (s Status) String() string {
	return string(s)
}

// Statuses returns every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusRejected}
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Privileged reports whether the role may see every employee's records.
func (r Role) Privileged() bool {
	return r == RoleManager
}

func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleManager
}

func (sc Scope) Valid() bool {
	return sc == ScopeOwn || sc == ScopeAll
}

// ScopeFor returns the widest scope the role may request.
func ScopeFor(r Role) Scope {
	if r.Privileged() {
		return ScopeAll
	}
	return ScopeOwn
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD and the timestamp layouts servers commonly emit.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		"2006-01-02",
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrMissingDate
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthLabel returns the date's month as YYYY-MM.
func (d Date) MonthLabel() string {
	return d.Format("2006-01")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Draft) Validate() error {
	if len([]rune(strings.TrimSpace(d.Title))) < MinTitleLength {
		return ErrTitleTooShort
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if d.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if len(d.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// WithStatus returns a copy of e carrying the given status. No other field changes.
func (e Expense) WithStatus(s Status) Expense {
	e.Status = s
	return e
}

// CloneExpenses returns a copy of the slice so callers cannot alias internal state.
func CloneExpenses(in []Expense) []Expense {
	if in == nil {
		return nil
	}
	out := make([]Expense, len(in))
	copy(out, in)
	return out
}

func CloneCategories(in []Category) []Category {
	if in == nil {
		return nil
	}
	out := make([]Category, len(in))
	copy(out, in)
	return out
}
