package core

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-03-09", "2024-03-09T14:30:00", "2024-03-09T14:30:00.123456", "2024-03-09T14:30:00Z"} {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if d.ISO() != "2024-03-09" {
			t.Fatalf("%q: got %s", in, d.ISO())
		}
	}
	if _, err := ParseDate("yesterday"); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
}

func TestDraftValidate(t *testing.T) {
	good := Draft{
		Title:      "Taxi",
		Amount:     Money{Cents: 4250},
		CategoryID: 1,
		Date:       NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{"short title", func(d *Draft) { d.Title = "ab" }, ErrTitleTooShort},
		{"blank padded title", func(d *Draft) { d.Title = "  ab  " }, ErrTitleTooShort},
		{"zero amount", func(d *Draft) { d.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(d *Draft) { d.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"no category", func(d *Draft) { d.CategoryID = 0 }, ErrMissingCategory},
		{"no date", func(d *Draft) { d.Date = Date{} }, ErrMissingDate},
		{"long description", func(d *Draft) { d.Description = strings.Repeat("x", MaxDescriptionLength+1) }, ErrDescriptionTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := good
			tc.mutate(&d)
			if err := d.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusApproved}: true,
		{StatusPending, StatusRejected}: true,
	}
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			got := from.CanTransition(to)
			if got != allowed[[2]Status{from, to}] {
				t.Errorf("%s -> %s: got %v", from, to, got)
			}
		}
	}
}

// Terminal states never move, whatever sequence of requests arrives.
func TestStatusTransitionsRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := Statuses()
	for run := 0; run < 500; run++ {
		cur := StatusPending
		for step := 0; step < 10; step++ {
			next := statuses[rng.Intn(len(statuses))]
			if !cur.CanTransition(next) {
				continue
			}
			if cur != StatusPending {
				t.Fatalf("run %d: transition out of %s allowed", run, cur)
			}
			cur = next
		}
		if cur != StatusPending && !cur.Terminal() {
			t.Fatalf("run %d: ended in non-terminal %s", run, cur)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus(" Approved "); err != nil || s != StatusApproved {
		t.Fatalf("got %q, %v", s, err)
	}
	if _, err := ParseStatus("archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestScopeFor(t *testing.T) {
	if ScopeFor(RoleManager) != ScopeAll {
		t.Fatal("manager should get the all scope")
	}
	if ScopeFor(RoleEmployee) != ScopeOwn {
		t.Fatal("employee should get the own scope")
	}
}

func TestWithStatusChangesOnlyStatus(t *testing.T) {
	e := Expense{ID: 7, Title: "Taxi", Amount: Money{Cents: 4250}, Status: StatusPending, OwnerName: "Ada"}
	got := e.WithStatus(StatusApproved)
	e.Status = StatusApproved
	if got != e {
		t.Fatalf("unexpected change: %+v", got)
	}
}
