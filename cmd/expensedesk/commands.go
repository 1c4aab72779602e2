package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"expensedesk/internal/core"
	"expensedesk/internal/predict"
	"expensedesk/internal/session"
)

type command func(ctx context.Context, s *session.Session, args []string, out io.Writer) error

var commands = map[string]command{
	"dashboard":  dashboardCmd,
	"list":       listCmd,
	"submit":     submitCmd,
	"approve":    approveCmd,
	"reject":     rejectCmd,
	"predict":    predictCmd,
	"insights":   insightsCmd,
	"budget":     budgetCmd,
	"categories": categoriesCmd,
}

func run(ctx context.Context, s *session.Session, name string, args []string, out io.Writer) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd(ctx, s, args, out)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func dashboardCmd(_ context.Context, s *session.Session, args []string, out io.Writer) error {
	if err := newFlags("dashboard").Parse(args); err != nil {
		return err
	}
	d, ok := s.Dashboard()
	if !ok {
		return errors.New("no dashboard available")
	}
	snap := d.Snapshot

	fmt.Fprintf(out, "%s view (%s)\n", d.Scope, d.Role)
	fmt.Fprintf(out, "Total:   %s over %d expenses (avg %s)\n",
		snap.TotalAmount(), snap.TotalCount(), snap.AverageAmount())
	if d.Local != nil {
		fmt.Fprintf(out, "Pending: %s of %s held locally\n", d.Local.Pending, d.Local.Total)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCATEGORY\tTOTAL\tCOUNT\tSHARE")
	for _, c := range snap.Top(5) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n", c.CategoryName, c.Total, c.Count, c.Percentage)
	}
	fmt.Fprintln(tw, "\nMONTH\tTOTAL\tCOUNT\t")
	for _, m := range snap.MonthlyTrends() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t\n", m.Month, m.Total, m.Count)
	}
	fmt.Fprintln(tw, "\nSTATUS\tCOUNT\t\t")
	statuses := snap.StatusBreakdown()
	for _, st := range core.Statuses() {
		fmt.Fprintf(tw, "%s\t%d\t\t\n", st, statuses[st])
	}
	return tw.Flush()
}

func listCmd(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	fs := newFlags("list")
	status := fs.String("status", "", "only show this status")
	scope := fs.String("scope", "", "own or all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var want core.Status
	if *status != "" {
		st, err := core.ParseStatus(*status)
		if err != nil {
			return err
		}
		want = st
	}
	if *scope != "" && core.Scope(*scope) != s.Store().Scope() {
		if !core.Scope(*scope).Valid() {
			return fmt.Errorf("%w: %q", core.ErrForbiddenScope, *scope)
		}
		if err := s.Load(ctx, core.Scope(*scope)); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tAMOUNT\tCATEGORY\tSTATUS\tOWNER")
	for _, e := range s.Store().Expenses() {
		if want != "" && e.Status != want {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date.ISO(), e.Title, e.Amount, e.CategoryName, e.Status, e.OwnerName)
	}
	return tw.Flush()
}

func submitCmd(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	fs := newFlags("submit")
	title := fs.String("title", "", "expense title")
	amount := fs.String("amount", "", "amount, e.g. 42.50")
	category := fs.String("category", "", "category name or id")
	date := fs.String("date", "", "YYYY-MM-DD, defaults to today")
	description := fs.String("description", "", "optional notes")
	usePrediction := fs.Bool("predict", false, "predict the category when none is given")
	if err := fs.Parse(args); err != nil {
		return err
	}

	money, err := core.ParseMoney(*amount)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrSubmission, err)
	}
	day := core.DateOf(time.Now())
	if *date != "" {
		if day, err = core.ParseDate(*date); err != nil {
			return fmt.Errorf("%w: %w", core.ErrSubmission, err)
		}
	}

	var cat core.Category
	switch {
	case *category != "":
		var ok bool
		if cat, ok = findCategory(s.Store().Categories(), *category); !ok {
			return fmt.Errorf("%w: unknown category %q", core.ErrSubmission, *category)
		}
	case *usePrediction:
		res, err := s.Predictor().Predict(ctx, *title, money, *description)
		if err != nil {
			return err
		}
		if res.Outcome != predict.Matched {
			return fmt.Errorf("%w: predicted category %q is not in the category list", core.ErrSubmission, res.RawName)
		}
		cat = res.Category
		fmt.Fprintf(out, "Predicted category: %s\n", cat.Name)
	}

	created, err := s.Submit(ctx, core.Draft{
		Title:       *title,
		Amount:      money,
		CategoryID:  cat.ID,
		Date:        day,
		Description: *description,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Submitted #%d %s %s (%s)\n", created.ID, created.Title, created.Amount, created.Status)
	return nil
}

func findCategory(cats []core.Category, ref string) (core.Category, bool) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, c := range cats {
			if c.ID == id {
				return c, true
			}
		}
	}
	if res := predict.Match(ref, cats); res.Outcome == predict.Matched {
		return res.Category, true
	}
	return core.Category{}, false
}

func approveCmd(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	return decide(ctx, s, "approve", args, out, s.Approvals().Approve)
}

func rejectCmd(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	return decide(ctx, s, "reject", args, out, s.Approvals().Reject)
}

func decide(ctx context.Context, s *session.Session, name string, args []string, out io.Writer, action func(context.Context, int64) error) error {
	fs := newFlags(name)
	id := fs.Int64("id", 0, "expense id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("%s: -id is required", name)
	}
	if err := action(ctx, *id); err != nil {
		return err
	}
	status := "unknown"
	if e, ok := s.Store().Expense(*id); ok {
		status = e.Status.String()
	}
	fmt.Fprintf(out, "Expense #%d is now %s\n", *id, status)
	return nil
}

func predictCmd(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	fs := newFlags("predict")
	title := fs.String("title", "", "expense title")
	amount := fs.String("amount", "", "amount, e.g. 42.50")
	description := fs.String("description", "", "optional notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	money, err := core.ParseMoney(*amount)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPredictionInput, err)
	}
	res, err := s.Predictor().Predict(ctx, *title, money, *description)
	if err != nil {
		return err
	}
	if res.Outcome == predict.Matched {
		fmt.Fprintf(out, "%s (#%d)\n", res.Category.Name, res.Category.ID)
		return nil
	}
	fmt.Fprintf(out, "no local match for %q\n", res.RawName)
	return nil
}

func insightsCmd(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	fs := newFlags("insights")
	days := fs.Int("days", 30, "look-back window in days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in, err := s.Insights(ctx, *days)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Last %d days: %d expenses, %s\n\n%s\n", in.Days, in.ExpenseCount, in.TotalAmount, strings.TrimSpace(in.Text))
	return nil
}

func budgetCmd(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	fs := newFlags("budget")
	monthly := fs.String("monthly", "", "monthly budget, e.g. 1500")
	if err := fs.Parse(args); err != nil {
		return err
	}
	money, err := core.ParseMoney(*monthly)
	if err != nil {
		return err
	}
	advice, err := s.BudgetAdvice(ctx, money)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Budget %s, spent %s, remaining %s\n\n%s\n",
		advice.MonthlyBudget, advice.TotalSpent, advice.Remaining, strings.TrimSpace(advice.Recommendations))
	return nil
}

func categoriesCmd(_ context.Context, s *session.Session, args []string, out io.Writer) error {
	if err := newFlags("categories").Parse(args); err != nil {
		return err
	}
	for _, c := range s.Store().Categories() {
		fmt.Fprintf(out, "%d\t%s\n", c.ID, c.Name)
	}
	return nil
}
