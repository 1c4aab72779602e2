// Package httpapi talks to the expense service's JSON API over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"expensedesk/internal/auth"
	"expensedesk/internal/core"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote"
)

const DefaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Detail     string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Detail)
}

// Unwrap maps well-known statuses onto the core error taxonomy.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return core.ErrUnauthorized
	case http.StatusForbidden:
		return core.ErrForbiddenScope
	case http.StatusNotFound:
		return core.ErrNotFound
	default:
		return nil
	}
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Tokens    *auth.TokenStore
	Logger    *applog.Logger
	Transport http.RoundTripper
}

// Client implements remote.Service against the HTTP API.
type Client struct {
	base   string
	http   *http.Client
	tokens *auth.TokenStore
	logger *applog.Logger
}

var _ remote.Service = (*Client)(nil)

func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if opts.Tokens == nil {
		return nil, errors.New("token store is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentRemote)

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	var rt http.RoundTripper = &oauth2.Transport{Source: opts.Tokens, Base: base}
	rt = applog.Transport(logger, rt)
	rt = applog.RequestIDTransport(uuid.NewString, rt)

	return &Client{
		base:   strings.TrimRight(u.String(), "/"),
		http:   &http.Client{Timeout: opts.Timeout, Transport: rt},
		tokens: opts.Tokens,
		logger: logger,
	}, nil
}

func (c *Client) CreateExpense(ctx context.Context, d core.Draft) (core.Expense, error) {
	var out expenseDTO
	if err := c.do(ctx, http.MethodPost, "/expenses/", nil, newCreateExpenseDTO(d), &out); err != nil {
		return core.Expense{}, err
	}
	return out.toCore()
}

// ListExpenses maps scope to the service's endpoints. The service only
// filters by status across all records, so an own-scope status filter is
// applied client-side.
func (c *Client) ListExpenses(ctx context.Context, scope core.Scope, filter core.ListFilter) ([]core.Expense, error) {
	q := url.Values{}
	if filter.Skip > 0 {
		q.Set("skip", strconv.Itoa(filter.Skip))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/expenses/user"
	clientFilter := filter.Status
	if scope == core.ScopeAll {
		path = "/expenses/"
		if filter.Status != "" {
			path = "/expenses/status/" + url.PathEscape(filter.Status.String())
			clientFilter = ""
		}
	}

	var dtos []expenseDTO
	if err := c.do(ctx, http.MethodGet, path, q, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(dtos))
	for _, d := range dtos {
		e, err := d.toCore()
		if err != nil {
			return nil, fmt.Errorf("decode expense %d: %w", d.ID, err)
		}
		if clientFilter != "" && e.Status != clientFilter {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) SetStatus(ctx context.Context, id int64, status core.Status) error {
	var action string
	switch status {
	case core.StatusApproved:
		action = "approve"
	case core.StatusRejected:
		action = "reject"
	default:
		return fmt.Errorf("%w: %s", core.ErrInvalidTransition, status)
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/expenses/%d/%s", id, action), nil, nil, nil)
}

func (c *Client) ReadAnalytics(ctx context.Context, scope core.Scope) (core.AnalyticsSnapshot, error) {
	path := "/analytics/monthly"
	if scope == core.ScopeAll {
		path = "/analytics/all"
	}
	var out analyticsDTO
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return core.AnalyticsSnapshot{}, err
	}
	return out.toCore(), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var dtos []categoryDTO
	if err := c.do(ctx, http.MethodGet, "/categories/", nil, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, core.Category{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

func (c *Client) PredictCategory(ctx context.Context, title string, amount core.Money, description string) (string, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("amount", amount.String())
	if description != "" {
		q.Set("description", description)
	}
	var out predictionDTO
	if err := c.do(ctx, http.MethodPost, "/ai/predict-category", q, nil, &out); err != nil {
		return "", err
	}
	return out.PredictedCategory, nil
}

func (c *Client) CurrentUser(ctx context.Context) (core.User, error) {
	var out userDTO
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return core.User{}, err
	}
	return out.toCore(), nil
}

func (c *Client) Summary(ctx context.Context, days int) (core.Insights, error) {
	var out summaryDTO
	if err := c.do(ctx, http.MethodPost, "/ai/summary", nil, summaryRequestDTO{Days: days}, &out); err != nil {
		return core.Insights{}, err
	}
	return core.Insights{
		Text:         out.Insights,
		Days:         days,
		ExpenseCount: out.TotalExpenses,
		TotalAmount:  core.MoneyFromFloat(out.TotalAmount),
	}, nil
}

func (c *Client) BudgetAdvice(ctx context.Context, monthly core.Money) (core.BudgetAdvice, error) {
	q := url.Values{}
	q.Set("monthly_budget", monthly.String())
	var out budgetDTO
	if err := c.do(ctx, http.MethodPost, "/ai/budget-recommendations", q, nil, &out); err != nil {
		return core.BudgetAdvice{}, err
	}
	return core.BudgetAdvice{
		Recommendations: out.Recommendations,
		MonthlyBudget:   core.MoneyFromFloat(out.MonthlyBudget),
		TotalSpent:      core.MoneyFromFloat(out.TotalSpent),
		Remaining:       core.MoneyFromFloat(out.RemainingBudget),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	endpoint := c.base + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
		if resp.Request != nil {
			apiErr.RequestID = resp.Request.Header.Get(applog.HeaderRequestID)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// readDetail extracts the service's {"detail": ...} message, which is a
// string for handled errors and a list for validation failures.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &envelope) != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var s string
	if json.Unmarshal(envelope.Detail, &s) == nil {
		return s
	}
	return string(envelope.Detail)
}
