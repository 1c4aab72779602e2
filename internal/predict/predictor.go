// Package predict maps the remote service's free-text category guess onto
// the session's category list.
package predict

import (
	"context"
	"fmt"
	"strings"
	"time"

	"expensedesk/internal/cache"
	"expensedesk/internal/core"
	applog "expensedesk/internal/log"
	"expensedesk/internal/remote"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 10 * time.Minute
)

type Outcome int

const (
	NoMatch Outcome = iota
	Matched
)

func (o Outcome) String() string {
	if o == Matched {
		return "matched"
	}
	return "no_match"
}

// Result of one prediction. RawName is always the server's answer.
type Result struct {
	Outcome  Outcome
	Category core.Category
	RawName  string
}

// Categories supplies the current local category list.
type Categories interface {
	Categories() []core.Category
}

type Predictor struct {
	remote     remote.CategoryPredictor
	categories Categories
	cache      *cache.LRUCache[string]
	logger     *applog.Logger
}

type Config struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *applog.Logger
}

func New(r remote.CategoryPredictor, cats Categories, cfg Config) *Predictor {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	return &Predictor{
		remote:     r,
		categories: cats,
		cache:      cache.NewLRUCache[string](cfg.CacheSize, cfg.CacheTTL),
		logger:     logger.WithComponent(applog.ComponentPredictor),
	}
}

// Cache exposes the raw-name cache so a cache.Manager can sweep it.
func (p *Predictor) Cache() *cache.LRUCache[string] {
	return p.cache
}

// Predict asks the remote for a category and matches it case-insensitively
// against the local list. An unmatched name is not an error.
func (p *Predictor) Predict(ctx context.Context, title string, amount core.Money, description string) (Result, error) {
	if strings.TrimSpace(title) == "" || amount.Cents <= 0 {
		return Result{}, core.ErrPredictionInput
	}

	key := cacheKey(title, amount, description)
	raw, hit := p.cache.Get(key)
	if !hit {
		var err error
		raw, err = p.remote.PredictCategory(ctx, strings.TrimSpace(title), amount, strings.TrimSpace(description))
		if err != nil {
			p.logger.WarnContext(ctx, "Category prediction failed",
				applog.FieldOperation, applog.OpPredict, applog.FieldError, err)
			return Result{}, fmt.Errorf("%w: %w", core.ErrPrediction, err)
		}
		p.cache.Set(key, raw)
	}

	res := Match(raw, p.categories.Categories())
	p.logger.DebugContext(ctx, "Category predicted",
		applog.FieldOperation, applog.OpPredict,
		applog.FieldPrediction, raw,
		"outcome", res.Outcome.String(),
		"cached", hit)
	return res, nil
}

// Match returns the first category whose normalized name equals raw's.
func Match(raw string, categories []core.Category) Result {
	want := normalize(raw)
	if want != "" {
		for _, c := range categories {
			if normalize(c.Name) == want {
				return Result{Outcome: Matched, Category: c, RawName: raw}
			}
		}
	}
	return Result{Outcome: NoMatch, RawName: raw}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cacheKey(title string, amount core.Money, description string) string {
	return normalize(title) + "|" + amount.String() + "|" + normalize(description)
}
