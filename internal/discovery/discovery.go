// Package discovery runs the keyword search battery against the Places API
// and returns deduplicated, not-yet-stored places for one location.
package discovery

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/starzmeet/listing-agent/internal/notify"
	"github.com/starzmeet/listing-agent/internal/resilience"
	"github.com/starzmeet/listing-agent/internal/store"
	"github.com/starzmeet/listing-agent/pkg/google"
)

// Engine issues one text search per active keyword, throttled to stay inside
// the Places quota, and aggregates results across queries.
type Engine struct {
	places   google.Client
	store    store.Store
	limiter  *rate.Limiter
	notifier notify.Notifier
	pageSize int
	retry    resilience.RetryConfig
}

// Option configures the Engine.
type Option func(*Engine)

// WithQueriesPerSecond sets the search throttle.
func WithQueriesPerSecond(qps float64) Option {
	return func(e *Engine) { e.limiter = rate.NewLimiter(rate.Limit(qps), 1) }
}

// WithPageSize sets the per-query result count.
func WithPageSize(n int) Option {
	return func(e *Engine) { e.pageSize = n }
}

// WithNotifier sets the progress/error notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRetryConfig overrides the per-query retry policy.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(e *Engine) { e.retry = rc }
}

// NewEngine creates a discovery Engine.
func NewEngine(places google.Client, st store.Store, opts ...Option) *Engine {
	e := &Engine{
		places:   places,
		store:    st,
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		notifier: notify.Nop{},
		pageSize: 20,
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Discover runs every active keyword against location and returns up to max
// new places. Places already stored for the location are dropped, and a place
// surfaced by several queries is kept once, from the first query that found
// it. A failing query is logged and skipped; Discover fails only when no
// keywords are available or the store cannot be read.
func (e *Engine) Discover(ctx context.Context, location string, max int) ([]google.Place, error) {
	kws, err := e.store.ActiveKeywords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load keywords")
	}
	if len(kws) == 0 {
		return nil, eris.New("discovery: no active search keywords")
	}

	existing, err := e.store.ExistingIDs(ctx, location)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load existing ids")
	}

	seen := map[string]struct{}{}
	var out []google.Place
	var used []int64

	for _, kw := range kws {
		query := fmt.Sprintf("%s in %s", kw.Keyword, location)
		if err := e.limiter.Wait(ctx); err != nil {
			return out, eris.Wrap(err, "discovery: throttle")
		}

		zap.L().Info("discovery: searching", zap.String("query", query))
		places, err := e.search(ctx, query)
		if err != nil {
			zap.L().Error("discovery: query failed", zap.String("query", query), zap.Error(err))
			e.notifier.OnError(fmt.Sprintf("Search failed for %s: %v", query, err))
			continue
		}
		used = append(used, kw.ID)

		for _, p := range places {
			if p.ID == "" {
				continue
			}
			if _, ok := existing[p.ID]; ok {
				continue
			}
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}

	if err := e.store.TouchKeywords(ctx, used); err != nil {
		zap.L().Warn("discovery: touch keywords", zap.Error(err))
	}

	if max > 0 && len(out) > max {
		out = out[:max]
	}
	zap.L().Info("discovery: done",
		zap.String("location", location),
		zap.Int("queries", len(kws)),
		zap.Int("new_places", len(out)),
	)
	return out, nil
}

// retryAll retries every failure; Places errors surface as opaque wrapped
// HTTP errors that defeat transient classification.
func retryAll(error) bool { return true }

func (e *Engine) search(ctx context.Context, query string) ([]google.Place, error) {
	cfg := e.retry
	cfg.ShouldRetry = retryAll
	cfg.OnRetry = resilience.RetryLogger("google", "places search")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]google.Place, error) {
		return e.places.SearchText(ctx, query, e.pageSize)
	})
}

// Details fetches the full record for one discovered place. Failures degrade
// to the zero Place so the caller can proceed with search-result data alone.
func (e *Engine) Details(ctx context.Context, placeID string) google.Place {
	var zero google.Place
	cfg := e.retry
	cfg.ShouldRetry = retryAll
	cfg.OnRetry = resilience.RetryLogger("google", "place details")
	detail, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (google.Place, error) {
		return e.places.Details(ctx, placeID)
	})
	if err != nil {
		zap.L().Error("discovery: details failed", zap.String("place_id", placeID), zap.Error(err))
		e.notifier.OnError(fmt.Sprintf("Failed to fetch details for place_id %s: %v", placeID, err))
		return zero
	}
	return detail
}
