// Package pipeline orchestrates a full scrape run for one location:
// discovery, detail fetch, website enrichment, normalization, and storage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/internal/normalize"
	"github.com/starzmeet/listing-agent/internal/notify"
	"github.com/starzmeet/listing-agent/internal/store"
	"github.com/starzmeet/listing-agent/pkg/google"
)

// Discoverer finds new places and fetches their details.
type Discoverer interface {
	Discover(ctx context.Context, location string, max int) ([]google.Place, error)
	Details(ctx context.Context, placeID string) google.Place
}

// Enricher extracts listing metadata from a business website.
type Enricher interface {
	Enrich(ctx context.Context, websiteURL string) model.EnrichmentResult
}

// Classifier maps an address to the hierarchical location path.
type Classifier interface {
	Classify(ctx context.Context, address string) string
}

// RunResult summarizes one scrape run. Records holds the run's new records
// followed by the location's historical ones, each marked with its status.
type RunResult struct {
	Location string                `json:"location"`
	NewCount int                   `json:"new_count"`
	Total    int                   `json:"total"`
	Records  []model.ListingRecord `json:"records"`
}

// Runner wires the pipeline stages together.
type Runner struct {
	discoverer Discoverer
	enricher   Enricher
	classifier Classifier
	store      store.Store
	notifier   notify.Notifier
	apiKey     string
	pause      time.Duration
}

// Option configures the Runner.
type Option func(*Runner)

// WithNotifier sets the progress notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithPause sets the delay between places; zero disables it.
func WithPause(d time.Duration) Option {
	return func(r *Runner) { r.pause = d }
}

// NewRunner creates a pipeline Runner. apiKey is the Places key used to sign
// photo media URLs.
func NewRunner(d Discoverer, e Enricher, c Classifier, st store.Store, apiKey string, opts ...Option) *Runner {
	r := &Runner{
		discoverer: d,
		enricher:   e,
		classifier: c,
		store:      st,
		notifier:   notify.Nop{},
		apiKey:     apiKey,
		pause:      500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a full scrape for location, processing at most max new places
// (zero means no cap). Every new record is persisted as soon as it is built;
// a failure on one place never aborts the rest of the run.
func (r *Runner) Run(ctx context.Context, location string, max int) (*RunResult, error) {
	places, err := r.discoverer.Discover(ctx, location, max)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: discover %s", location)
	}

	total := len(places)
	zap.L().Info("pipeline: processing new places",
		zap.String("location", location), zap.Int("count", total))
	if total == 0 {
		r.notifier.OnProgress(notify.Progress{
			Message: fmt.Sprintf("No new places found for %s", location),
		})
	}

	result := &RunResult{Location: location}
	newIDs := map[string]struct{}{}

	for idx, place := range places {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "pipeline: canceled")
		}
		zap.L().Info("pipeline: processing place",
			zap.Int("index", idx+1), zap.Int("total", total),
			zap.String("name", place.DisplayName.Text))

		rec := r.processPlace(ctx, place, location)
		if err := r.store.Upsert(ctx, rec, location); err != nil {
			zap.L().Error("pipeline: save failed", zap.String("place_id", rec.PlaceID), zap.Error(err))
			r.notifier.OnError(fmt.Sprintf("Failed to save %s: %v", rec.Title, err))
			continue
		}

		newIDs[rec.PlaceID] = struct{}{}
		result.Records = append(result.Records, rec)
		result.NewCount++

		r.notifier.OnProgress(notify.Progress{
			Completed: idx + 1,
			Total:     total,
			Record:    &rec,
		})
		if r.pause > 0 && idx < total-1 {
			select {
			case <-ctx.Done():
			case <-time.After(r.pause):
			}
		}
	}

	// Append the location's historical records, marked Old.
	existing, err := r.store.ExistingRecords(ctx, location)
	if err != nil {
		return result, eris.Wrapf(err, "pipeline: load existing for %s", location)
	}
	for _, rec := range existing {
		if _, ok := newIDs[rec.PlaceID]; ok {
			continue
		}
		rec.Status = model.StatusOld
		result.Records = append(result.Records, rec)
	}
	result.Total = len(result.Records)

	zap.L().Info("pipeline: run complete",
		zap.String("location", location),
		zap.Int("new", result.NewCount),
		zap.Int("total", result.Total))
	return result, nil
}

// processPlace turns one search hit into a full record. Detail fetch,
// enrichment, and classification all degrade instead of failing.
func (r *Runner) processPlace(ctx context.Context, place google.Place, location string) model.ListingRecord {
	detail := r.discoverer.Details(ctx, place.ID)
	merged := google.Merge(place, detail)

	enrichment := r.enricher.Enrich(ctx, merged.WebsiteURI)
	locationPath := r.classifier.Classify(ctx, merged.FormattedAddress)

	return normalize.BuildRecord(merged, enrichment, locationPath, location, r.apiKey)
}

// RetryPlace re-runs enrichment and normalization for a single stored place,
// typically after its website was fixed. The refreshed record replaces the
// stored one.
func (r *Runner) RetryPlace(ctx context.Context, placeID, website, address string) (*model.ListingRecord, error) {
	zap.L().Info("pipeline: retrying place",
		zap.String("place_id", placeID), zap.String("website", website))

	stored, err := r.store.GetRecord(ctx, placeID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: retry %s", placeID)
	}

	detail := r.discoverer.Details(ctx, placeID)
	if detail.ID == "" {
		detail.ID = placeID
	}
	if website != "" {
		detail.WebsiteURI = website
	}
	if address != "" {
		detail.FormattedAddress = address
	}

	enrichment := r.enricher.Enrich(ctx, detail.WebsiteURI)
	locationPath := r.classifier.Classify(ctx, detail.FormattedAddress)
	rec := normalize.BuildRecord(detail, enrichment, locationPath, stored.Location, r.apiKey)

	if err := r.store.Upsert(ctx, rec, stored.Location); err != nil {
		return nil, eris.Wrapf(err, "pipeline: save retried %s", placeID)
	}

	r.notifier.OnRetryProgress(placeID, rec)
	return &rec, nil
}
