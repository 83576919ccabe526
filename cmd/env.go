package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/starzmeet/listing-agent/internal/cms"
	"github.com/starzmeet/listing-agent/internal/discovery"
	"github.com/starzmeet/listing-agent/internal/enrich"
	"github.com/starzmeet/listing-agent/internal/geo"
	"github.com/starzmeet/listing-agent/internal/keywords"
	"github.com/starzmeet/listing-agent/internal/notify"
	"github.com/starzmeet/listing-agent/internal/pipeline"
	"github.com/starzmeet/listing-agent/internal/store"
	anthropicpkg "github.com/starzmeet/listing-agent/pkg/anthropic"
	"github.com/starzmeet/listing-agent/pkg/google"
	"github.com/starzmeet/listing-agent/pkg/listingpro"
)

// initStore opens the configured database backend, runs migrations, and
// seeds the default search keywords on first use.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "listing_agent.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	if err := st.SeedKeywords(ctx, keywords.Defaults()); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "seed keywords")
	}

	return st, nil
}

// initRunner builds the full scrape pipeline on top of an opened store.
func initRunner(st store.Store, notifier notify.Notifier) (*pipeline.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	llm := anthropicpkg.NewClient(cfg.Anthropic.Key)
	places := google.NewClient(cfg.Google.APIKey)

	engine := discovery.NewEngine(places, st,
		discovery.WithQueriesPerSecond(cfg.Discovery.QueriesPerSecond),
		discovery.WithPageSize(cfg.Google.PageSize),
		discovery.WithNotifier(notifier),
	)

	enricher := enrich.NewEnricher(llm, cfg.Anthropic.ExtractModel,
		enrich.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Enrich.FetchTimeoutSecs) * time.Second}),
		enrich.WithMaxPageText(cfg.Enrich.MaxPageText),
		enrich.WithNotifier(notifier),
	)

	classifier := geo.NewClassifier(llm, cfg.Anthropic.GeoModel)

	return pipeline.NewRunner(engine, enricher, classifier, st, cfg.Google.APIKey,
		pipeline.WithNotifier(notifier),
	), nil
}

// initSyncer builds a CMS syncer on top of an opened store.
func initSyncer(st store.Store, notifier notify.Notifier) (*cms.Syncer, error) {
	if cfg.CMS.BaseURL == "" {
		return nil, eris.New("cms.base_url is required (LISTING_CMS_BASE_URL)")
	}
	if cfg.CMS.APIKey == "" {
		return nil, eris.New("cms.api_key is required (LISTING_CMS_API_KEY)")
	}

	client := listingpro.NewClient(cfg.CMS.BaseURL, cfg.CMS.APIKey)
	return cms.NewSyncer(client, st,
		cms.WithCallsPerSecond(cfg.Sync.CallsPerSecond),
		cms.WithNotifier(notifier),
	), nil
}
