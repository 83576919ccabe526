package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/starzmeet/listing-agent/internal/cms"
	"github.com/starzmeet/listing-agent/internal/notify"
	"github.com/starzmeet/listing-agent/internal/pipeline"
	"github.com/starzmeet/listing-agent/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP front-end",
	Long: `Start the HTTP front-end: scrape triggers, record queries, keyword
management, CMS sync, CSV download, and a server-sent-events stream of
pipeline progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		broadcaster := notify.NewBroadcaster()
		notifier := notify.Multi{notify.LogNotifier{}, broadcaster}

		runner, err := initRunner(st, notifier)
		if err != nil {
			return err
		}

		// CMS sync is optional for serving; the sync routes report the
		// missing configuration instead of failing startup.
		var syncer *cms.Syncer
		if cfg.CMS.BaseURL != "" && cfg.CMS.APIKey != "" {
			syncer, err = initSyncer(st, notifier)
			if err != nil {
				return err
			}
		} else {
			zap.L().Warn("cms not configured, sync routes disabled")
		}

		srv := &server{
			st:          st,
			runner:      runner,
			syncer:      syncer,
			broadcaster: broadcaster,
			maxResults:  cfg.Discovery.MaxResults,
			syncMode:    cfg.Sync.Mode,
			useBulk:     cfg.Sync.UseBulkEndpoint,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// server holds the handler dependencies for the HTTP front-end.
type server struct {
	st          store.Store
	runner      *pipeline.Runner
	syncer      *cms.Syncer
	broadcaster *notify.Broadcaster
	maxResults  int
	syncMode    string
	useBulk     bool
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/events", s.handleEvents)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/retry_place", s.handleRetryPlace)
		r.Get("/download", s.handleDownload)
		r.Post("/clear_data", s.handleClearData)

		r.Get("/keywords", s.handleListKeywords)
		r.Post("/keywords", s.handleAddKeyword)
		r.Put("/keywords/{id}", s.handleUpdateKeyword)
		r.Delete("/keywords/{id}", s.handleDeleteKeyword)

		r.Get("/locations/countries", s.handleCountries)
		r.Get("/locations/states", s.handleStates)
		r.Get("/locations/cities", s.handleCitiesByState)
		r.Get("/locations/places", s.handlePlacesByLocation)
		r.Get("/cities", s.handleCities)

		r.Get("/wordpress/sync-status", s.handleSyncStatus)
		r.Post("/wordpress/sync-single", s.handleSyncSingle)
		r.Post("/wordpress/sync-bulk", s.handleSyncBulk)
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
