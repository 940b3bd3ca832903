// Package app assembles the repositories, providers and services shared by
// the API server and the tripctl admin CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/trip-planner/backend/internal/auth"
	"github.com/pkordes/trip-planner/backend/internal/config"
	"github.com/pkordes/trip-planner/backend/internal/geocode"
	"github.com/pkordes/trip-planner/backend/internal/metrics"
	"github.com/pkordes/trip-planner/backend/internal/places"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/service"
	"github.com/pkordes/trip-planner/backend/internal/storage"
	"github.com/pkordes/trip-planner/backend/internal/watch"
	"github.com/pkordes/trip-planner/backend/internal/weather"
	"github.com/pkordes/trip-planner/backend/migrations"
)

const providerTimeout = 10 * time.Second

// OpenPool connects to Postgres and verifies the database is reachable.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("app.OpenPool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.OpenPool: ping: %w", err)
	}
	return pool, nil
}

// Migrate applies every pending migration and returns how many ran.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return 0, fmt.Errorf("app.Migrate: create provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("app.Migrate: %w", err)
	}
	return len(results), nil
}

// App holds the wired services.
type App struct {
	Hub     *watch.Hub
	Metrics *metrics.Collector

	Budget     *service.BudgetService
	Activities *service.ActivityService
	Trips      *service.TripService
	Checklist  *service.ChecklistService
	Geo        *service.GeoService
	Enricher   *service.Enricher
	Export     *service.ExportService
	Auth       *service.AuthService

	// Files serves local attachments; nil when they live in S3.
	Files http.Handler
}

// New wires every service over pool. It needs cfg.JWTSecret only when auth
// is used; the CLI passes a throwaway secret for commands that never sign.
func New(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, log *slog.Logger) (*App, error) {
	a := &App{Hub: watch.NewHub(), Metrics: metrics.NewCollector("trip_planner")}

	days := repo.NewDayRepo(pool)
	activities := repo.NewActivityRepo(pool)
	budgets := repo.NewBudgetRepo(pool)

	files, fileServer, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Files = fileServer

	httpClient := &http.Client{Timeout: providerTimeout}
	geocoder := newGeocoder(cfg, httpClient, a.Metrics, log)

	a.Enricher = service.NewEnricher(activities, geocoder, a.Hub, a.Metrics, log)
	if cfg.GeocodeBatchSize > 0 {
		a.Enricher.BatchSize = cfg.GeocodeBatchSize
	}
	if cfg.GeocodeBatchPause > 0 {
		a.Enricher.Pause = cfg.GeocodeBatchPause
	}

	a.Budget = service.NewBudgetService(activities, budgets, a.Hub)
	a.Activities = service.NewActivityService(service.ActivityDeps{
		Days:       days,
		Activities: activities,
		Budget:     a.Budget,
		Files:      files,
		Enrich:     a.Enricher,
		Notify:     a.Hub,
		Log:        log,
	})
	a.Trips = service.NewTripService(service.TripDeps{
		Days:    days,
		Budgets: budgets,
		Budget:  a.Budget,
		Files:   files,
		Enrich:  a.Enricher,
		Notify:  a.Hub,
		Log:     log,
	})
	a.Checklist = service.NewChecklistService(repo.NewChecklistRepo(pool), a.Hub)
	a.Export = service.NewExportService(days)

	var forecaster service.Forecaster
	if cfg.OpenWeatherAPIKey != "" {
		forecaster = &weather.Client{APIKey: cfg.OpenWeatherAPIKey, Client: httpClient}
	}
	var finder service.PlaceFinder
	if cfg.GoogleMapsAPIKey != "" {
		finder = &places.Client{APIKey: cfg.GoogleMapsAPIKey, Client: httpClient}
	}
	a.Geo = service.NewGeoService(days, activities, forecaster, finder, geocoder)

	if cfg.JWTSecret != "" {
		issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.Auth = service.NewAuthService(repo.NewUserRepo(pool), repo.NewTokenRepo(pool), issuer)
	}
	return a, nil
}

// newGeocoder puts each provider behind its own breaker, Google first when
// a key is configured, with Nominatim as the fallback.
func newGeocoder(cfg config.Config, c *http.Client, m *metrics.Collector, log *slog.Logger) geocode.Geocoder {
	nominatim := geocode.NewBreaker("nominatim", &geocode.Nominatim{BaseURL: cfg.NominatimURL, Client: c}, m, log)
	if cfg.GoogleMapsAPIKey == "" {
		return nominatim
	}
	google := geocode.NewBreaker("google", &geocode.Google{APIKey: cfg.GoogleMapsAPIKey, Client: c}, m, log)
	return geocode.Fallback{Primary: google, Secondary: nominatim}
}

func newStore(ctx context.Context, cfg config.Config) (storage.Store, http.Handler, error) {
	if cfg.AttachmentBucket != "" {
		s, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.AttachmentBucket,
			Region:    cfg.AttachmentRegion,
			Endpoint:  cfg.AttachmentEndpoint,
			PublicURL: cfg.AttachmentPublicURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("app.New: %w", err)
		}
		return s, nil, nil
	}
	d, err := storage.NewDisk(cfg.AttachmentDir, "/files")
	if err != nil {
		return nil, nil, fmt.Errorf("app.New: %w", err)
	}
	return d, http.FileServer(http.Dir(d.Root)), nil
}
