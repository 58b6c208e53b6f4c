// Package di assembles the service graph. Providers live here; injectors.go
// declares the graph for wire and wire_gen.go is its generated output.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/film-favourites/db"
	"github.com/Clark-Hu/film-favourites/internal/catalog"
	"github.com/Clark-Hu/film-favourites/internal/config"
	"github.com/Clark-Hu/film-favourites/internal/favourites"
	"github.com/Clark-Hu/film-favourites/internal/favsync"
	"github.com/Clark-Hu/film-favourites/internal/films"
	httpserver "github.com/Clark-Hu/film-favourites/internal/http"
	"github.com/Clark-Hu/film-favourites/internal/logging"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
	"github.com/Clark-Hu/film-favourites/internal/repository"
	"github.com/Clark-Hu/film-favourites/internal/store"
)

// InfraSet provides logging, metrics and persistence.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideRecorder,
	ProvideMetricsHandler,
	ProvideStore,
	repository.New,
	ProvideFavouritesBackend,
	wire.Bind(new(httpserver.HealthChecker), new(*store.Store)),
)

// DomainSet provides the catalog client, favourites pipeline and HTTP server.
var DomainSet = wire.NewSet(
	ProvideKeySource,
	ProvideCatalogClient,
	ProvideImageURLBuilder,
	ProvideFavouritesStore,
	wire.Bind(new(favsync.Toggler), new(*favourites.Store)),
	ProvideSynchronizer,
	favsync.NewSequencer,
	ProvideFilmsService,
	ProvideServer,
	NewApp,
)

func ProvideLogger(cfg config.Config) (zerolog.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}

func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideRecorder(cfg config.Config, reg *prometheus.Registry) metrics.Recorder {
	return metrics.New(cfg.MetricsEnabled, reg)
}

func ProvideMetricsHandler(cfg config.Config, reg *prometheus.Registry) httpserver.MetricsHandler {
	if !cfg.MetricsEnabled {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ProvideStore connects the pool and applies the embedded schema.
func ProvideStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*store.Store, func(), error) {
	opts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logging.Component(logger, "store"),
	}
	st, err := store.New(ctx, cfg.DBURL, opts)
	if err != nil {
		return nil, nil, err
	}

	statements, err := db.UpMigrations()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if err := st.Migrate(ctx, statements); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, st.Close, nil
}

func ProvideFavouritesBackend(repo *repository.Repository) favourites.Backend {
	return repo.Favourites
}

// ProvideKeySource prefers a static key. Otherwise keys come from the remote
// key-value endpoint through a cache.
func ProvideKeySource(cfg config.Config, rec metrics.Recorder) (catalog.KeySource, error) {
	if cfg.CatalogAPIKey != "" {
		return catalog.StaticKeySource(cfg.CatalogAPIKey), nil
	}
	remote, err := catalog.NewRemoteKeySource(cfg.KeySourceURL, cfg.CatalogTimeout())
	if err != nil {
		return nil, err
	}
	return catalog.NewCachedKeySource(remote, cfg.KeyCacheSizeMB, cfg.KeyCacheTTL(), rec), nil
}

func ProvideCatalogClient(cfg config.Config, keys catalog.KeySource, logger zerolog.Logger, rec metrics.Recorder) (catalog.Client, error) {
	log := logging.Component(logger, "catalog")
	client, err := catalog.NewHTTPClient(cfg.CatalogURL, keys, cfg.KeySourcePath, cfg.CatalogTimeout(), log, rec)
	if err != nil {
		return nil, err
	}
	policy := catalog.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		MaxDelay:    cfg.RetryMaxDelay(),
	}
	return catalog.NewRetryingClient(client, policy, log, rec), nil
}

func ProvideImageURLBuilder(cfg config.Config) (*catalog.ImageURLBuilder, error) {
	return catalog.NewImageURLBuilder(cfg.ImageBaseURL)
}

func ProvideFavouritesStore(backend favourites.Backend, logger zerolog.Logger, rec metrics.Recorder) *favourites.Store {
	return favourites.New(backend, logging.Component(logger, "favourites"), rec)
}

func ProvideSynchronizer(toggler favsync.Toggler, logger zerolog.Logger, rec metrics.Recorder) *favsync.Synchronizer {
	return favsync.New(toggler, logging.Component(logger, "favsync"), rec)
}

func ProvideFilmsService(client catalog.Client, syncer *favsync.Synchronizer, seq *favsync.Sequencer, logger zerolog.Logger, rec metrics.Recorder) *films.Service {
	return films.NewService(client, syncer, seq, logging.Component(logger, "films"), rec)
}

func ProvideServer(cfg config.Config, health httpserver.HealthChecker, svc *films.Service, images *catalog.ImageURLBuilder, logger zerolog.Logger, rec metrics.Recorder, mh httpserver.MetricsHandler) *httpserver.Server {
	return httpserver.New(cfg, health, svc, images, logging.Component(logger, "http"), rec, mh)
}
