package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/film-favourites/internal/catalog"
	"github.com/Clark-Hu/film-favourites/internal/config"
	"github.com/Clark-Hu/film-favourites/internal/films"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

// HealthChecker reports whether the persistence layer is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MetricsHandler serves the prometheus exposition endpoint.
type MetricsHandler http.Handler

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	health  HealthChecker
	films   *films.Service
	images  *catalog.ImageURLBuilder
	logger  zerolog.Logger
	metrics metrics.Recorder
	limiter *rate.Limiter
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes. A nil
// metricsHandler leaves /metrics unrouted.
func New(cfg config.Config, health HealthChecker, svc *films.Service, images *catalog.ImageURLBuilder, logger zerolog.Logger, rec metrics.Recorder, metricsHandler MetricsHandler) *Server {
	if rec == nil {
		rec = metrics.Noop{}
	}

	s := &Server{
		cfg:     cfg,
		health:  health,
		films:   svc,
		images:  images,
		logger:  logger,
		metrics: rec,
	}
	if cfg.ToggleRatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ToggleRatePerSec), max(cfg.ToggleRateBurst, 1))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)
	s.router = r

	s.registerRoutes(metricsHandler)
	return s
}

func (s *Server) registerRoutes(metricsHandler http.Handler) {
	s.router.Get("/healthz", s.handleHealthz)
	if metricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	s.router.Route("/films", func(r chi.Router) {
		r.Get("/", s.handleListFilms)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleFilmDetails)
			r.With(s.rateLimit).Post("/favourite", s.handleToggleFavourite)
		})
	})
	s.router.Route("/favourites", func(r chi.Router) {
		r.Get("/", s.handleListFavourites)
		r.Get("/{id}", s.handleFavouriteStatus)
		r.With(s.rateLimit).Delete("/{id}", s.handleRemoveFavourite)
	})
	s.router.Get("/images/{size}", s.handlePosterURL)
}

// Handler returns the compressed root handler.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		s.logger.Info().Msg("http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
