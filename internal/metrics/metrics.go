package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the instrumentation surface used across the service.
type Recorder interface {
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)
	IncToggles(action, outcome string)
	SetFavouritesTotal(count int)
	IncCatalogFailures(op, kind string)
	ObserveCatalogDuration(op string, duration time.Duration)
	IncCatalogRetries(op string)
	IncStaleResponses(resource string)
	IncKeyCacheHits()
	IncKeyCacheMisses()
}

// Prometheus records into a prometheus registry.
type Prometheus struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toggles         *prometheus.CounterVec
	favouritesTotal prometheus.Gauge
	catalogFailures *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	catalogRetries  *prometheus.CounterVec
	staleResponses  *prometheus.CounterVec
	keyCacheHits    prometheus.Counter
	keyCacheMisses  prometheus.Counter
}

func (m *Prometheus) IncRequestsTotal(route string, status int) {
	m.requestsTotal.WithLabelValues(route, statusBucket(status)).Inc()
}

func (m *Prometheus) ObserveRequestDuration(route string, duration time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Prometheus) IncToggles(action, outcome string) {
	m.toggles.WithLabelValues(action, outcome).Inc()
}

func (m *Prometheus) SetFavouritesTotal(count int) {
	m.favouritesTotal.Set(float64(count))
}

func (m *Prometheus) IncCatalogFailures(op, kind string) {
	m.catalogFailures.WithLabelValues(op, kind).Inc()
}

func (m *Prometheus) ObserveCatalogDuration(op string, duration time.Duration) {
	m.catalogDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *Prometheus) IncCatalogRetries(op string) {
	m.catalogRetries.WithLabelValues(op).Inc()
}

func (m *Prometheus) IncStaleResponses(resource string) {
	m.staleResponses.WithLabelValues(resource).Inc()
}

func (m *Prometheus) IncKeyCacheHits() {
	m.keyCacheHits.Inc()
}

func (m *Prometheus) IncKeyCacheMisses() {
	m.keyCacheMisses.Inc()
}

func statusBucket(code int) string {
	if code < 100 || code > 599 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}

// New registers the collectors on reg. A disabled recorder is a no-op.
func New(enabled bool, reg prometheus.Registerer) Recorder {
	if !enabled {
		return Noop{}
	}
	factory := promauto.With(reg)

	return &Prometheus{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filmfav_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filmfav_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		toggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filmfav_favourite_toggles_total",
			Help: "Favourite toggle attempts by action and outcome",
		}, []string{"action", "outcome"}),

		favouritesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "filmfav_favourites",
			Help: "Number of films in the last published favourite set",
		}),

		catalogFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filmfav_catalog_failures_total",
			Help: "Catalog request failures by operation and kind",
		}, []string{"op", "kind"}),

		catalogDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filmfav_catalog_request_duration_seconds",
			Help:    "Catalog request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),

		catalogRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filmfav_catalog_retries_total",
			Help: "Catalog request retries by operation",
		}, []string{"op"}),

		staleResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filmfav_stale_responses_total",
			Help: "Responses discarded because a newer request was issued",
		}, []string{"resource"}),

		keyCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "filmfav_key_cache_hits_total",
			Help: "API key cache hits",
		}),

		keyCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "filmfav_key_cache_misses_total",
			Help: "API key cache misses",
		}),
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) IncRequestsTotal(string, int)                 {}
func (Noop) ObserveRequestDuration(string, time.Duration) {}
func (Noop) IncToggles(string, string)                    {}
func (Noop) SetFavouritesTotal(int)                       {}
func (Noop) IncCatalogFailures(string, string)            {}
func (Noop) ObserveCatalogDuration(string, time.Duration) {}
func (Noop) IncCatalogRetries(string)                     {}
func (Noop) IncStaleResponses(string)                     {}
func (Noop) IncKeyCacheHits()                             {}
func (Noop) IncKeyCacheMisses()                           {}
