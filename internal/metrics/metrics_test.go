package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBucket(t *testing.T) {
	assert.Equal(t, "2xx", statusBucket(200))
	assert.Equal(t, "4xx", statusBucket(404))
	assert.Equal(t, "5xx", statusBucket(502))
	assert.Equal(t, "0", statusBucket(0))
}

func TestNew_DisabledIsNoop(t *testing.T) {
	rec := New(false, prometheus.NewRegistry())
	_, ok := rec.(Noop)
	assert.True(t, ok)
}

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(true, reg)
	prom, ok := rec.(*Prometheus)
	require.True(t, ok)

	rec.IncToggles("add", "ok")
	rec.IncToggles("add", "ok")
	rec.SetFavouritesTotal(4)
	rec.IncCatalogFailures("fetch_page", "server_error")
	rec.ObserveCatalogDuration("fetch_page", 10*time.Millisecond)
	rec.IncStaleResponses("popular")
	rec.IncKeyCacheHits()

	assert.Equal(t, 2.0, testutil.ToFloat64(prom.toggles.WithLabelValues("add", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(prom.favouritesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.catalogFailures.WithLabelValues("fetch_page", "server_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.staleResponses.WithLabelValues("popular")))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.keyCacheHits))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
