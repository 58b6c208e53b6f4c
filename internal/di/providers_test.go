package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/film-favourites/internal/catalog"
	"github.com/Clark-Hu/film-favourites/internal/config"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

func TestProvideKeySourcePrefersStaticKey(t *testing.T) {
	cfg := config.Config{CatalogAPIKey: "static", KeySourceURL: "http://127.0.0.1:1", KeySourcePath: "APIKey"}
	keys, err := ProvideKeySource(cfg, metrics.Noop{})
	require.NoError(t, err)

	key, err := keys.GetKey(context.Background(), "APIKey")
	require.NoError(t, err)
	assert.Equal(t, "static", key)
}

func TestProvideKeySourceRemoteIsCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"remote-key"`))
	}))
	defer srv.Close()

	cfg := config.Config{
		KeySourceURL:       srv.URL,
		KeySourcePath:      "APIKey",
		CatalogTimeoutSecs: 1,
		KeyCacheTTLSecs:    60,
		KeyCacheSizeMB:     1,
	}
	keys, err := ProvideKeySource(cfg, metrics.Noop{})
	require.NoError(t, err)
	_, cached := keys.(*catalog.CachedKeySource)
	assert.True(t, cached)

	for i := 0; i < 3; i++ {
		key, err := keys.GetKey(context.Background(), "APIKey")
		require.NoError(t, err)
		assert.Equal(t, "remote-key", key)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvideCatalogClientRejectsBadURL(t *testing.T) {
	cfg := config.Config{CatalogURL: "not a url", CatalogTimeoutSecs: 1, RetryMaxAttempts: 1}
	_, err := ProvideCatalogClient(cfg, catalog.StaticKeySource("k"), zerolog.Nop(), metrics.Noop{})
	require.Error(t, err)
	assert.True(t, catalog.IsKind(err, catalog.BadURL))
}

func TestProvideMetricsHandler(t *testing.T) {
	reg := ProvideRegistry()
	assert.Nil(t, ProvideMetricsHandler(config.Config{MetricsEnabled: false}, reg))

	h := ProvideMetricsHandler(config.Config{MetricsEnabled: true}, reg)
	require.NotNil(t, h)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestProvideRecorderDisabled(t *testing.T) {
	rec := ProvideRecorder(config.Config{MetricsEnabled: false}, ProvideRegistry())
	_, ok := rec.(metrics.Noop)
	assert.True(t, ok)
}
