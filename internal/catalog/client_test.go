package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

const popularBody = `{
  "page": 1,
  "results": [
    {"id": 1, "title": "A", "overview": "first", "poster_path": "/a.jpg", "release_date": "2024-01-01", "genre_ids": [28, 12], "vote_average": 7.5, "vote_count": 10},
    {"id": 2, "title": "B", "overview": "second", "poster_path": null, "release_date": "2024-02-01"},
    {"title": "No ID"}
  ],
  "total_pages": 10,
  "total_results": 200
}`

const detailsBody = `{
  "id": 1,
  "title": "A",
  "tagline": "tag",
  "overview": "full overview",
  "poster_path": "/a.jpg",
  "release_date": "2024-01-01",
  "runtime": 120,
  "genres": [{"id": 28, "name": "Action"}]
}`

type keyFunc func(ctx context.Context, path string) (string, error)

func (f keyFunc) GetKey(ctx context.Context, path string) (string, error) { return f(ctx, path) }

func newTestClient(t *testing.T, baseURL string, keys KeySource) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(baseURL, keys, "APIKey", 2*time.Second, zerolog.Nop(), metrics.Noop{})
	require.NoError(t, err)
	return client
}

func TestHTTPClient_FetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/movie/popular", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(popularBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/3/", StaticKeySource("secret"))
	page, err := client.FetchPage(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.TotalPages)
	assert.Equal(t, 200, page.TotalResults)
	require.Len(t, page.Results, 3)

	first := page.Results[0]
	require.NotNil(t, first.ID)
	assert.Equal(t, int64(1), *first.ID)
	assert.Equal(t, "/a.jpg", first.PosterPath)
	assert.Equal(t, []int{28, 12}, first.GenreIDs)
	assert.False(t, first.IsFavourite)

	assert.Equal(t, "", page.Results[1].PosterPath)
	assert.Nil(t, page.Results[2].ID)
}

func TestHTTPClient_FetchDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/1", r.URL.Path)
		_, _ = w.Write([]byte(detailsBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticKeySource("secret"))
	details, err := client.FetchDetails(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), details.ID)
	assert.Equal(t, "full overview", details.Overview)
	assert.Equal(t, 120, details.Runtime)
	require.Len(t, details.Genres, 1)
	assert.Equal(t, "Action", details.Genres[0].Name)
}

func TestHTTPClient_FailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		keys     KeySource
		wantKind FailureKind
		status   int
	}{
		{
			name:     "key lookup fails",
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			keys:     keyFunc(func(context.Context, string) (string, error) { return "", errors.New("offline") }),
			wantKind: BadKey,
		},
		{
			name:     "empty key",
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			keys:     keyFunc(func(context.Context, string) (string, error) { return " ", nil }),
			wantKind: BadKey,
		},
		{
			name: "key rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			keys:     StaticKeySource("wrong"),
			wantKind: BadKey,
			status:   http.StatusUnauthorized,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			keys:     StaticKeySource("secret"),
			wantKind: ServerError,
			status:   http.StatusInternalServerError,
		},
		{
			name:     "empty body",
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			keys:     StaticKeySource("secret"),
			wantKind: BadResponse,
			status:   http.StatusOK,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"results": [`))
			},
			keys:     StaticKeySource("secret"),
			wantKind: DecodeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := newTestClient(t, srv.URL, tt.keys)
			_, err := client.FetchPage(context.Background())
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.wantKind), "got %v", err)
			assert.Equal(t, tt.status, StatusOf(err))
		})
	}
}

func TestHTTPClient_TransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := newTestClient(t, baseURL, StaticKeySource("top-secret"))
	_, err := client.FetchDetails(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, IsKind(err, TransportError))
	assert.False(t, strings.Contains(err.Error(), "top-secret"))
}

func TestHTTPClient_RejectedKeyInvalidatesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	lookups := 0
	cached := NewCachedKeySource(keyFunc(func(context.Context, string) (string, error) {
		lookups++
		return "stale", nil
	}), 1, time.Minute, nil)

	client := newTestClient(t, srv.URL, cached)
	_, _ = client.FetchPage(context.Background())
	_, _ = client.FetchPage(context.Background())
	assert.Equal(t, 2, lookups)
}

func TestNewHTTPClient_InvalidBase(t *testing.T) {
	_, err := NewHTTPClient("not a url", StaticKeySource("k"), "APIKey", time.Second, zerolog.Nop(), nil)
	assert.True(t, IsKind(err, BadURL))

	_, err = NewHTTPClient("https://example.com", nil, "APIKey", time.Second, zerolog.Nop(), nil)
	assert.Error(t, err)
}
