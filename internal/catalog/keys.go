package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

// ErrKeyNotFound is returned when the key source holds no value at the path.
var ErrKeyNotFound = errors.New("catalog: api key not found")

// KeySource resolves the catalog API key stored under a path.
type KeySource interface {
	GetKey(ctx context.Context, path string) (string, error)
}

// StaticKeySource serves a key fixed at startup, whatever the path.
type StaticKeySource string

func (s StaticKeySource) GetKey(_ context.Context, _ string) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrKeyNotFound
	}
	return string(s), nil
}

// RemoteKeySource reads keys from a key-value REST store that serves the
// value at {base}/{path}.json as a JSON string.
type RemoteKeySource struct {
	baseURL *url.URL
	client  *http.Client
}

// NewRemoteKeySource validates baseURL and builds the source.
func NewRemoteKeySource(baseURL string, timeout time.Duration) (*RemoteKeySource, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse key source url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("key source url %q is not absolute", baseURL)
	}
	return &RemoteKeySource{
		baseURL: parsed,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *RemoteKeySource) GetKey(ctx context.Context, path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", fmt.Errorf("key path is empty")
	}
	endpoint := s.baseURL.JoinPath(path + ".json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("key source request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrKeyNotFound
	case resp.StatusCode > 299:
		return "", fmt.Errorf("key source returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read key source response: %w", err)
	}

	var value *string
	if err := json.Unmarshal(body, &value); err != nil {
		return "", fmt.Errorf("decode key source response: %w", err)
	}
	if value == nil || strings.TrimSpace(*value) == "" {
		return "", ErrKeyNotFound
	}
	return *value, nil
}

// CachedKeySource memoises another KeySource in a freecache with a TTL and
// collapses concurrent lookups of the same path into one call.
type CachedKeySource struct {
	next    KeySource
	cache   *freecache.Cache
	ttl     int
	group   singleflight.Group
	metrics metrics.Recorder
}

// NewCachedKeySource wraps next. A zero ttl caches keys until evicted.
func NewCachedKeySource(next KeySource, sizeMB int, ttl time.Duration, rec metrics.Recorder) *CachedKeySource {
	if rec == nil {
		rec = metrics.Noop{}
	}
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &CachedKeySource{
		next:    next,
		cache:   freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:     int(ttl.Seconds()),
		metrics: rec,
	}
}

func (s *CachedKeySource) GetKey(ctx context.Context, path string) (string, error) {
	if val, err := s.cache.Get([]byte(path)); err == nil {
		s.metrics.IncKeyCacheHits()
		return string(val), nil
	}
	s.metrics.IncKeyCacheMisses()

	v, err, _ := s.group.Do(path, func() (interface{}, error) {
		key, err := s.next.GetKey(ctx, path)
		if err != nil {
			return "", err
		}
		_ = s.cache.Set([]byte(path), []byte(key), s.ttl)
		return key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops a cached key, e.g. after the upstream rejected it.
func (s *CachedKeySource) Invalidate(path string) {
	s.cache.Del([]byte(path))
}
