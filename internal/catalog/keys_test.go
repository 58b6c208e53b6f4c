package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticKeySource(t *testing.T) {
	key, err := StaticKeySource("abc").GetKey(context.Background(), "APIKey")
	require.NoError(t, err)
	assert.Equal(t, "abc", key)

	_, err = StaticKeySource("").GetKey(context.Background(), "APIKey")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRemoteKeySource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/APIKey.json":
			_, _ = w.Write([]byte(`"remote-key"`))
		case "/Empty.json":
			_, _ = w.Write([]byte(`null`))
		case "/Number.json":
			_, _ = w.Write([]byte(`42`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	source, err := NewRemoteKeySource(srv.URL+"/", time.Second)
	require.NoError(t, err)

	key, err := source.GetKey(context.Background(), "APIKey")
	require.NoError(t, err)
	assert.Equal(t, "remote-key", key)

	_, err = source.GetKey(context.Background(), "Empty")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = source.GetKey(context.Background(), "Missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = source.GetKey(context.Background(), "Number")
	assert.Error(t, err)

	_, err = source.GetKey(context.Background(), "/")
	assert.Error(t, err)
}

func TestNewRemoteKeySource_RejectsRelative(t *testing.T) {
	_, err := NewRemoteKeySource("keys/db", time.Second)
	assert.Error(t, err)
}

func TestCachedKeySource_CachesAndCollapses(t *testing.T) {
	var lookups atomic.Int32
	release := make(chan struct{})
	next := keyFunc(func(ctx context.Context, path string) (string, error) {
		lookups.Add(1)
		<-release
		return "k-" + path, nil
	})
	cached := NewCachedKeySource(next, 1, time.Minute, nil)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cached.GetKey(context.Background(), "APIKey")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "k-APIKey", r)
	}
	key, err := cached.GetKey(context.Background(), "APIKey")
	require.NoError(t, err)
	assert.Equal(t, "k-APIKey", key)
	assert.LessOrEqual(t, lookups.Load(), int32(8))
	assert.GreaterOrEqual(t, lookups.Load(), int32(1))

	before := lookups.Load()
	_, _ = cached.GetKey(context.Background(), "APIKey")
	assert.Equal(t, before, lookups.Load())
}

func TestCachedKeySource_DoesNotCacheErrors(t *testing.T) {
	calls := 0
	next := keyFunc(func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("temporarily offline")
		}
		return "recovered", nil
	})
	cached := NewCachedKeySource(next, 1, time.Minute, nil)

	_, err := cached.GetKey(context.Background(), "APIKey")
	assert.Error(t, err)

	key, err := cached.GetKey(context.Background(), "APIKey")
	require.NoError(t, err)
	assert.Equal(t, "recovered", key)
}
