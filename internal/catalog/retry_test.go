package catalog

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/film-favourites/internal/domain"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedClient) FetchPage(context.Context) (domain.FilmPage, error) {
	if err := s.next(); err != nil {
		return domain.FilmPage{}, err
	}
	return domain.FilmPage{Page: 1}, nil
}

func (s *scriptedClient) FetchDetails(_ context.Context, id int64) (domain.FilmDetails, error) {
	if err := s.next(); err != nil {
		return domain.FilmDetails{}, err
	}
	return domain.FilmDetails{ID: id}, nil
}

func newRetrying(next Client, policy RetryPolicy) (*RetryingClient, *[]time.Duration) {
	var slept []time.Duration
	c := NewRetryingClient(next, policy, zerolog.Nop(), nil)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 100 * time.Millisecond},
		{"one failure", 1, 100 * time.Millisecond},
		{"two failures", 2, 200 * time.Millisecond},
		{"three failures", 3, 400 * time.Millisecond},
		{"four failures", 4, 800 * time.Millisecond},
		{"five failures capped", 5, time.Second},
		{"many failures capped", 30, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Backoff(tt.failures))
		})
	}
}

func TestRetryPolicy_Retryable(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3}

	assert.True(t, policy.Retryable(&NetworkFailure{Kind: TransportError}))
	assert.True(t, policy.Retryable(&NetworkFailure{Kind: ServerError, Status: http.StatusBadGateway}))
	assert.True(t, policy.Retryable(&NetworkFailure{Kind: ServerError, Status: http.StatusTooManyRequests}))
	assert.False(t, policy.Retryable(&NetworkFailure{Kind: ServerError, Status: http.StatusNotFound}))
	assert.False(t, policy.Retryable(&NetworkFailure{Kind: DecodeError}))
	assert.False(t, policy.Retryable(&NetworkFailure{Kind: BadKey}))
	assert.False(t, policy.Retryable(context.Canceled))
}

func TestRetryingClient_RetriesTransientFailures(t *testing.T) {
	next := &scriptedClient{errs: []error{
		&NetworkFailure{Kind: TransportError},
		&NetworkFailure{Kind: ServerError, Status: http.StatusServiceUnavailable},
	}}
	client, slept := newRetrying(next, RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second})

	page, err := client.FetchPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
}

func TestRetryingClient_StopsOnPermanentFailure(t *testing.T) {
	next := &scriptedClient{errs: []error{&NetworkFailure{Kind: DecodeError}}}
	client, slept := newRetrying(next, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond})

	_, err := client.FetchDetails(context.Background(), 9)
	assert.True(t, IsKind(err, DecodeError))
	assert.Equal(t, 1, next.calls)
	assert.Empty(t, *slept)
}

func TestRetryingClient_GivesUpAfterMaxAttempts(t *testing.T) {
	next := &scriptedClient{errs: []error{
		&NetworkFailure{Kind: TransportError},
		&NetworkFailure{Kind: TransportError},
		&NetworkFailure{Kind: TransportError},
	}}
	client, _ := newRetrying(next, RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})

	_, err := client.FetchPage(context.Background())
	assert.True(t, IsKind(err, TransportError))
	assert.Equal(t, 2, next.calls)
}

func TestRetryingClient_HonoursCancellation(t *testing.T) {
	next := &scriptedClient{errs: []error{&NetworkFailure{Kind: TransportError}}}
	client, _ := newRetrying(next, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPage(ctx)
	assert.True(t, IsKind(err, TransportError))
	assert.Equal(t, 1, next.calls)
}

func TestNoRetry(t *testing.T) {
	next := &scriptedClient{errs: []error{&NetworkFailure{Kind: TransportError}}}
	client, _ := newRetrying(next, NoRetry)

	_, err := client.FetchPage(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, next.calls)
}
