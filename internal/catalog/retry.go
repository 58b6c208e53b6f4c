package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/film-favourites/internal/domain"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

// RetryPolicy is the named retry configuration for catalog requests.
// MaxAttempts counts the first try; one attempt means no retry.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NoRetry performs every request exactly once.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// Backoff returns the delay after the given number of consecutive failures:
// BaseDelay doubled per failure, capped at MaxDelay.
func (p RetryPolicy) Backoff(failures int) time.Duration {
	if failures <= 1 {
		return p.capped(p.BaseDelay)
	}
	delay := p.BaseDelay
	for i := 1; i < failures; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return p.capped(delay)
}

func (p RetryPolicy) capped(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retryable reports whether a failed request may succeed when repeated.
func (p RetryPolicy) Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var nf *NetworkFailure
	if !errors.As(err, &nf) {
		return false
	}
	switch nf.Kind {
	case TransportError:
		return true
	case ServerError:
		return nf.Status >= 500 || nf.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

// RetryingClient decorates a Client with a RetryPolicy.
type RetryingClient struct {
	next    Client
	policy  RetryPolicy
	logger  zerolog.Logger
	metrics metrics.Recorder
	sleep   func(ctx context.Context, d time.Duration) error
}

var _ Client = (*RetryingClient)(nil)

// NewRetryingClient wraps next with policy.
func NewRetryingClient(next Client, policy RetryPolicy, logger zerolog.Logger, rec metrics.Recorder) *RetryingClient {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &RetryingClient{
		next:    next,
		policy:  policy,
		logger:  logger,
		metrics: rec,
		sleep:   sleepContext,
	}
}

func (c *RetryingClient) FetchPage(ctx context.Context) (domain.FilmPage, error) {
	var page domain.FilmPage
	err := c.do(ctx, OpFetchPage, func(ctx context.Context) error {
		var err error
		page, err = c.next.FetchPage(ctx)
		return err
	})
	return page, err
}

func (c *RetryingClient) FetchDetails(ctx context.Context, id int64) (domain.FilmDetails, error) {
	var details domain.FilmDetails
	err := c.do(ctx, OpFetchDetails, func(ctx context.Context) error {
		var err error
		details, err = c.next.FetchDetails(ctx, id)
		return err
	})
	return details, err
}

func (c *RetryingClient) do(ctx context.Context, op string, call func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		err = call(ctx)
		if err == nil || attempt == c.policy.MaxAttempts || !c.policy.Retryable(err) {
			return err
		}

		delay := c.policy.Backoff(attempt)
		c.metrics.IncCatalogRetries(op)
		c.logger.Debug().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("retrying catalog request")

		if serr := c.sleep(ctx, delay); serr != nil {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
