package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/film-favourites/internal/domain"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

const (
	OpFetchPage    = "fetch_page"
	OpFetchDetails = "fetch_details"

	maxResponseBody = 4 << 20 // 4 MiB
)

var errEmptyKey = errors.New("api key is empty")

type keyInvalidator interface {
	Invalidate(path string)
}

// Client defines the contract for querying the remote film catalog.
type Client interface {
	FetchPage(ctx context.Context) (domain.FilmPage, error)
	FetchDetails(ctx context.Context, id int64) (domain.FilmDetails, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	keys    KeySource
	keyPath string
	client  *http.Client
	logger  zerolog.Logger
	metrics metrics.Recorder
}

// NewHTTPClient constructs a new HTTP-backed catalog client.
func NewHTTPClient(baseURL string, keys KeySource, keyPath string, timeout time.Duration, logger zerolog.Logger, rec metrics.Recorder) (*HTTPClient, error) {
	if keys == nil {
		return nil, fmt.Errorf("catalog: key source is required")
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, &NetworkFailure{Kind: BadURL, Op: "configure", Err: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &NetworkFailure{Kind: BadURL, Op: "configure", Err: fmt.Errorf("base url %q is not absolute", baseURL)}
	}
	return &HTTPClient{
		baseURL: parsed,
		keys:    keys,
		keyPath: keyPath,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger:  logger,
		metrics: rec,
	}, nil
}

// FetchPage retrieves the first page of popular films.
func (c *HTTPClient) FetchPage(ctx context.Context) (domain.FilmPage, error) {
	query := url.Values{}
	query.Set("page", "1")

	var payload pagePayload
	if err := c.get(ctx, OpFetchPage, []string{"movie", "popular"}, query, &payload); err != nil {
		return domain.FilmPage{}, err
	}
	return payload.toDomain(), nil
}

// FetchDetails retrieves the detail payload of a single film.
func (c *HTTPClient) FetchDetails(ctx context.Context, id int64) (domain.FilmDetails, error) {
	var payload detailsPayload
	if err := c.get(ctx, OpFetchDetails, []string{"movie", strconv.FormatInt(id, 10)}, nil, &payload); err != nil {
		return domain.FilmDetails{}, err
	}
	details := payload.toDomain()
	if details.ID == 0 {
		details.ID = id
	}
	return details, nil
}

func (c *HTTPClient) get(ctx context.Context, op string, segments []string, query url.Values, dst any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveCatalogDuration(op, time.Since(start))
		var nf *NetworkFailure
		if errors.As(err, &nf) {
			c.metrics.IncCatalogFailures(op, nf.Kind.String())
			c.logger.Warn().
				Err(nf.Err).
				Str("op", op).
				Str("kind", nf.Kind.String()).
				Int("status", nf.Status).
				Msg("catalog request failed")
		}
	}()

	key, err := c.keys.GetKey(ctx, c.keyPath)
	if err != nil {
		return &NetworkFailure{Kind: BadKey, Op: op, Err: err}
	}
	if strings.TrimSpace(key) == "" {
		return &NetworkFailure{Kind: BadKey, Op: op, Err: errEmptyKey}
	}

	endpoint := c.baseURL.JoinPath(segments...)
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", key)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return &NetworkFailure{Kind: BadURL, Op: op, Err: redactURLError(err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkFailure{Kind: TransportError, Op: op, Err: redactURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		if inv, ok := c.keys.(keyInvalidator); ok {
			inv.Invalidate(c.keyPath)
		}
		return &NetworkFailure{Kind: BadKey, Op: op, Status: resp.StatusCode, Err: errors.New("api key rejected")}
	}
	if resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return &NetworkFailure{
			Kind:   ServerError,
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("upstream returned %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &NetworkFailure{Kind: TransportError, Op: op, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &NetworkFailure{Kind: BadResponse, Op: op, Status: resp.StatusCode, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &NetworkFailure{Kind: DecodeError, Op: op, Err: err}
	}
	return nil
}

// redactURLError strips the query string (which carries the api key) from
// errors produced by net/http.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if parsed, perr := url.Parse(urlErr.URL); perr == nil {
		parsed.RawQuery = ""
		urlErr.URL = parsed.String()
	}
	return err
}
