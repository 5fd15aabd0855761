package overpass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/cache"
	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/config"
	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/service"
)

// maxResponseBytes bounds a single response body.
const maxResponseBytes = 512 << 20

// Options configures a Client.
type Options struct {
	HTTPClient        *http.Client
	Endpoint          string
	UserAgent         string
	Retry             service.RetryOptions
	Timeout           time.Duration
	RequestsPerMinute int
	ForceRefresh      bool
}

// OptionsFromConfig derives client options from the run configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	retry := service.DefaultRetryOptions()
	if cfg.Overpass.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Overpass.MaxAttempts
	}
	return Options{
		Endpoint:          cfg.Overpass.Endpoint,
		Timeout:           cfg.Overpass.Timeout,
		RequestsPerMinute: cfg.Overpass.RequestsPerMinute,
		ForceRefresh:      cfg.ForceRefresh,
		Retry:             retry,
	}
}

// Stats counts what a client did since it was created.
type Stats struct {
	NetworkCalls int64
	CacheHits    int64
	CacheWrites  int64
}

// Client fetches power elements for a region. It owns one HTTP session for
// its lifetime; call Close when the run ends.
type Client struct {
	httpClient  *http.Client
	store       cache.Store
	rateLimiter *rateLimiter
	opts        Options

	networkCalls atomic.Int64
	cacheHits    atomic.Int64
	cacheWrites  atomic.Int64

	closeOnce sync.Once
	closed    atomic.Bool
}

var _ service.ElementFetcher = (*Client)(nil)

// NewClient creates a client that reads and writes store. The store is
// owned by the caller.
func NewClient(opts Options, store cache.Store) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = config.DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = service.DefaultRetryOptions()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.AppName
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			// Leave headroom over the server-side timeout so the server
			// reports its own timeout before the client gives up.
			Timeout: opts.Timeout + 30*time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		httpClient:  httpClient,
		store:       store,
		rateLimiter: newRateLimiter(opts.RequestsPerMinute),
		opts:        opts,
	}
}

// Fetch returns the power elements of region. A cached response is used
// unless ForceRefresh is set; a fresh response is cached before returning.
func (c *Client) Fetch(ctx context.Context, region model.Region, downloadType model.DownloadType) (*model.ElementSet, error) {
	if c.closed.Load() {
		return nil, common.ErrClientClosed
	}

	downloadType, err := model.ParseDownloadType(string(downloadType))
	if err != nil {
		return nil, err
	}
	query, err := BuildQuery(region, downloadType, c.opts.Timeout)
	if err != nil {
		return nil, err
	}

	key := cache.Key(region, downloadType)
	logger := slog.With("region", region.Label(), "download_type", downloadType, "cache_key", key)

	if !c.opts.ForceRefresh {
		if set, ok := c.fromCache(ctx, key, downloadType, logger); ok {
			return set, nil
		}
	}

	var payload []byte
	var set *model.ElementSet
	err = common.WithRetry(ctx, func() error {
		body, err := c.post(ctx, query)
		if err != nil {
			return err
		}
		decoded, err := decodeElements(body, downloadType)
		if err != nil {
			if errors.Is(err, errServerRuntime) {
				return &common.RetryableError{Err: err, Retryable: true}
			}
			return common.Permanent(err)
		}
		payload, set = body, decoded
		return nil
	}, c.opts.Retry)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", common.ErrFetchFailed, region.Label(), err)
	}

	set.FetchedAt = time.Now().UTC()
	entry := &cache.Entry{
		Key:       key,
		Query:     query,
		FetchedAt: set.FetchedAt,
		Payload:   payload,
	}
	if err := c.store.Put(ctx, entry); err != nil {
		logger.Warn("Failed to cache response", "error", err)
	} else {
		c.cacheWrites.Add(1)
	}

	logger.Info("Fetched power elements",
		"plants", len(set.Plants),
		"generators", len(set.Generators))
	return set, nil
}

// fromCache returns the cached element set for key. Unreadable entries are
// treated as misses.
func (c *Client) fromCache(ctx context.Context, key string, downloadType model.DownloadType, logger *slog.Logger) (*model.ElementSet, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logger.Warn("Ignoring unreadable cache entry", "error", err)
		}
		return nil, false
	}

	set, err := decodeElements(entry.Payload, downloadType)
	if err != nil {
		logger.Warn("Ignoring malformed cache entry", "error", err)
		return nil, false
	}

	c.cacheHits.Add(1)
	set.FromCache = true
	set.FetchedAt = entry.FetchedAt
	logger.Debug("Cache hit", "fetched_at", entry.FetchedAt)
	return set, true
}

// post sends one query. Errors come back classified for WithRetry.
func (c *Client) post(ctx context.Context, query string) ([]byte, error) {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, common.Permanent(err)
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	c.networkCalls.Add(1)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, common.Permanent(fmt.Errorf("request canceled: %w", ctx.Err()))
		}
		return nil, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &common.RetryableError{Err: fmt.Errorf("%w (status %d)", common.ErrRateLimit, resp.StatusCode), Retryable: true}
	case resp.StatusCode >= 500:
		return nil, &common.RetryableError{Err: fmt.Errorf("server error (status %d): %s", resp.StatusCode, snippet(body)), Retryable: true}
	default:
		return nil, common.Permanent(fmt.Errorf("query rejected (status %d): %s", resp.StatusCode, snippet(body)))
	}
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() Stats {
	return Stats{
		NetworkCalls: c.networkCalls.Load(),
		CacheHits:    c.cacheHits.Load(),
		CacheWrites:  c.cacheWrites.Load(),
	}
}

// Close releases the HTTP session. Later calls to Fetch fail with
// common.ErrClientClosed. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.rateLimiter.Close()
		c.httpClient.CloseIdleConnections()
	})
	return nil
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
