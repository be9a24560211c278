package gallery

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/storyweave/pkg/buildinfo"
	"github.com/matzehuels/storyweave/pkg/cache"
	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/observability"
	"github.com/matzehuels/storyweave/pkg/validate"
)

const (
	httpTimeout = 10 * time.Second
	// maxManifestBytes bounds the manifest body; each story is further
	// bounded by validation.
	maxManifestBytes = 8 * validate.MaxImportBytes

	// DefaultRetryDelay is the first backoff delay.
	DefaultRetryDelay = time.Second
)

// Client downloads manifests with retry and an optional response cache.
type Client struct {
	http     *http.Client
	cache    cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithCache caches successful manifest bodies for ttl.
func WithCache(ch cache.Cache, ttl time.Duration) Option {
	return func(c *Client) { c.cache, c.ttl = ch, ttl }
}

// WithKeyer replaces the default cache keyer.
func WithKeyer(k cache.Keyer) Option { return func(c *Client) { c.keyer = k } }

// WithRetry sets the number of attempts and the first backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient returns a client with 3 attempts starting at one second and no
// cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: httpTimeout},
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		ttl:      cache.TTLHTTP,
		attempts: 3,
		delay:    DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c
}

// Fetch downloads and parses the manifest at url.
func (c *Client) Fetch(ctx context.Context, url string) ([]Entry, error) {
	return c.fetch(ctx, url, false)
}

func (c *Client) fetch(ctx context.Context, url string, refresh bool) ([]Entry, error) {
	data, err := c.FetchRaw(ctx, url, refresh)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("loaded manifest", "url", url, "entries", len(entries))
	return entries, nil
}

// FetchRaw returns the manifest body, from the cache unless refresh is set.
func (c *Client) FetchRaw(ctx context.Context, url string, refresh bool) ([]byte, error) {
	if err := errors.ValidateURL(url); err != nil {
		return nil, err
	}
	key := c.keyer.HTTPKey("gallery", url)
	if !refresh {
		if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "http")
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}

	var body []byte
	err := cache.Retry(ctx, c.attempts, c.delay, func() error {
		var err error
		body, err = c.get(ctx, url)
		if cache.IsRetryable(err) {
			c.logger.Debug("manifest fetch failed, retrying", "url", url, "err", err)
		}
		return err
	})
	if err != nil {
		return nil, classify(url, err)
	}
	if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes+1))
	if err != nil {
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	if len(data) > maxManifestBytes {
		return nil, fmt.Errorf("%w: manifest larger than %d bytes", ErrNetwork, maxManifestBytes)
	}
	return data, nil
}

// classify attaches an error code so callers can map failures without
// knowing this package's sentinels.
func classify(url string, err error) error {
	switch {
	case stderrors.Is(err, ErrNotFound):
		return errors.Wrap(errors.ErrCodeNotFound, err, "manifest %s not found", url)
	case stderrors.Is(err, ErrNetwork):
		return errors.Wrap(errors.ErrCodeNetwork, err, "fetch manifest %s: %v", url, err)
	}
	return err
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500 || code == http.StatusTooManyRequests:
		return cache.Retryable(fmt.Errorf("%w: HTTP %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: HTTP %d", ErrNetwork, code)
	}
}
