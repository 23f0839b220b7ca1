// Package omdb looks up IMDb, Rotten Tomatoes and Metacritic ratings from the
// OMDb API and caches every answer, including absent ones, for the lifetime
// of the client.
package omdb

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lepinkainen/posterratings/internal/cache"
	"github.com/lepinkainen/posterratings/internal/ratelimit"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL       = "https://www.omdbapi.com"
	defaultUserAgent     = "Poster-Ratings-Overlay/1.0"
	defaultRatePerSecond = 5
	defaultLimitCooldown = time.Hour
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is an OMDb ratings client.
type Client struct {
	apiKey        string
	baseURL       string
	userAgent     string
	httpClient    HTTPDoer
	rateLimiter   *ratelimit.Limiter
	store         cache.Store
	group         singleflight.Group
	limitCooldown time.Duration
	// blockedUntil holds a unix nano deadline set when OMDb reports that the
	// daily request limit is reached.
	blockedUntil atomic.Int64
	now          func() time.Time
}

// NewClient creates a new OMDb client. An empty apiKey yields a disabled
// client whose lookups always return no ratings without a network call.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:        strings.TrimSpace(apiKey),
		baseURL:       defaultBaseURL,
		userAgent:     defaultUserAgent,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		rateLimiter:   ratelimit.New("OMDb", defaultRatePerSecond),
		store:         cache.NewMemoryStore(),
		limitCooldown: defaultLimitCooldown,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the OMDb API.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}

// WithRateLimiter sets a custom rate limiter for the client.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		if limiter != nil {
			client.rateLimiter = limiter
		}
	}
}

// WithStore sets the backing store of the ratings cache.
func WithStore(store cache.Store) Option {
	return func(client *Client) {
		if store != nil {
			client.store = store
		}
	}
}

// WithLimitCooldown sets how long lookups are skipped after OMDb reports
// that the request limit is reached.
func WithLimitCooldown(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.limitCooldown = d
		}
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// ClearCache drops every cached lookup, absent results included.
func (c *Client) ClearCache() error {
	return c.store.Clear()
}

// markLimitReached blocks lookups for the cooldown period.
func (c *Client) markLimitReached(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = c.limitCooldown
	}
	c.blockedUntil.Store(c.now().Add(retryAfter).UnixNano())
}

// requestsAllowed returns false while the request limit cooldown is active.
func (c *Client) requestsAllowed() bool {
	until := c.blockedUntil.Load()
	return until == 0 || c.now().UnixNano() >= until
}
