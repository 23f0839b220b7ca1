// Package cinemeta is the network adapter for the Cinemeta catalog provider.
// It maps requests to GET {base}/catalog/... and GET {base}/meta/... and
// surfaces every failure as an UpstreamError; it does no caching.
package cinemeta

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/posterratings/internal/errors"
	"github.com/lepinkainen/posterratings/internal/metrics"
	"github.com/lepinkainen/posterratings/internal/stremio"
)

const (
	// DefaultBaseURL is the public Cinemeta instance.
	DefaultBaseURL   = "https://v3-cinemeta.strem.io"
	defaultUserAgent = "Poster-Ratings-Overlay/1.0"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a Cinemeta API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
}

// NewClient creates a new Cinemeta client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
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

// WithBaseURL sets a custom base URL for the Cinemeta API.
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

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCatalog fetches one page of a catalog. Empty extra values are dropped
// and multi-valued keys are repeated in the query string.
func (c *Client) FetchCatalog(ctx context.Context, contentType, id string, extra url.Values) (*stremio.CatalogResponse, error) {
	endpoint := c.baseURL + "/catalog/" + url.PathEscape(contentType) + "/" + url.PathEscape(id) + ".json"
	if query := encodeExtra(extra); query != "" {
		endpoint += "?" + query
	}

	var resp stremio.CatalogResponse
	if err := c.getJSON(ctx, "catalog", endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Metas == nil {
		resp.Metas = []*stremio.Meta{}
	}
	return &resp, nil
}

// FetchMeta fetches a single record. A 2xx answer without a meta object
// yields a response whose Meta is nil.
func (c *Client) FetchMeta(ctx context.Context, contentType, id string) (*stremio.MetaResponse, error) {
	endpoint := c.baseURL + "/meta/" + url.PathEscape(contentType) + "/" + url.PathEscape(id) + ".json"

	var resp stremio.MetaResponse
	if err := c.getJSON(ctx, "meta", endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewUpstreamError(op, endpoint, 0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	slog.Debug("Fetching from Cinemeta", "op", op, "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("cinemeta", op).Inc()
		return errors.NewUpstreamError(op, endpoint, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		metrics.UpstreamFailures.WithLabelValues("cinemeta", op).Inc()
		return errors.NewUpstreamError(op, endpoint, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		metrics.UpstreamFailures.WithLabelValues("cinemeta", op).Inc()
		return errors.NewUpstreamError(op, endpoint, 0, err)
	}
	return nil
}

// encodeExtra drops empty values and encodes the rest in key order.
func encodeExtra(extra url.Values) string {
	params := url.Values{}
	for key, values := range extra {
		if key == "" {
			continue
		}
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			params.Add(key, v)
		}
	}
	return params.Encode()
}
