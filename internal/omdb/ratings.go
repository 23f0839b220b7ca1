package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/posterratings/internal/cache"
	"github.com/lepinkainen/posterratings/internal/errors"
	"github.com/lepinkainen/posterratings/internal/metrics"
	"github.com/lepinkainen/posterratings/internal/ratings"
)

const requestLimitMessage = "Request limit reached!"

// GetRatings returns the normalized ratings for q, or nil when none are
// available. Upstream failures and "not found" answers are cached as absent
// and never returned as errors; an error means ctx ended before the lookup
// finished.
func (c *Client) GetRatings(ctx context.Context, q ratings.Query) (*ratings.Ratings, error) {
	if !c.Enabled() {
		return nil, nil
	}

	key := q.CacheKey()
	if key == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get ratings for %s: %w", key, err)
	}

	if !c.requestsAllowed() {
		if cached, ok := c.peek(key); ok {
			return cached, nil
		}
		slog.Debug("OMDb request limit cooldown active, skipping lookup", "key", key)
		return nil, nil
	}

	// The shared lookup outlives the caller that started it; the HTTP client
	// timeout bounds it.
	shared := context.WithoutCancel(ctx)
	flight := c.group.DoChan(key, func() (any, error) {
		return c.load(shared, q, key)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get ratings for %s: %w", key, ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			return nil, fmt.Errorf("get ratings for %s: %w", key, res.Err)
		}
		result, _ := res.Val.(*cachedRatings)
		if result == nil || result.NotFound {
			return nil, nil
		}
		return result.Ratings, nil
	}
}

// load answers from the cache or fetches and stores the answer.
func (c *Client) load(ctx context.Context, q ratings.Query, key string) (*cachedRatings, error) {
	result, fromCache, err := cache.GetOrFetch(c.store, key, func() (*cachedRatings, error) {
		return c.fetch(ctx, q, key)
	})
	if err != nil {
		return nil, err
	}
	if fromCache {
		metrics.RatingsCache.WithLabelValues(metrics.CacheHit).Inc()
	} else {
		metrics.RatingsCache.WithLabelValues(metrics.CacheMiss).Inc()
	}
	return result, nil
}

// peek reads a cached answer without fetching.
func (c *Client) peek(key string) (*ratings.Ratings, bool) {
	data, found, err := c.store.Get(key)
	if err != nil || !found {
		return nil, false
	}
	var cached cachedRatings
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, false
	}
	return cached.Ratings, true
}

// fetch performs one upstream lookup. Every upstream failure is turned into a
// NotFound value so it gets cached.
func (c *Client) fetch(ctx context.Context, q ratings.Query, key string) (*cachedRatings, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.lookup(ctx, q)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("omdb", "ratings").Inc()
		switch {
		case errors.IsRateLimitError(err):
			c.markLimitReached(errors.RetryAfterOf(err))
			slog.Warn("OMDb request limit reached, pausing lookups", "key", key, "error", err)
		case errors.IsRatingsError(err):
			slog.Warn("Ratings unavailable", "key", key, "error", err)
		default:
			slog.Warn("Unexpected OMDb failure", "key", key, "error", err)
		}
		return &cachedRatings{NotFound: true}, nil
	}

	if resp.Response == "False" {
		slog.Debug("Title not found in OMDb", "key", key, "reason", resp.Error)
		return &cachedRatings{NotFound: true}, nil
	}

	bundle := ratings.Normalize(Extract(resp))
	if bundle == nil {
		return &cachedRatings{NotFound: true}, nil
	}
	return &cachedRatings{Ratings: bundle}, nil
}

func (c *Client) lookup(ctx context.Context, q ratings.Query) (*Response, error) {
	endpoint := c.baseURL + "/?" + c.params(q).Encode()
	key := q.CacheKey()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewRatingsError(key, "failed to create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	slog.Debug("Fetching OMDb ratings", "key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewRatingsError(key, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var errorResp Response
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error == requestLimitMessage {
			return nil, c.limitError(resp.Header)
		}
		return nil, errors.NewRatingsError(key, "status "+strconv.Itoa(resp.StatusCode), nil)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewRatingsError(key, "failed to decode response", err)
	}
	if payload.Response == "False" && payload.Error == requestLimitMessage {
		return nil, c.limitError(resp.Header)
	}
	return &payload, nil
}

// limitError builds the request limit error, honouring Retry-After given in
// seconds or as an HTTP date.
func (c *Client) limitError(header http.Header) error {
	value := strings.TrimSpace(header.Get("Retry-After"))
	var retryAfter time.Duration
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		retryAfter = time.Duration(secs) * time.Second
	} else if when, err := http.ParseTime(value); err == nil {
		retryAfter = max(when.Sub(c.now()), 0)
	}
	return errors.NewRateLimitErrorWithRetry("OMDb API request limit reached", retryAfter)
}

func (c *Client) params(q ratings.Query) url.Values {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	if q.IMDbID != "" {
		params.Set("i", q.IMDbID)
	} else {
		params.Set("t", strings.TrimSpace(q.Title))
		if q.Year > 0 {
			params.Set("y", strconv.Itoa(q.Year))
		}
	}
	switch q.Type {
	case "":
	case "series":
		params.Set("type", "series")
	default:
		params.Set("type", "movie")
	}
	return params
}

// Extract pulls the raw scores out of an OMDb payload.
//
// IMDb comes from imdbRating and must be numeric. Rotten Tomatoes is read from
// the named Ratings list first and tomatoMeter only as a last resort.
// Metacritic prefers Metascore and falls back to the named "Metacritic" entry
// ("74/100"). Present but non-numeric RT and Metacritic values are kept as is.
func Extract(resp *Response) ratings.Ratings {
	var raw ratings.Ratings
	if resp == nil {
		return raw
	}

	if numeric(resp.ImdbRating) {
		raw.IMDb = strings.TrimSpace(resp.ImdbRating)
	}

	if value := namedRating(resp.Ratings, SourceRottenTomatoes); ratings.Present(value) {
		raw.RottenTomatoes = value
	} else if ratings.Present(resp.TomatoMeter) {
		raw.RottenTomatoes = strings.TrimSpace(resp.TomatoMeter)
	}

	if ratings.Present(resp.Metascore) {
		raw.Metacritic = strings.TrimSpace(resp.Metascore)
	} else if value := namedRating(resp.Ratings, SourceMetacritic); ratings.Present(value) {
		raw.Metacritic = value
	}

	return raw
}

func namedRating(list []Rating, source string) string {
	for _, r := range list {
		if r.Source == source {
			return strings.TrimSpace(r.Value)
		}
	}
	return ""
}

func numeric(value string) bool {
	_, ok := ratings.ParseLeadingFloat(value)
	return ok
}
