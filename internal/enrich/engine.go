// Package enrich decorates catalog records with ratings: a badge overlay on
// the poster, a summary line in the description and the structured bundle
// for clients that render their own badges.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/posterratings/internal/fallback"
	"github.com/lepinkainen/posterratings/internal/metrics"
	"github.com/lepinkainen/posterratings/internal/overlay"
	"github.com/lepinkainen/posterratings/internal/ratings"
	"github.com/lepinkainen/posterratings/internal/stremio"
	"github.com/sourcegraph/conc/pool"
)

// DefaultConcurrency is the number of records enriched at once in a batch.
const DefaultConcurrency = 4

// Keys written to the record for downstream consumers.
const (
	ExtraRatingsKey       = "ratings"
	HintOverlayRatingsKey = "overlayRatings"
	HintRatingSummaryKey  = "ratingSummary"
)

// RatingsSource looks up live ratings. A nil bundle with a nil error means
// the title has no ratings.
type RatingsSource interface {
	Enabled() bool
	GetRatings(ctx context.Context, q ratings.Query) (*ratings.Ratings, error)
}

// Renderer composes the poster overlay.
type Renderer func(posterURL string, r *ratings.Ratings) (string, error)

// Engine enriches records with live or bundled ratings.
type Engine struct {
	source      RatingsSource
	table       *fallback.Table
	render      Renderer
	concurrency int
	logger      *slog.Logger
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithConcurrency sets the batch worker limit. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRenderer replaces the overlay renderer.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.render = r
		}
	}
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine. source may be nil, in which case only the
// fallback table and the record's own imdbRating are used.
func NewEngine(source RatingsSource, table *fallback.Table, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		table:       table,
		render:      overlay.Render,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Concurrency returns the batch worker limit.
func (e *Engine) Concurrency() int {
	return e.concurrency
}

// Enrich returns an enriched copy of meta. It never fails: on any error,
// panics included, the original record is returned unmodified and a warning
// is logged.
func (e *Engine) Enrich(ctx context.Context, meta *stremio.Meta, contentType string) (out *stremio.Meta) {
	if meta == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.fail(meta, contentType, fmt.Errorf("panic: %v", r))
			out = meta
		}
	}()

	enriched, err := e.enrich(ctx, meta, contentType)
	if err != nil {
		e.fail(meta, contentType, err)
		return meta
	}
	return enriched
}

// EnrichAll enriches metas with at most Concurrency records in flight. The
// output has the same length and order as the input; a failed record keeps
// its original value.
func (e *Engine) EnrichAll(ctx context.Context, metas []*stremio.Meta, contentType string) []*stremio.Meta {
	out := make([]*stremio.Meta, len(metas))
	if len(metas) == 0 {
		return out
	}

	p := pool.New().WithMaxGoroutines(min(e.concurrency, len(metas)))
	for i, meta := range metas {
		p.Go(func() {
			out[i] = e.Enrich(ctx, meta, contentType)
		})
	}
	p.Wait()

	return out
}

func (e *Engine) enrich(ctx context.Context, meta *stremio.Meta, contentType string) (*stremio.Meta, error) {
	if contentType == "" {
		contentType = meta.Type
	}

	query := ResolveQuery(meta, contentType)
	bundle, err := e.resolveRatings(ctx, meta, contentType, query)
	if err != nil {
		return nil, err
	}

	out := meta.Clone()
	if bundle.IsEmpty() {
		return out, nil
	}

	summary := ratings.Summary(bundle)

	if base := basePoster(meta); base != "" && !strings.HasPrefix(meta.Poster, overlay.DataURIPrefix) {
		uri, err := e.render(base, bundle)
		switch {
		case err != nil:
			metrics.OverlaysRendered.WithLabelValues("failed").Inc()
			e.logger.Warn("Poster overlay failed, keeping original poster",
				"type", contentType, "id", meta.ID, "error", err)
		case uri != "":
			metrics.OverlaysRendered.WithLabelValues("ok").Inc()
			out.Poster = uri
		}
	}

	out.Description = ratings.AppendSummary(meta.Description, summary)

	if out.Extra == nil {
		out.Extra = make(map[string]any)
	}
	out.Extra[ExtraRatingsKey] = *bundle

	if out.BehaviorHints == nil {
		out.BehaviorHints = make(map[string]any)
	}
	out.BehaviorHints[HintOverlayRatingsKey] = *bundle
	out.BehaviorHints[HintRatingSummaryKey] = summary

	return out, nil
}

// resolveRatings picks the live bundle, then the bundled fallback, then the
// record's own imdbRating for a missing IMDb score.
func (e *Engine) resolveRatings(ctx context.Context, meta *stremio.Meta, contentType string, q ratings.Query) (*ratings.Ratings, error) {
	var bundle *ratings.Ratings

	if e.source != nil && e.source.Enabled() && !q.IsZero() {
		live, err := e.source.GetRatings(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("ratings lookup: %w", err)
		}
		bundle = live
	}

	if bundle.IsEmpty() {
		bundle = e.table.Ratings(contentType, fallbackID(meta, q))
	}

	own := meta.RatingValue()
	if own == "" {
		return bundle, nil
	}
	merged := ratings.Ratings{IMDb: own}
	if bundle != nil {
		merged = *bundle
		if merged.IMDb == "" {
			merged.IMDb = own
		}
	}
	return ratings.Normalize(merged), nil
}

func (e *Engine) fail(meta *stremio.Meta, contentType string, err error) {
	metrics.EnrichFailures.Inc()
	e.logger.Warn("Enrichment failed, returning original record",
		"type", contentType, "id", meta.ID, "imdb_id", ResolveIMDbID(meta), "error", err)
}

// ResolveIMDbID returns the first of imdb_id, imdbId and id that looks like
// an IMDb id, or "".
func ResolveIMDbID(meta *stremio.Meta) string {
	for _, candidate := range []string{meta.IMDbID, meta.IMDbIDAlt, meta.ID} {
		candidate = strings.TrimSpace(candidate)
		if ratings.IsIMDbID(candidate) {
			return candidate
		}
	}
	return ""
}

// ResolveQuery builds the ratings lookup for meta: by IMDb id when one is
// known, otherwise by name and release year.
func ResolveQuery(meta *stremio.Meta, contentType string) ratings.Query {
	if contentType == "" {
		contentType = meta.Type
	}
	if id := ResolveIMDbID(meta); id != "" {
		return ratings.Query{IMDbID: id, Type: contentType}
	}
	return ratings.Query{
		Title: strings.TrimSpace(meta.Name),
		Year:  meta.YearValue(),
		Type:  contentType,
	}
}

func fallbackID(meta *stremio.Meta, q ratings.Query) string {
	if q.IMDbID != "" {
		return q.IMDbID
	}
	return meta.ID
}

func basePoster(meta *stremio.Meta) string {
	if p := strings.TrimSpace(meta.Poster); p != "" {
		return p
	}
	return strings.TrimSpace(meta.Background)
}
