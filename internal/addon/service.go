// Package addon is the transport independent add-on: it answers manifest,
// catalog and meta requests by proxying Cinemeta, falling back to the
// bundled table, and enriching every record with ratings.
package addon

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lepinkainen/posterratings/internal/enrich"
	"github.com/lepinkainen/posterratings/internal/errors"
	"github.com/lepinkainen/posterratings/internal/fallback"
	"github.com/lepinkainen/posterratings/internal/metrics"
	"github.com/lepinkainen/posterratings/internal/overlay"
	"github.com/lepinkainen/posterratings/internal/stremio"
)

// Manifest constants.
const (
	AddonID      = "com.cem.poster-ratings"
	AddonVersion = "1.0.0"
	AddonName    = "Poster Ratings Overlay"
	ContactEmail = "addons@example.com"

	addonDescription = "Experimental Stremio add-on that overlays IMDb, Rotten Tomatoes and Metacritic ratings on posters."
)

var manifestCatalogs = []stremio.ManifestCatalog{
	{Type: stremio.TypeMovie, ID: "top", Name: "Enriched · Popular Movies"},
	{Type: stremio.TypeSeries, ID: "top", Name: "Enriched · Popular Series"},
}

// CatalogProvider fetches catalogs and metas from the upstream provider.
type CatalogProvider interface {
	FetchCatalog(ctx context.Context, contentType, id string, extra url.Values) (*stremio.CatalogResponse, error)
	FetchMeta(ctx context.Context, contentType, id string) (*stremio.MetaResponse, error)
}

// Service implements the add-on resources.
type Service struct {
	provider          CatalogProvider
	engine            *enrich.Engine
	table             *fallback.Table
	ratingsConfigured bool
	cacheMaxAge       int
	logger            *slog.Logger
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithRatingsConfigured records whether a ratings API key is set. It drives
// behaviorHints.configurationRequired in the manifest.
func WithRatingsConfigured(configured bool) Option {
	return func(s *Service) {
		s.ratingsConfigured = configured
	}
}

// WithCacheMaxAge sets the cacheMaxAge used when upstream omits one.
func WithCacheMaxAge(seconds int) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.cacheMaxAge = seconds
		}
	}
}

// WithLogger sets the logger for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates the add-on service.
func NewService(provider CatalogProvider, engine *enrich.Engine, table *fallback.Table, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		engine:      engine,
		table:       table,
		cacheMaxAge: stremio.DefaultCacheMaxAge,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Manifest describes the add-on.
func (s *Service) Manifest() *stremio.Manifest {
	catalogs := make([]stremio.ManifestCatalog, len(manifestCatalogs))
	copy(catalogs, manifestCatalogs)

	return &stremio.Manifest{
		ID:          AddonID,
		Version:     AddonVersion,
		Name:        AddonName,
		Description: addonDescription,
		Resources:   []string{"catalog", "meta"},
		Types:       []string{stremio.TypeMovie, stremio.TypeSeries},
		Catalogs:    catalogs,
		IDPrefixes:  []string{"tt"},
		BehaviorHints: stremio.ManifestHints{
			Configurable:          true,
			ConfigurationRequired: !s.ratingsConfigured,
		},
		ContactEmail: ContactEmail,
		Background:   overlay.ManifestBackground(),
	}
}

// Catalog returns the enriched catalog. Upstream failures are answered from
// the fallback table; only an incomplete request is an error.
func (s *Service) Catalog(ctx context.Context, contentType, id string, extra url.Values) (*stremio.CatalogResponse, error) {
	contentType, id = strings.TrimSpace(contentType), strings.TrimSpace(id)
	if contentType == "" || id == "" {
		return nil, fmt.Errorf("%w: catalog type and id are required", errors.ErrInvalidRequest)
	}

	resp, err := s.provider.FetchCatalog(ctx, contentType, id, extra)
	if err != nil {
		s.logger.Warn("Catalog provider unavailable, serving fallback catalog",
			"type", contentType, "id", id, "error", err)
		metrics.FallbackServed.WithLabelValues("catalog").Inc()
		resp = s.table.Catalog(contentType, id)
	}

	out := &stremio.CatalogResponse{
		Metas:       s.engine.EnrichAll(ctx, compact(resp.Metas), contentType),
		CacheMaxAge: resp.CacheMaxAge,
		Name:        resp.Name,
		Poster:      resp.Poster,
	}
	if out.CacheMaxAge <= 0 {
		out.CacheMaxAge = s.cacheMaxAge
	}
	return out, nil
}

// Meta returns the enriched meta. It fails with ErrNotFound when neither
// upstream nor the fallback table knows the id.
func (s *Service) Meta(ctx context.Context, contentType, id string) (*stremio.MetaResponse, error) {
	contentType, id = strings.TrimSpace(contentType), strings.TrimSpace(id)
	if contentType == "" || id == "" {
		return nil, fmt.Errorf("%w: meta type and id are required", errors.ErrInvalidRequest)
	}

	resp, err := s.provider.FetchMeta(ctx, contentType, id)
	if err != nil {
		s.logger.Warn("Catalog provider unavailable, serving fallback meta",
			"type", contentType, "id", id, "error", err)
		metrics.FallbackServed.WithLabelValues("meta").Inc()
		resp = s.table.Meta(contentType, id)
	}

	if resp == nil || resp.Meta == nil {
		return nil, fmt.Errorf("%w: %s/%s", errors.ErrNotFound, contentType, id)
	}

	out := &stremio.MetaResponse{
		Meta:        s.engine.Enrich(ctx, resp.Meta, contentType),
		CacheMaxAge: resp.CacheMaxAge,
	}
	if out.CacheMaxAge <= 0 {
		out.CacheMaxAge = s.cacheMaxAge
	}
	return out, nil
}

// compact drops null entries from an upstream metas list.
func compact(metas []*stremio.Meta) []*stremio.Meta {
	out := make([]*stremio.Meta, 0, len(metas))
	for _, m := range metas {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
