package addon

import (
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/lepinkainen/posterratings/internal/enrich"
	"github.com/lepinkainen/posterratings/internal/errors"
	"github.com/lepinkainen/posterratings/internal/fallback"
	"github.com/lepinkainen/posterratings/internal/overlay"
	"github.com/lepinkainen/posterratings/internal/stremio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	catalog *stremio.CatalogResponse
	meta    *stremio.MetaResponse
	err     error

	gotExtra url.Values
}

func (p *stubProvider) FetchCatalog(_ context.Context, _, _ string, extra url.Values) (*stremio.CatalogResponse, error) {
	p.gotExtra = extra
	if p.err != nil {
		return nil, p.err
	}
	return p.catalog, nil
}

func (p *stubProvider) FetchMeta(context.Context, string, string) (*stremio.MetaResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.meta, nil
}

func newTestService(provider CatalogProvider, opts ...Option) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	table := fallback.MustLoad()
	engine := enrich.NewEngine(nil, table, enrich.WithLogger(logger))
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewService(provider, engine, table, opts...)
}

var errUpstream = errors.NewUpstreamError("catalog", "https://cinemeta.example/catalog/movie/top.json", 503, nil)

func TestManifest(t *testing.T) {
	svc := newTestService(&stubProvider{})

	m := svc.Manifest()
	assert.Equal(t, "com.cem.poster-ratings", m.ID)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, "Poster Ratings Overlay", m.Name)
	assert.Equal(t, []string{"catalog", "meta"}, m.Resources)
	assert.Equal(t, []string{"movie", "series"}, m.Types)
	assert.Equal(t, []string{"tt"}, m.IDPrefixes)
	require.Len(t, m.Catalogs, 2)
	assert.Equal(t, stremio.ManifestCatalog{Type: "movie", ID: "top", Name: "Enriched · Popular Movies"}, m.Catalogs[0])
	assert.True(t, m.BehaviorHints.Configurable)
	assert.True(t, m.BehaviorHints.ConfigurationRequired)
	assert.True(t, strings.HasPrefix(m.Background, overlay.DataURIPrefix))

	configured := newTestService(&stubProvider{}, WithRatingsConfigured(true)).Manifest()
	assert.False(t, configured.BehaviorHints.ConfigurationRequired)
}

func TestCatalogProxiesUpstream(t *testing.T) {
	provider := &stubProvider{
		catalog: &stremio.CatalogResponse{
			Metas: []*stremio.Meta{
				{ID: "tt1375666", Type: "movie", Name: "Inception", Poster: "https://images.example/inception.jpg"},
				nil,
				{ID: "tt0000001", Type: "movie", Name: "Unrated"},
			},
			CacheMaxAge: 3600,
			Name:        "Popular",
		},
	}
	svc := newTestService(provider)

	extra := url.Values{"genre": {"Drama"}}
	resp, err := svc.Catalog(context.Background(), "movie", "top", extra)
	require.NoError(t, err)

	assert.Equal(t, extra, provider.gotExtra)
	assert.Equal(t, 3600, resp.CacheMaxAge)
	assert.Equal(t, "Popular", resp.Name)
	require.Len(t, resp.Metas, 2)
	assert.True(t, strings.HasPrefix(resp.Metas[0].Poster, overlay.DataURIPrefix))
	assert.Equal(t, "Unrated", resp.Metas[1].Name)
	assert.Empty(t, resp.Metas[1].Description)
}

func TestCatalogDefaultsCacheMaxAge(t *testing.T) {
	svc := newTestService(&stubProvider{catalog: &stremio.CatalogResponse{}}, WithCacheMaxAge(120))

	resp, err := svc.Catalog(context.Background(), "movie", "top", nil)
	require.NoError(t, err)
	assert.Equal(t, 120, resp.CacheMaxAge)
	assert.NotNil(t, resp.Metas)
	assert.Empty(t, resp.Metas)
}

func TestCatalogFallsBack(t *testing.T) {
	svc := newTestService(&stubProvider{err: errUpstream})

	resp, err := svc.Catalog(context.Background(), "movie", "top", nil)
	require.NoError(t, err)

	require.Len(t, resp.Metas, 2)
	assert.Equal(t, "Inception", resp.Metas[0].Name)
	assert.True(t, strings.HasSuffix(resp.Metas[0].Description,
		"Ratings · IMDb 8.8 · Rotten Tomatoes 87% · Metacritic 74/100"))
	assert.Equal(t, stremio.DefaultCacheMaxAge, resp.CacheMaxAge)

	unknown, err := svc.Catalog(context.Background(), "movie", "imdbRating", nil)
	require.NoError(t, err)
	assert.Empty(t, unknown.Metas)
}

func TestCatalogRejectsIncompleteRequest(t *testing.T) {
	svc := newTestService(&stubProvider{})

	_, err := svc.Catalog(context.Background(), "movie", " ", nil)
	assert.True(t, stdErrors.Is(err, errors.ErrInvalidRequest))
}

func TestMeta(t *testing.T) {
	provider := &stubProvider{
		meta: &stremio.MetaResponse{
			Meta: &stremio.Meta{ID: "tt0903747", Type: "series", Name: "Breaking Bad", Description: "Chemistry."},
		},
	}
	svc := newTestService(provider)

	resp, err := svc.Meta(context.Background(), "series", "tt0903747")
	require.NoError(t, err)
	assert.Equal(t, stremio.DefaultCacheMaxAge, resp.CacheMaxAge)
	assert.Equal(t, "Chemistry.\n\nRatings · IMDb 9.5 · Rotten Tomatoes 96% · Metacritic 87/100", resp.Meta.Description)
}

func TestMetaNotFound(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{name: "upstream has no meta", provider: &stubProvider{meta: &stremio.MetaResponse{}}},
		{name: "upstream down and no fallback", provider: &stubProvider{err: errUpstream}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.provider).Meta(context.Background(), "movie", "tt9999999")
			assert.True(t, stdErrors.Is(err, errors.ErrNotFound))
		})
	}
}

func TestMetaFallsBack(t *testing.T) {
	svc := newTestService(&stubProvider{err: errUpstream})

	resp, err := svc.Meta(context.Background(), "movie", "tt0816692")
	require.NoError(t, err)
	assert.Equal(t, "Interstellar", resp.Meta.Name)
	assert.True(t, strings.HasPrefix(resp.Meta.Poster, overlay.DataURIPrefix))
}
