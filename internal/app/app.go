// Package app wires the configured components into a runnable add-on.
package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/lepinkainen/posterratings/internal/addon"
	"github.com/lepinkainen/posterratings/internal/cache"
	"github.com/lepinkainen/posterratings/internal/cinemeta"
	"github.com/lepinkainen/posterratings/internal/config"
	"github.com/lepinkainen/posterratings/internal/enrich"
	"github.com/lepinkainen/posterratings/internal/fallback"
	"github.com/lepinkainen/posterratings/internal/omdb"
	"github.com/lepinkainen/posterratings/internal/ratelimit"
	"github.com/lepinkainen/posterratings/internal/server"
)

// App holds one instance of every component.
type App struct {
	Config   *config.Config
	Ratings  *omdb.Client
	Catalog  *cinemeta.Client
	Engine   *enrich.Engine
	Service  *addon.Service
	Fallback *fallback.Table

	store  cache.Store
	logger *slog.Logger
}

// New builds the components described by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	table, err := fallback.Load()
	if err != nil {
		return nil, err
	}

	store, err := cache.New(cfg.Cache.Backend)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	ratings := omdb.NewClient(cfg.OMDb.APIKey,
		omdb.WithHTTPClient(httpClient),
		omdb.WithBaseURL(cfg.OMDb.BaseURL),
		omdb.WithUserAgent(cfg.HTTP.UserAgent),
		omdb.WithRateLimiter(ratelimit.New("OMDb", cfg.OMDb.RequestsPerSecond)),
		omdb.WithStore(store),
		omdb.WithLimitCooldown(cfg.OMDb.LimitCooldown),
	)

	catalog := cinemeta.NewClient(
		cinemeta.WithHTTPClient(httpClient),
		cinemeta.WithBaseURL(cfg.Cinemeta.BaseURL),
		cinemeta.WithUserAgent(cfg.HTTP.UserAgent),
	)

	engine := enrich.NewEngine(ratings, table,
		enrich.WithConcurrency(cfg.Enrich.Concurrency),
		enrich.WithLogger(logger),
	)

	service := addon.NewService(catalog, engine, table,
		addon.WithRatingsConfigured(cfg.HasOMDbKey()),
		addon.WithCacheMaxAge(cfg.Server.CacheMaxAge),
		addon.WithLogger(logger),
	)

	return &App{
		Config:   cfg,
		Ratings:  ratings,
		Catalog:  catalog,
		Engine:   engine,
		Service:  service,
		Fallback: table,
		store:    store,
		logger:   logger,
	}, nil
}

// Server returns the HTTP facade for the service.
func (a *App) Server() *server.Server {
	return server.New(a.Service,
		server.WithAddr(a.Config.Addr()),
		server.WithRateLimit(a.Config.Server.RateLimitPerMinute),
		server.WithTrustedProxies(a.Config.Server.TrustedProxies),
		server.WithLogger(a.logger),
		server.WithSilent(a.Config.Server.Silent),
		server.WithShutdownTimeout(a.Config.Server.ShutdownTimeout),
	)
}

// WarnIfUnconfigured logs the missing-key warning unless the server is silent.
func (a *App) WarnIfUnconfigured() {
	if a.Config.HasOMDbKey() || a.Config.Server.Silent {
		return
	}
	a.logger.Warn("OMDB_API_KEY is not set, posters use bundled fallback ratings only")
}

// Close releases the cache store.
func (a *App) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
