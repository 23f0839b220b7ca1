// Package server exposes the add-on over HTTP.
package server

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/lepinkainen/posterratings/internal/metrics"
	"github.com/lepinkainen/posterratings/internal/ratelimit"
	"github.com/lepinkainen/posterratings/internal/stremio"
)

const (
	defaultAddr            = ":7000"
	defaultShutdownTimeout = 10 * time.Second
	cacheControl           = "public, max-age=60"
)

// Addon answers the add-on resources.
type Addon interface {
	Manifest() *stremio.Manifest
	Catalog(ctx context.Context, contentType, id string, extra url.Values) (*stremio.CatalogResponse, error)
	Meta(ctx context.Context, contentType, id string) (*stremio.MetaResponse, error)
}

// Server is the HTTP facade of the add-on.
type Server struct {
	addon           Addon
	addr            string
	limiter         *ratelimit.KeyedLimiter
	trustedProxies  []netip.Prefix
	logger          *slog.Logger
	silent          bool
	shutdownTimeout time.Duration
	handler         http.Handler
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithRateLimit limits every client IP to perMinute requests per minute.
// Zero or less disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = ratelimit.NewPerMinute(perMinute)
		} else {
			s.limiter = nil
		}
	}
}

// WithTrustedProxies lists the proxies (CIDRs or single addresses) whose
// X-Forwarded-For and X-Real-IP headers identify the client for rate
// limiting. Entries that do not parse are ignored.
func WithTrustedProxies(proxies []string) Option {
	return func(s *Server) {
		s.trustedProxies = nil
		for _, p := range proxies {
			if prefix, err := ParseProxy(p); err == nil {
				s.trustedProxies = append(s.trustedProxies, prefix)
			}
		}
	}
}

// ParseProxy parses a trusted proxy entry, either a CIDR or a bare address.
func ParseProxy(value string) (netip.Prefix, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "/") {
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// WithLogger sets the logger for access and error logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSilent suppresses the startup message.
func WithSilent(silent bool) Option {
	return func(s *Server) {
		s.silent = silent
	}
}

// WithShutdownTimeout bounds the graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New creates the server and builds its handler.
func New(addon Addon, opts ...Option) *Server {
	s := &Server{
		addon:           addon,
		addr:            defaultAddr,
		logger:          slog.Default(),
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.buildHandler()
	return s
}

// Handler returns the complete HTTP handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) buildHandler() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(metrics.Middleware)

	r.HandleFunc("/", s.handleManifest)
	r.HandleFunc("/manifest.json", s.handleManifest)
	r.HandleFunc("/manifest", s.handleManifest)
	r.HandleFunc("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.HandleFunc("/catalog/{type}/{id}", s.handleCatalog)
	r.HandleFunc("/catalog/{type}/{id}/{extra:.+}", s.handleCatalog)
	r.HandleFunc("/meta/{type}/{id}", s.handleMeta)
	for _, resource := range []string{"catalog", "meta"} {
		r.Handle("/"+resource, s.incomplete(resource))
		r.PathPrefix("/" + resource + "/").Handler(s.incomplete(resource))
	}

	r.NotFoundHandler = metrics.Middleware(http.HandlerFunc(s.handleNotFound))

	var h http.Handler = r
	h = s.rateLimit(h)
	h = cors(h)
	h = s.recoverer(h)
	h = s.accessLog(h)
	h = requestID(h)
	return h
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.RunCleanup(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	if !s.silent {
		s.logger.Info("Poster Ratings Overlay add-on listening", "addr", ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if stdErrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
