// Package metrics provides Prometheus instrumentation for the add-on.
//
// Metrics are registered on the default registry through promauto and
// exposed by Handler at GET /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// RatingsCache counts ratings cache lookups by result.
var RatingsCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "posterratings_ratings_cache_total",
	Help: "Ratings cache lookups by result.",
}, []string{"result"})

// UpstreamFailures counts failed calls to the catalog or ratings provider.
var UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "posterratings_upstream_failures_total",
	Help: "Failed upstream calls by upstream and operation.",
}, []string{"upstream", "op"})

// FallbackServed counts responses served from the bundled fallback table.
var FallbackServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "posterratings_fallback_served_total",
	Help: "Responses served from bundled fallback data.",
}, []string{"resource"})

// EnrichFailures counts records returned unmodified after a failure.
var EnrichFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "posterratings_enrich_failures_total",
	Help: "Records returned unmodified because enrichment failed.",
})

// OverlaysRendered counts poster overlays by outcome.
var OverlaysRendered = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "posterratings_overlays_rendered_total",
	Help: "Poster overlays rendered by outcome.",
}, []string{"outcome"})

// HTTPRequests counts HTTP requests by method, route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "posterratings_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "posterratings_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. It is meant for
// mux.Router.Use so the matched route template is known; the template keeps
// label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := routeTemplate(r)
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
