// Package observability holds the Prometheus collectors and the HTTP
// middleware that feeds them.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherki_http_requests_total",
			Help: "Total requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherki_http_request_duration_seconds",
			Help:    "Request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherki_cache_hits_total",
			Help: "Cache hits by cache name.",
		},
		[]string{"cache"},
	)
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherki_cache_misses_total",
			Help: "Cache misses by cache name.",
		},
		[]string{"cache"},
	)
	CacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherki_cache_evictions_total",
			Help: "Expired entries removed, by cache name.",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, RequestDuration, CacheHits, CacheMisses, CacheEvictions)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts every request against its chi route pattern so path
// parameters do not blow up label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		RequestCounter.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
		RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
