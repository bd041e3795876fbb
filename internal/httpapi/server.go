// Package httpapi exposes the REST surface: widget CRUD, weather
// lookups, cache maintenance and the AI assist endpoints.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sahalkhalani/WeatherKI-backend/internal/apperr"
	"github.com/sahalkhalani/WeatherKI-backend/internal/assist"
	"github.com/sahalkhalani/WeatherKI-backend/internal/cache"
	"github.com/sahalkhalani/WeatherKI-backend/internal/config"
	"github.com/sahalkhalani/WeatherKI-backend/internal/observability"
	"github.com/sahalkhalani/WeatherKI-backend/internal/store"
	"github.com/sahalkhalani/WeatherKI-backend/internal/weather"
)

type Server struct {
	cfg          config.Config
	repo         *store.Repo
	weather      *weather.Service
	assist       *assist.Service
	weatherCache *cache.Cache[weather.Snapshot]
	aiCache      *cache.Cache[string]
	startedAt    time.Time
}

func NewServer(
	cfg config.Config,
	repo *store.Repo,
	ws *weather.Service,
	as *assist.Service,
	weatherCache *cache.Cache[weather.Snapshot],
	aiCache *cache.Cache[string],
) *Server {
	return &Server{
		cfg:          cfg,
		repo:         repo,
		weather:      ws,
		assist:       as,
		weatherCache: weatherCache,
		aiCache:      aiCache,
		startedAt:    time.Now(),
	}
}

// Routes assembles the middleware chain and the full route table. The
// rate limiter covers everything under /api; /metrics stays outside so
// scrapes never count against a client's budget.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlationID)
	r.Use(middleware.Logger)
	r.Use(s.recoverer)
	r.Use(observability.Middleware)

	r.Method(http.MethodGet, "/metrics", observability.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(s.cfg.BodyLimitBytes))
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.cfg.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"},
			ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(httprate.Limit(
			s.cfg.RateLimitMax,
			s.cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			}),
		))

		r.Route("/api", func(api chi.Router) {
			api.Get("/health", s.handleHealth)

			api.Route("/widgets", func(wr chi.Router) {
				wr.Get("/", s.handleWidgetsList)
				wr.Post("/", s.handleWidgetsCreate)
				wr.Get("/{widget_id}", s.handleWidgetsGet)
				wr.Delete("/{widget_id}", s.handleWidgetsDelete)
			})

			api.Route("/weather", func(wr chi.Router) {
				wr.Post("/cache/clear", s.handleCacheClear)
				wr.Get("/cache/stats", s.handleCacheStats)

				wr.Route("/ai", func(ar chi.Router) {
					ar.Post("/chat", s.handleAssistChat)
					ar.Post("/summary", s.handleAssistSummary)
					ar.Post("/suggestions", s.handleAssistSuggestions)
					ar.Post("/trivia", s.handleAssistTrivia)
				})

				wr.Get("/{location}", s.handleWeatherGet)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

type healthResponse struct {
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Environment   string  `json:"environment"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: math.Round(time.Since(s.startedAt).Seconds()),
		Environment:   s.cfg.Environment,
	})
}

type jsonErr struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsonErr{Error: msg, Code: status})
}

// writeAppError maps a service error onto its HTTP status. Downstream
// failures are logged here with request context; internal detail only
// reaches the body outside production.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	msg := apperr.Message(err)

	switch apperr.KindOf(err) {
	case apperr.KindUnavailable, apperr.KindTimeout:
		slog.Warn("downstream failure", "method", r.Method, "path", r.URL.Path, "error", err)
	case apperr.KindInternal:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if !s.cfg.Production() {
			msg = err.Error()
		}
	}
	writeError(w, status, msg)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
