package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sahalkhalani/WeatherKI-backend/internal/cache"
)

func (s *Server) handleWeatherGet(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "location")
	location, err := url.PathUnescape(raw)
	if err != nil {
		location = raw
	}
	location = strings.TrimSpace(location)
	if location == "" {
		writeError(w, http.StatusBadRequest, "location must not be empty")
		return
	}

	snap, err := s.weather.Lookup(r.Context(), location)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type cacheClearResponse struct {
	Message   string `json:"message"`
	Removed   int    `json:"removed"`
	Timestamp string `json:"timestamp"`
}

// handleCacheClear sweeps expired entries out of both caches. Live
// entries are left alone.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed := s.weatherCache.RemoveExpired() + s.aiCache.RemoveExpired()
	writeJSON(w, http.StatusOK, cacheClearResponse{
		Message:   "expired cache entries removed",
		Removed:   removed,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type cacheEntryInfo struct {
	Key        string  `json:"key"`
	AgeSeconds float64 `json:"age_seconds"`
}

type cacheReport struct {
	TotalEntries   int              `json:"total_entries"`
	ValidEntries   int              `json:"valid_entries"`
	ExpiredEntries int              `json:"expired_entries"`
	TTLMinutes     float64          `json:"ttl_minutes"`
	Entries        []cacheEntryInfo `json:"entries"`
}

type cacheStatsResponse struct {
	Weather   cacheReport `json:"weather"`
	AI        cacheReport `json:"ai"`
	Timestamp string      `json:"timestamp"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Weather:   reportFor(s.weatherCache),
		AI:        reportFor(s.aiCache),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func reportFor[V any](c *cache.Cache[V]) cacheReport {
	stats := c.Stats()
	snap := c.Snapshot()
	entries := make([]cacheEntryInfo, 0, len(snap))
	for _, e := range snap {
		entries = append(entries, cacheEntryInfo{
			Key:        e.Key,
			AgeSeconds: e.Age.Seconds(),
		})
	}
	return cacheReport{
		TotalEntries:   stats.Total,
		ValidEntries:   stats.Valid,
		ExpiredEntries: stats.Expired,
		TTLMinutes:     stats.TTL.Minutes(),
		Entries:        entries,
	}
}
