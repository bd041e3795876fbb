// Package weather resolves location names to current conditions and
// keeps the derived snapshots in a TTL cache.
package weather

import (
	"context"
	"math"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/sahalkhalani/WeatherKI-backend/internal/apperr"
	"github.com/sahalkhalani/WeatherKI-backend/internal/cache"
	"github.com/sahalkhalani/WeatherKI-backend/internal/observability"
	"github.com/sahalkhalani/WeatherKI-backend/internal/openmeteo"
)

// Snapshot is the current weather for one location, rounded for
// display: temperature to the nearest whole degree, wind speed to one
// decimal.
type Snapshot struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	CityName    string  `json:"city_name"`
	Country     string  `json:"country"`
}

// Provider is the slice of the Open-Meteo client the service needs.
type Provider interface {
	Geocode(ctx context.Context, name string) (openmeteo.Location, error)
	CurrentWeather(ctx context.Context, lat, lon float64) (openmeteo.Current, error)
}

type Service struct {
	provider Provider
	cache    *cache.Cache[Snapshot]
	group    singleflight.Group
}

func NewService(provider Provider, c *cache.Cache[Snapshot]) *Service {
	return &Service{provider: provider, cache: c}
}

// NormalizeLocation maps user input to a cache key so that lookups
// differing only in case or surrounding whitespace share one entry.
func NormalizeLocation(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lookup returns the current weather for a location name, served from
// cache when fresh. Concurrent misses for the same key are collapsed
// into a single provider round trip.
func (s *Service) Lookup(ctx context.Context, location string) (Snapshot, error) {
	key := NormalizeLocation(location)
	if key == "" {
		return Snapshot{}, apperr.New(apperr.KindValidation, "location must not be empty")
	}

	if snap, ok := s.cache.Get(key); ok {
		observability.CacheHits.WithLabelValues("weather").Inc()
		return snap, nil
	}
	observability.CacheMisses.WithLabelValues("weather").Inc()

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetch(ctx, key)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (s *Service) fetch(ctx context.Context, key string) (Snapshot, error) {
	// Another flight may have filled the cache while we queued.
	if snap, ok := s.cache.Get(key); ok {
		return snap, nil
	}

	loc, err := s.provider.Geocode(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}
	cur, err := s.provider.CurrentWeather(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return Snapshot{}, err
	}

	snap := buildSnapshot(loc, cur)
	s.cache.Set(key, snap)
	return snap, nil
}

func buildSnapshot(loc openmeteo.Location, cur openmeteo.Current) Snapshot {
	condition, icon := classifyCode(cur.WeatherCode)
	return Snapshot{
		Temperature: math.Round(cur.Temperature),
		Condition:   condition,
		Humidity:    int(math.Round(cur.Humidity)),
		WindSpeed:   math.Round(cur.WindSpeed*10) / 10,
		Icon:        icon,
		Description: describeCode(cur.WeatherCode),
		CityName:    loc.Name,
		Country:     loc.Country,
	}
}
