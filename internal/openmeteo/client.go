// Package openmeteo is a thin client for the Open-Meteo geocoding and
// forecast APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sahalkhalani/WeatherKI-backend/internal/apperr"
)

const requestTimeout = 10 * time.Second

type Client struct {
	geoBaseURL      string
	forecastBaseURL string
	apiKey          string
	httpClient      *http.Client
}

type httpStatusError struct {
	status int
	body   string
}

func (e httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

// Location is a geocoding result.
type Location struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

// Current holds the current conditions for a coordinate pair, in the
// units Open-Meteo defaults to (°C, %, km/h).
type Current struct {
	Temperature float64
	Humidity    float64
	WindSpeed   float64
	WeatherCode int
}

// New builds a client against the given base URLs, e.g.
// https://geocoding-api.open-meteo.com and https://api.open-meteo.com.
// The API key is optional; the free tier works without one.
func New(geoBaseURL, forecastBaseURL, apiKey string) *Client {
	return &Client{
		geoBaseURL:      geoBaseURL,
		forecastBaseURL: forecastBaseURL,
		apiKey:          apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Geocode resolves a location name to its best-matching coordinate
// pair. An empty result set maps to a not-found error.
func (c *Client) Geocode(ctx context.Context, name string) (Location, error) {
	u := fmt.Sprintf("%s/v1/search?name=%s&count=1", c.geoBaseURL, url.QueryEscape(name))
	if c.apiKey != "" {
		u += "&apikey=" + url.QueryEscape(c.apiKey)
	}

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return Location{}, fmt.Errorf("geocoding %q: %w", name, err)
	}
	if len(payload.Results) == 0 {
		return Location{}, apperr.Newf(apperr.KindNotFound, "location %q not found", name)
	}

	r := payload.Results[0]
	return Location{Name: r.Name, Country: r.Country, Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

// CurrentWeather fetches the current conditions for a coordinate pair.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (Current, error) {
	u := fmt.Sprintf(
		"%s/v1/forecast?latitude=%f&longitude=%f&current=temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code",
		c.forecastBaseURL, lat, lon,
	)
	if c.apiKey != "" {
		u += "&apikey=" + url.QueryEscape(c.apiKey)
	}

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return Current{}, fmt.Errorf("fetching current weather: %w", err)
	}

	cur := payload.Current
	return Current{
		Temperature: cur.Temperature,
		Humidity:    cur.Humidity,
		WindSpeed:   cur.WindSpeed,
		WeatherCode: cur.WeatherCode,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "building weather request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.KindTimeout, "weather provider timed out", err)
		}
		return apperr.Wrap(apperr.KindUnavailable, "weather provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Wrap(apperr.KindUnavailable, "weather provider error",
			httpStatusError{status: resp.StatusCode, body: string(body)})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "weather provider sent an invalid response", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
