package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sahalkhalani/WeatherKI-backend/internal/assist"
	"github.com/sahalkhalani/WeatherKI-backend/internal/cache"
	"github.com/sahalkhalani/WeatherKI-backend/internal/config"
	"github.com/sahalkhalani/WeatherKI-backend/internal/gemini"
	"github.com/sahalkhalani/WeatherKI-backend/internal/openmeteo"
	"github.com/sahalkhalani/WeatherKI-backend/internal/store"
	"github.com/sahalkhalani/WeatherKI-backend/internal/weather"
)

// fakeUpstreams serves the Open-Meteo and Gemini APIs from one test
// server so the full stack can run against it.
type fakeUpstreams struct {
	geocodeCalls atomic.Int32
	geminiCalls  atomic.Int32

	geocodeStatus  int
	geocodeBody    string
	forecastStatus int
	forecastBody   string
	geminiStatus   int
	geminiText     string
}

func newFakeUpstreams(t *testing.T) (*fakeUpstreams, *httptest.Server) {
	t.Helper()
	f := &fakeUpstreams{
		geocodeStatus:  http.StatusOK,
		geocodeBody:    `{"results":[{"name":"Berlin","country":"Germany","latitude":52.52,"longitude":13.41}]}`,
		forecastStatus: http.StatusOK,
		forecastBody:   `{"current":{"temperature_2m":21.6,"relative_humidity_2m":65,"wind_speed_10m":12.34,"weather_code":3}}`,
		geminiStatus:   http.StatusOK,
		geminiText:     "Generated by the model.",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		f.geocodeCalls.Add(1)
		w.WriteHeader(f.geocodeStatus)
		fmt.Fprint(w, f.geocodeBody)
	})
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.forecastStatus)
		fmt.Fprint(w, f.forecastBody)
	})
	mux.HandleFunc("/v1beta/", func(w http.ResponseWriter, r *http.Request) {
		f.geminiCalls.Add(1)
		if f.geminiStatus != http.StatusOK {
			http.Error(w, `{"error":{"message":"backend exploded"}}`, f.geminiStatus)
			return
		}
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, f.geminiText)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestRepo(t *testing.T) *store.Repo {
	t.Helper()
	// Use a unique in-memory DB per test to avoid cross-test contamination.
	dsn := "file:memdb_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := store.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := store.New(db)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return repo
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *fakeUpstreams) {
	t.Helper()
	fakes, backend := newFakeUpstreams(t)

	cfg := config.Config{
		Port:             "0",
		Environment:      "test",
		FrontendURL:      "http://localhost:5173",
		CacheTTL:         5 * time.Minute,
		GeocodingBaseURL: backend.URL,
		ForecastBaseURL:  backend.URL,
		GeminiAPIKey:     "test-key",
		GeminiModel:      "test-model",
		GeminiBaseURL:    backend.URL,
		RateLimitWindow:  time.Minute,
		RateLimitMax:     1000,
		BodyLimitBytes:   1 << 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	repo := newTestRepo(t)

	weatherCache := cache.New[weather.Snapshot](cfg.CacheTTL, cache.WithoutSweep())
	t.Cleanup(weatherCache.Stop)
	aiCache := cache.New[string](cfg.CacheTTL, cache.WithoutSweep())
	t.Cleanup(aiCache.Stop)

	weatherSvc := weather.NewService(openmeteo.New(cfg.GeocodingBaseURL, cfg.ForecastBaseURL, cfg.OpenMeteoAPIKey), weatherCache)
	assistSvc := assist.NewService(gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel), weatherSvc, aiCache)

	srv := NewServer(cfg, repo, weatherSvc, assistSvc, weatherCache, aiCache)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, fakes
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode json: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	var payload any
	_ = json.NewDecoder(res.Body).Decode(&payload)
	return res, payload
}

func asMap(t *testing.T, payload any) map[string]any {
	t.Helper()
	m, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload is %T, want an object: %v", payload, payload)
	}
	return m
}

func TestWidgets_CreateListGetDelete(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/widgets", map[string]any{"location": "  Berlin  "})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d payload=%v", res.StatusCode, payload)
	}
	created := asMap(t, payload)
	id, _ := created["id"].(string)
	if !store.ValidID(id) {
		t.Fatalf("created id = %q, want 24-hex", id)
	}
	if created["location"] != "Berlin" {
		t.Fatalf("location = %v, want trimmed Berlin", created["location"])
	}
	if created["created_at"] == nil || created["updated_at"] == nil {
		t.Fatalf("timestamps missing: %v", created)
	}

	res, payload = doJSON(t, c, http.MethodGet, ts.URL+"/api/widgets", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status=%d", res.StatusCode)
	}
	list, ok := payload.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("list payload = %v, want one widget", payload)
	}

	res, payload = doJSON(t, c, http.MethodGet, ts.URL+"/api/widgets/"+id, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status=%d payload=%v", res.StatusCode, payload)
	}

	res, payload = doJSON(t, c, http.MethodDelete, ts.URL+"/api/widgets/"+id, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status=%d payload=%v", res.StatusCode, payload)
	}
	deleted := asMap(t, payload)
	if deleted["message"] != "widget deleted" {
		t.Fatalf("delete message = %v", deleted["message"])
	}
	dw := asMap(t, deleted["deleted_widget"])
	if dw["id"] != id {
		t.Fatalf("deleted_widget.id = %v, want %s", dw["id"], id)
	}

	res, _ = doJSON(t, c, http.MethodGet, ts.URL+"/api/widgets/"+id, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status=%d, want 404", res.StatusCode)
	}
}

func TestWidgets_CreateValidation(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	cases := []any{
		map[string]any{"location": " a "},                  // too short after trim
		map[string]any{"location": strings.Repeat("x", 101)}, // too long
		map[string]any{"location": "   "},
		map[string]any{"location": 42}, // wrong type
		map[string]any{},
	}
	for _, body := range cases {
		res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/widgets", body)
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("create %v status=%d payload=%v, want 400", body, res.StatusCode, payload)
		}
		m := asMap(t, payload)
		if m["code"] != float64(http.StatusBadRequest) {
			t.Errorf("error body missing code: %v", m)
		}
	}
}

func TestWidgets_DuplicateLocation(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	res, _ := doJSON(t, c, http.MethodPost, ts.URL+"/api/widgets", map[string]any{"location": "Paris"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("first create status=%d", res.StatusCode)
	}
	res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/widgets", map[string]any{"location": "  paris "})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create status=%d payload=%v, want 409", res.StatusCode, payload)
	}
}

func TestWidgets_MalformedID(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	for _, id := range []string{"abc", "507f1f77bcf86cd79943901g", "507f1f77bcf86cd79943901"} {
		res, _ := doJSON(t, c, http.MethodGet, ts.URL+"/api/widgets/"+id, nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("get %q status=%d, want 400", id, res.StatusCode)
		}
		res, _ = doJSON(t, c, http.MethodDelete, ts.URL+"/api/widgets/"+id, nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("delete %q status=%d, want 400", id, res.StatusCode)
		}
	}

	res, _ := doJSON(t, c, http.MethodGet, ts.URL+"/api/widgets/"+store.NewID(), nil)
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("get well-formed missing id status=%d, want 404", res.StatusCode)
	}
}

func TestWeather_Lookup(t *testing.T) {
	ts, fakes := newTestServer(t, nil)
	c := ts.Client()

	res, payload := doJSON(t, c, http.MethodGet, ts.URL+"/api/weather/Berlin", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("weather status=%d payload=%v", res.StatusCode, payload)
	}
	snap := asMap(t, payload)
	if snap["temperature"] != float64(22) {
		t.Errorf("temperature = %v, want 22", snap["temperature"])
	}
	if snap["wind_speed"] != 12.3 {
		t.Errorf("wind_speed = %v, want 12.3", snap["wind_speed"])
	}
	if snap["city_name"] != "Berlin" || snap["country"] != "Germany" {
		t.Errorf("city/country = %v/%v", snap["city_name"], snap["country"])
	}
	if snap["description"] != "Overcast" || snap["icon"] != "cloud_sun" {
		t.Errorf("description/icon = %v/%v", snap["description"], snap["icon"])
	}

	// Same location in different casing is served from cache.
	res, _ = doJSON(t, c, http.MethodGet, ts.URL+"/api/weather/%20BERLIN%20", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second weather status=%d", res.StatusCode)
	}
	if got := fakes.geocodeCalls.Load(); got != 1 {
		t.Fatalf("geocode called %d times, want 1", got)
	}
}

func TestWeather_ErrorMapping(t *testing.T) {
	t.Run("location not found", func(t *testing.T) {
		ts, fakes := newTestServer(t, nil)
		fakes.geocodeBody = `{"results":[]}`
		res, payload := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/weather/Atlantis", nil)
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("status=%d payload=%v, want 404", res.StatusCode, payload)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		ts, fakes := newTestServer(t, nil)
		fakes.forecastStatus = http.StatusInternalServerError
		res, payload := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/weather/Berlin", nil)
		if res.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status=%d payload=%v, want 503", res.StatusCode, payload)
		}
	})

	t.Run("empty location", func(t *testing.T) {
		ts, _ := newTestServer(t, nil)
		res, payload := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/weather/%20%20", nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("status=%d payload=%v, want 400", res.StatusCode, payload)
		}
	})
}

func TestAssistChat_GeneratesAndCaches(t *testing.T) {
	ts, fakes := newTestServer(t, nil)
	c := ts.Client()
	body := map[string]any{"question": "Do I need an umbrella?", "locations": []string{"Berlin"}}

	res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/chat", body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat status=%d payload=%v", res.StatusCode, payload)
	}
	if asMap(t, payload)["response"] != "Generated by the model." {
		t.Fatalf("chat response = %v", payload)
	}

	res, payload = doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/chat", body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second chat status=%d", res.StatusCode)
	}
	if asMap(t, payload)["response"] != "Generated by the model." {
		t.Fatalf("cached chat response = %v", payload)
	}
	if got := fakes.geminiCalls.Load(); got != 1 {
		t.Fatalf("gemini called %d times, want 1", got)
	}
}

func TestAssistChat_FallbackOnProviderFailure(t *testing.T) {
	ts, fakes := newTestServer(t, nil)
	fakes.geminiStatus = http.StatusInternalServerError

	res, payload := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/weather/ai/chat",
		map[string]any{"question": "How is it outside?", "locations": []string{"Berlin"}})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat status=%d payload=%v, want 200 despite provider outage", res.StatusCode, payload)
	}
	text, _ := asMap(t, payload)["response"].(string)
	if !strings.Contains(text, "temporarily unavailable") {
		t.Fatalf("fallback response = %q", text)
	}
	if !strings.Contains(text, "Berlin") {
		t.Fatalf("fallback response lacks gathered conditions: %q", text)
	}
}

func TestAssistChat_Validation(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/chat", map[string]any{"question": "  "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d payload=%v, want 400", res.StatusCode, payload)
	}
	if asMap(t, payload)["error"] != "question is required" {
		t.Fatalf("error = %v", payload)
	}
}

func TestAssistSummary_Validation(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	for _, body := range []any{
		map[string]any{},
		map[string]any{"locations": []string{}},
		map[string]any{"locations": []string{"  "}},
	} {
		res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/summary", body)
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("summary %v status=%d payload=%v, want 400", body, res.StatusCode, payload)
		}
	}

	res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/summary",
		map[string]any{"locations": []string{"Berlin", "Paris"}})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("summary status=%d payload=%v", res.StatusCode, payload)
	}
	if asMap(t, payload)["summary"] == "" {
		t.Fatal("summary is empty")
	}
}

func TestAssistSuggestions(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/suggestions", map[string]any{"interests": " "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d payload=%v, want 400", res.StatusCode, payload)
	}

	res, payload = doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/suggestions",
		map[string]any{"interests": "hiking", "current_locations": []string{"Berlin"}})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status=%d payload=%v", res.StatusCode, payload)
	}
	if asMap(t, payload)["suggestions"] != "Generated by the model." {
		t.Fatalf("suggestions = %v", payload)
	}
}

func TestAssistTrivia(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	res, payload := doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/ai/trivia", map[string]any{"location": "Berlin"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("trivia status=%d payload=%v", res.StatusCode, payload)
	}
	m := asMap(t, payload)
	if m["trivia"] != "Generated by the model." {
		t.Fatalf("trivia = %v", m["trivia"])
	}
	snap := asMap(t, m["weather"])
	if snap["city_name"] != "Berlin" {
		t.Fatalf("trivia weather = %v", snap)
	}
}

func TestAssistTrivia_WeatherUnavailable(t *testing.T) {
	ts, fakes := newTestServer(t, nil)
	fakes.geocodeBody = `{"results":[]}`

	res, payload := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/weather/ai/trivia", map[string]any{"location": "Atlantis"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("trivia status=%d payload=%v, want 200 with null weather", res.StatusCode, payload)
	}
	m := asMap(t, payload)
	if m["weather"] != nil {
		t.Fatalf("weather = %v, want null", m["weather"])
	}
	if m["trivia"] == "" {
		t.Fatal("trivia text missing")
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	res, payload := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status=%d", res.StatusCode)
	}
	m := asMap(t, payload)
	if m["status"] != "ok" || m["environment"] != "test" {
		t.Fatalf("health payload = %v", m)
	}
	if _, ok := m["uptime_seconds"].(float64); !ok {
		t.Fatalf("uptime_seconds missing: %v", m)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	res, payload := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/nope", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", res.StatusCode)
	}
	m := asMap(t, payload)
	if m["error"] != "not found" || m["code"] != float64(http.StatusNotFound) {
		t.Fatalf("error body = %v", m)
	}
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitMax = 3
	})
	c := ts.Client()

	for i := 0; i < 3; i++ {
		res, _ := doJSON(t, c, http.MethodGet, ts.URL+"/api/health", nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("request %d status=%d, want 200", i+1, res.StatusCode)
		}
	}
	res, payload := doJSON(t, c, http.MethodGet, ts.URL+"/api/health", nil)
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d payload=%v, want 429", res.StatusCode, payload)
	}
	if asMap(t, payload)["code"] != float64(http.StatusTooManyRequests) {
		t.Fatalf("429 body = %v", payload)
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := ts.Client()

	if res, _ := doJSON(t, c, http.MethodGet, ts.URL+"/api/weather/Berlin", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("warmup lookup failed: %d", res.StatusCode)
	}

	res, payload := doJSON(t, c, http.MethodGet, ts.URL+"/api/weather/cache/stats", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats status=%d", res.StatusCode)
	}
	stats := asMap(t, payload)
	wstats := asMap(t, stats["weather"])
	if wstats["total_entries"] != float64(1) || wstats["valid_entries"] != float64(1) {
		t.Fatalf("weather cache stats = %v", wstats)
	}
	entries, _ := wstats["entries"].([]any)
	if len(entries) != 1 || asMap(t, entries[0])["key"] != "berlin" {
		t.Fatalf("weather cache entries = %v", entries)
	}

	res, payload = doJSON(t, c, http.MethodPost, ts.URL+"/api/weather/cache/clear", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("clear status=%d", res.StatusCode)
	}
	m := asMap(t, payload)
	if m["message"] == "" || m["timestamp"] == "" {
		t.Fatalf("clear payload = %v", m)
	}
	// Nothing had expired yet, so the entry survives the sweep.
	if m["removed"] != float64(0) {
		t.Fatalf("removed = %v, want 0", m["removed"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	// At least one instrumented request so the counter family exists.
	if res, _ := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/health", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("health status=%d", res.StatusCode)
	}

	res, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", res.StatusCode)
	}
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(res.Body)
	if !strings.Contains(buf.String(), "weatherki_http_requests_total") {
		t.Fatal("metrics output missing request counter")
	}
}

func TestBodySizeLimit(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.BodyLimitBytes = 64
	})

	big := map[string]any{"question": strings.Repeat("x", 512), "locations": []string{"Berlin"}}
	res, _ := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/weather/ai/chat", big)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized body status=%d, want 400", res.StatusCode)
	}
}
