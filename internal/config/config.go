// Package config reads the process configuration from the
// environment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string

	// DatabaseURL is a Postgres DSN. When empty the process falls
	// back to a local SQLite file at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	FrontendURL string

	CacheTTL time.Duration

	GeocodingBaseURL string
	ForecastBaseURL  string
	OpenMeteoAPIKey  string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	RateLimitWindow time.Duration
	RateLimitMax    int
	BodyLimitBytes  int64

	LogLevel  string
	LogFormat string
}

// Load reads the environment, applying defaults suitable for local
// development.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "weatherki.db")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("CACHE_TTL_MINUTES", 5)
	v.SetDefault("GEOCODING_BASE_URL", "https://geocoding-api.open-meteo.com")
	v.SetDefault("FORECAST_BASE_URL", "https://api.open-meteo.com")
	v.SetDefault("OPEN_METEO_API_KEY", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("RATE_LIMIT_WINDOW_MINUTES", 15)
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("BODY_LIMIT_BYTES", 10<<20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	return Config{
		Port:             v.GetString("PORT"),
		Environment:      v.GetString("ENVIRONMENT"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		SQLitePath:       v.GetString("SQLITE_PATH"),
		FrontendURL:      v.GetString("FRONTEND_URL"),
		CacheTTL:         time.Duration(v.GetInt("CACHE_TTL_MINUTES")) * time.Minute,
		GeocodingBaseURL: v.GetString("GEOCODING_BASE_URL"),
		ForecastBaseURL:  v.GetString("FORECAST_BASE_URL"),
		OpenMeteoAPIKey:  v.GetString("OPEN_METEO_API_KEY"),
		GeminiAPIKey:     v.GetString("GEMINI_API_KEY"),
		GeminiModel:      v.GetString("GEMINI_MODEL"),
		GeminiBaseURL:    v.GetString("GEMINI_BASE_URL"),
		RateLimitWindow:  time.Duration(v.GetInt("RATE_LIMIT_WINDOW_MINUTES")) * time.Minute,
		RateLimitMax:     v.GetInt("RATE_LIMIT_MAX"),
		BodyLimitBytes:   v.GetInt64("BODY_LIMIT_BYTES"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}
}

// Production reports whether responses should suppress internal error
// detail and stack traces.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}
