package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/sahalkhalani/WeatherKI-backend/internal/assist"
	"github.com/sahalkhalani/WeatherKI-backend/internal/cache"
	"github.com/sahalkhalani/WeatherKI-backend/internal/config"
	"github.com/sahalkhalani/WeatherKI-backend/internal/gemini"
	"github.com/sahalkhalani/WeatherKI-backend/internal/httpapi"
	"github.com/sahalkhalani/WeatherKI-backend/internal/openmeteo"
	"github.com/sahalkhalani/WeatherKI-backend/internal/store"
	"github.com/sahalkhalani/WeatherKI-backend/internal/weather"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	db, err := openDatabase(cfg)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	repo, err := store.New(db)
	if err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	weatherCache := cache.New[weather.Snapshot](cfg.CacheTTL, cache.WithName("weather"))
	defer weatherCache.Stop()
	aiCache := cache.New[string](cfg.CacheTTL, cache.WithName("ai"))
	defer aiCache.Stop()

	omClient := openmeteo.New(cfg.GeocodingBaseURL, cfg.ForecastBaseURL, cfg.OpenMeteoAPIKey)
	weatherSvc := weather.NewService(omClient, weatherCache)

	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set, AI endpoints will serve fallback responses")
	}
	llm := gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	assistSvc := assist.NewService(llm, weatherSvc, aiCache)

	srv := httpapi.NewServer(cfg, repo, weatherSvc, assistSvc, weatherCache, aiCache)

	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv.Routes(),
		ReadTimeout: 15 * time.Second,
		// Generation responses can take a while, keep the write window
		// wider than the AI client timeout.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("weatherki-backend started", "port", cfg.Port, "environment", cfg.Environment)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		slog.Info("using postgres storage")
		return store.OpenPostgres(cfg.DatabaseURL)
	}
	slog.Info("DATABASE_URL not set, using sqlite storage", "path", cfg.SQLitePath)
	return store.OpenSQLite(cfg.SQLitePath)
}
