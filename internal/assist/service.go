// Package assist composes weather context into prompts for a
// generative-text provider. Provider outages never surface to callers;
// every operation degrades to a locally computed fallback.
package assist

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sahalkhalani/WeatherKI-backend/internal/cache"
	"github.com/sahalkhalani/WeatherKI-backend/internal/observability"
	"github.com/sahalkhalani/WeatherKI-backend/internal/weather"
)

// Output budgets per request kind, in tokens.
const (
	chatMaxTokens        = 512
	summaryMaxTokens     = 256
	suggestionsMaxTokens = 384
	triviaMaxTokens      = 192
)

// Provider generates text from a composed prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// WeatherService is the slice of the weather lookup the assist flows
// need for context gathering.
type WeatherService interface {
	Lookup(ctx context.Context, location string) (weather.Snapshot, error)
}

type Service struct {
	provider Provider
	weather  WeatherService
	cache    *cache.Cache[string]
}

func NewService(provider Provider, ws WeatherService, c *cache.Cache[string]) *Service {
	return &Service{provider: provider, weather: ws, cache: c}
}

// locationContext pairs a requested location with its snapshot, nil
// when the lookup failed.
type locationContext struct {
	name string
	snap *weather.Snapshot
}

// Chat answers a free-form question, optionally grounded in current
// conditions for the referenced locations.
func (s *Service) Chat(ctx context.Context, question string, locations []string) string {
	key := chatKey(question, locations)
	if text, ok := s.cachedText(key); ok {
		return text
	}

	items := s.gather(ctx, locations)
	text, err := s.provider.Generate(ctx, chatPrompt(question, items), chatMaxTokens)
	if err != nil {
		slog.Warn("ai generation failed, serving fallback", "kind", "chat", "error", err)
		return chatFallback(items)
	}
	s.cache.Set(key, text)
	return text
}

// Summary compares current conditions across several locations.
func (s *Service) Summary(ctx context.Context, locations []string) string {
	key := summaryKey(locations)
	if text, ok := s.cachedText(key); ok {
		return text
	}

	items := s.gather(ctx, locations)
	text, err := s.provider.Generate(ctx, summaryPrompt(items), summaryMaxTokens)
	if err != nil {
		slog.Warn("ai generation failed, serving fallback", "kind", "summary", "error", err)
		return summaryFallback(items)
	}
	s.cache.Set(key, text)
	return text
}

// Suggestions proposes destinations matching the stated interests,
// using the user's current locations as contrast.
func (s *Service) Suggestions(ctx context.Context, interests string, current []string) string {
	key := suggestionsKey(interests, current)
	if text, ok := s.cachedText(key); ok {
		return text
	}

	items := s.gather(ctx, current)
	text, err := s.provider.Generate(ctx, suggestionsPrompt(interests, items), suggestionsMaxTokens)
	if err != nil {
		slog.Warn("ai generation failed, serving fallback", "kind", "suggestions", "error", err)
		return suggestionsFallback()
	}
	s.cache.Set(key, text)
	return text
}

// Trivia returns one short fact about a location's weather, together
// with the snapshot it was based on. The snapshot is nil when the
// lookup failed; trivia is still produced.
func (s *Service) Trivia(ctx context.Context, location string) (string, *weather.Snapshot) {
	items := s.gather(ctx, []string{location})
	snap := items[0].snap

	key := triviaKey(location)
	if text, ok := s.cachedText(key); ok {
		return text, snap
	}

	text, err := s.provider.Generate(ctx, triviaPrompt(location, items), triviaMaxTokens)
	if err != nil {
		slog.Warn("ai generation failed, serving fallback", "kind", "trivia", "error", err)
		return triviaFallback(location, snap), snap
	}
	s.cache.Set(key, text)
	return text, snap
}

func (s *Service) cachedText(key string) (string, bool) {
	text, ok := s.cache.Get(key)
	if ok {
		observability.CacheHits.WithLabelValues("ai").Inc()
	} else {
		observability.CacheMisses.WithLabelValues("ai").Inc()
	}
	return text, ok
}

// gather looks up every location concurrently and waits for all of
// them to settle. Individual failures leave a nil snapshot instead of
// aborting the whole request.
func (s *Service) gather(ctx context.Context, locations []string) []locationContext {
	items := make([]locationContext, len(locations))
	var g errgroup.Group
	for i, name := range locations {
		i, name := i, name
		items[i].name = strings.TrimSpace(name)
		g.Go(func() error {
			snap, err := s.weather.Lookup(ctx, name)
			if err != nil {
				slog.Warn("weather context unavailable", "location", name, "error", err)
				return nil
			}
			items[i].snap = &snap
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Cache keys are the request kind plus a deterministic serialization
// of the inputs. Summary sorts its locations so that key identity does
// not depend on argument order.

func chatKey(question string, locations []string) string {
	return "chat|" + strings.TrimSpace(question) + "|" + strings.Join(normalizeAll(locations), ",")
}

func summaryKey(locations []string) string {
	norm := normalizeAll(locations)
	sort.Strings(norm)
	return "summary|" + strings.Join(norm, ",")
}

func suggestionsKey(interests string, current []string) string {
	return "suggestions|" + strings.TrimSpace(interests) + "|" + strings.Join(normalizeAll(current), ",")
}

func triviaKey(location string) string {
	return "trivia|" + weather.NormalizeLocation(location)
}

func normalizeAll(locations []string) []string {
	out := make([]string, len(locations))
	for i, l := range locations {
		out[i] = weather.NormalizeLocation(l)
	}
	return out
}
