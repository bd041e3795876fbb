package assist

import (
	"fmt"
	"strings"

	"github.com/sahalkhalani/WeatherKI-backend/internal/weather"
)

// Deterministic texts served when the provider is down. They are
// computed from whatever weather data the fan-out managed to gather
// and are never cached, so the provider gets retried on the next
// request.

func chatFallback(items []locationContext) string {
	block := availableBlock(items)
	if block == "" {
		return "The weather assistant is temporarily unavailable. Please try again in a moment."
	}
	return "The weather assistant is temporarily unavailable, but here is the latest data:\n" + block
}

func summaryFallback(items []locationContext) string {
	snaps := successful(items)
	if len(snaps) == 0 {
		return "Weather data is currently unavailable for the requested locations."
	}
	if len(snaps) == 1 {
		s := snaps[0]
		return fmt.Sprintf("%s is currently %.0f°C with %s.", s.name, s.snap.Temperature, strings.ToLower(s.snap.Description))
	}

	var sum float64
	warmest, coolest := snaps[0], snaps[0]
	for _, it := range snaps {
		sum += it.snap.Temperature
		if it.snap.Temperature > warmest.snap.Temperature {
			warmest = it
		}
		if it.snap.Temperature < coolest.snap.Temperature {
			coolest = it
		}
	}
	avg := sum / float64(len(snaps))
	return fmt.Sprintf(
		"The average temperature across %d locations is %.0f°C. The warmest is %s at %.0f°C and the coolest is %s at %.0f°C.",
		len(snaps), avg, warmest.name, warmest.snap.Temperature, coolest.name, coolest.snap.Temperature,
	)
}

func suggestionsFallback() string {
	return strings.Join([]string{
		"Suggestions are temporarily offline. A few dependable picks:",
		"- Lisbon: mild coastal weather for most of the year",
		"- Tenerife: warm and sunny in every season",
		"- Vancouver: temperate, green and close to the mountains",
	}, "\n")
}

func triviaFallback(location string, snap *weather.Snapshot) string {
	if snap == nil {
		return fmt.Sprintf("Weather trivia for %s is temporarily unavailable.", location)
	}
	return fmt.Sprintf("It is %.0f°C in %s right now with %s.", snap.Temperature, snap.CityName, strings.ToLower(snap.Description))
}

func successful(items []locationContext) []locationContext {
	out := make([]locationContext, 0, len(items))
	for _, it := range items {
		if it.snap != nil {
			out = append(out, it)
		}
	}
	return out
}

func availableBlock(items []locationContext) string {
	return contextBlock(successful(items))
}
