package assist

import (
	"fmt"
	"strings"
)

// contextBlock renders one line per requested location. Failed lookups
// become an explicit "unavailable" line so the model does not invent
// conditions for them.
func contextBlock(items []locationContext) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if it.snap == nil {
			lines = append(lines, fmt.Sprintf("Weather data for %s is currently unavailable.", it.name))
			continue
		}
		s := it.snap
		lines = append(lines, fmt.Sprintf(
			"Current weather in %s, %s: %s, %.0f°C, humidity %d%%, wind %.1f km/h.",
			s.CityName, s.Country, s.Description, s.Temperature, s.Humidity, s.WindSpeed,
		))
	}
	return strings.Join(lines, "\n")
}

func chatPrompt(question string, items []locationContext) string {
	var sb strings.Builder
	sb.WriteString("You are a concise, friendly weather assistant. Answer the user's question in a couple of sentences.")
	if block := contextBlock(items); block != "" {
		sb.WriteString(" Use the conditions below where relevant and do not invent data for locations marked unavailable.\n\n")
		sb.WriteString(block)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

func summaryPrompt(items []locationContext) string {
	var sb strings.Builder
	sb.WriteString("Summarize the current weather across the locations below in two or three sentences. Point out the warmest and coolest spots and anything notable.\n\n")
	sb.WriteString(contextBlock(items))
	return sb.String()
}

func suggestionsPrompt(interests string, items []locationContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Suggest three travel destinations for someone interested in %s. Give each destination on its own line with a short reason.", interests)
	if block := contextBlock(items); block != "" {
		sb.WriteString(" For contrast, this is the weather where they already are:\n\n")
		sb.WriteString(block)
	}
	return sb.String()
}

func triviaPrompt(location string, items []locationContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Share one short, surprising fact about the weather or climate of %s. One or two sentences.", location)
	if block := contextBlock(items); block != "" {
		sb.WriteString(" Current conditions for reference:\n\n")
		sb.WriteString(block)
	}
	return sb.String()
}
