package httpapi

import (
	"net/http"
	"strings"
)

type chatRequest struct {
	Question  string   `json:"question"`
	Locations []string `json:"locations"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleAssistChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	text := s.assist.Chat(r.Context(), question, cleanLocations(req.Locations))
	writeJSON(w, http.StatusOK, chatResponse{Response: text})
}

type summaryRequest struct {
	Locations []string `json:"locations"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

func (s *Server) handleAssistSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	locations := cleanLocations(req.Locations)
	if len(locations) == 0 {
		writeError(w, http.StatusBadRequest, "locations are required")
		return
	}

	text := s.assist.Summary(r.Context(), locations)
	writeJSON(w, http.StatusOK, summaryResponse{Summary: text})
}

type suggestionsRequest struct {
	Interests        string   `json:"interests"`
	CurrentLocations []string `json:"current_locations"`
}

type suggestionsResponse struct {
	Suggestions string `json:"suggestions"`
}

func (s *Server) handleAssistSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	interests := strings.TrimSpace(req.Interests)
	if interests == "" {
		writeError(w, http.StatusBadRequest, "interests are required")
		return
	}

	text := s.assist.Suggestions(r.Context(), interests, cleanLocations(req.CurrentLocations))
	writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: text})
}

type triviaRequest struct {
	Location string `json:"location"`
}

func (s *Server) handleAssistTrivia(w http.ResponseWriter, r *http.Request) {
	var req triviaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}

	text, snap := s.assist.Trivia(r.Context(), location)
	writeJSON(w, http.StatusOK, map[string]any{
		"trivia":  text,
		"weather": snap,
	})
}

func cleanLocations(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
