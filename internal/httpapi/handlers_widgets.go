package httpapi

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/sahalkhalani/WeatherKI-backend/internal/store"
)

type widgetCreateRequest struct {
	Location string `json:"location"`
}

type widgetDeleteResponse struct {
	Message       string        `json:"message"`
	DeletedWidget *store.Widget `json:"deleted_widget"`
}

func (s *Server) handleWidgetsList(w http.ResponseWriter, r *http.Request) {
	rows, err := s.repo.List(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleWidgetsCreate(w http.ResponseWriter, r *http.Request) {
	var req widgetCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	location := strings.TrimSpace(req.Location)
	if n := utf8.RuneCountInString(location); n < 2 || n > 100 {
		writeError(w, http.StatusBadRequest, "location must be between 2 and 100 characters")
		return
	}

	widget, err := s.repo.Create(r.Context(), location)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, widget)
}

func (s *Server) handleWidgetsGet(w http.ResponseWriter, r *http.Request) {
	id, ok := widgetIDParam(w, r)
	if !ok {
		return
	}
	widget, err := s.repo.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, widget)
}

func (s *Server) handleWidgetsDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := widgetIDParam(w, r)
	if !ok {
		return
	}
	widget, err := s.repo.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, widgetDeleteResponse{
		Message:       "widget deleted",
		DeletedWidget: widget,
	})
}

// widgetIDParam validates the id's 24-hex shape before any storage
// access; a malformed id never reaches the database.
func widgetIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "widget_id"))
	if !store.ValidID(id) {
		writeError(w, http.StatusBadRequest, "invalid widget id")
		return "", false
	}
	return id, true
}
