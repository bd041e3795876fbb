package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"log/slog"

	"github.com/google/uuid"
)

type ctxKey string

const correlationIDKey ctxKey = "correlation_id"

// correlationID propagates an X-Correlation-ID header, minting one for
// requests that arrive without it.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Correlation-ID")
		if corrID == "" {
			corrID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", corrID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationIDKey, corrID)))
	})
}

// CorrelationID returns the request's correlation id, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// recoverer turns panics into standardized JSON errors. Stack traces
// go to the log always and into the response only outside production.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := string(debug.Stack())
				slog.Error("panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"correlation_id", CorrelationID(r.Context()),
					"panic", rec,
					"stack", stack,
				)
				if s.cfg.Production() {
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"error": fmt.Sprint(rec),
					"code":  http.StatusInternalServerError,
					"stack": stack,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
