package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/palitan-tayo-api/internal/domain"
)

// httpError maps domain errors to HTTP status codes. Client-safe messages come
// from *domain.Error; anything unclassified is logged and answered with 500.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	status, fallback := http.StatusInternalServerError, "Internal Server Error"
	switch {
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrConflict):
		status, fallback = http.StatusBadRequest, "Bad request."
	case errors.Is(err, domain.ErrUnauthorized):
		status, fallback = http.StatusUnauthorized, "Unauthorized."
	case errors.Is(err, domain.ErrNotFound):
		status, fallback = http.StatusNotFound, "Not found."
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "action", r.URL.Query().Get("action"), "err", err)
		writeError(w, status, fallback)
		return
	}
	var de *domain.Error
	if errors.As(err, &de) {
		writeError(w, status, de.Msg)
		return
	}
	writeError(w, status, fallback)
}
