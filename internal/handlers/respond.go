package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/reviewcash/backend/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEngineError maps engine errors onto HTTP statuses: admission
// rejections are 422, lost transition races 409, unknown ids 404.
// Anything else is logged and reported as a plain 500.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": verr.Reason})
	case errors.Is(err, engine.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "request already handled"})
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		logger.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
