package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// HealthHandler reports liveness. It does not touch any dependency.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// PreflightHandler answers CORS preflights; the headers are set by CorsMiddleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeAppError maps a classified error onto the JSON error shape.
func writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(apperrors.KindOf(err))
	if status >= http.StatusInternalServerError {
		log.Err(err).Msg("request failed")
	}
	writeJSONError(w, apperrors.CodeOf(err), apperrors.MessageOf(err), status)
}
