package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/docupos/api/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// writeError maps a classified service error to its HTTP status. Storage and
// authorization failures get a generic body; the real error goes to the log.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case apperr.KindNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case apperr.KindConflict:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case apperr.KindAuthorization:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	default:
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// workDate reads the caller-supplied business date from the X-Work-Date
// header (RFC3339 or YYYY-MM-DD). Records created during a backdated intake
// session carry that date instead of the wall clock.
func workDate(r *http.Request) time.Time {
	raw := r.Header.Get("X-Work-Date")
	if raw == "" {
		return time.Now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
