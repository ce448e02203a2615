package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/petar554/fakturo/internal/domain/apperr"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess sends the success envelope: {"success": true, ...payload}.
func writeSuccess(w http.ResponseWriter, code int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, code, body)
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization, apperr.KindQuotaExceeded:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeAppErr sends the error envelope: {"error": kind, "message": ..., "details": ...}.
// Internal error causes are never surfaced to the client.
func writeAppErr(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		message = "internal server error"
	}
	body := map[string]any{
		"error":   kind.String(),
		"message": message,
	}
	if details := apperr.DetailsOf(err); details != nil {
		body["details"] = details
	}
	writeJSON(w, statusForKind(kind), body)
}

func writeErr(w http.ResponseWriter, kind apperr.Kind, message string) {
	writeAppErr(w, apperr.New(kind, message))
}
