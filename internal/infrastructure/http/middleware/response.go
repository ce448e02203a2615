package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/petar554/fakturo/internal/domain/apperr"
)

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

func writeErr(w http.ResponseWriter, kind apperr.Kind, message string, details any) {
	writeErrStatus(w, statusForKind(kind), kind, message, details)
}

func writeErrStatus(w http.ResponseWriter, status int, kind apperr.Kind, message string, details any) {
	body := map[string]any{
		"error":   kind.String(),
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAppErr(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		message = "internal server error"
	}
	writeErr(w, kind, message, apperr.DetailsOf(err))
}
