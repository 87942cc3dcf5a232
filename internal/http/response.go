package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Error kinds reported in the response body.
const (
	kindNotFound           = "not_found"
	kindPermissionDenied   = "permission_denied"
	kindPreconditionFailed = "precondition_failed"
	kindValidationFailed   = "validation_failed"
	kindConflict           = "conflict"
	kindUnauthenticated    = "unauthenticated"
	kindRateLimited        = "rate_limited"
	kindMethodNotAllowed   = "method_not_allowed"
	kindInternal           = "internal"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}

// classify maps an error to its HTTP status and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden, kindPermissionDenied
	case errors.Is(err, core.ErrPreconditionFailed):
		return http.StatusConflict, kindPreconditionFailed
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, kindValidationFailed
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, kindConflict
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, kindUnauthenticated
	}
	return http.StatusInternalServerError, kindInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorKind(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// writeError writes err as a JSON error body. Internal errors are logged
// here and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		message = "internal server error"
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeErrorKind(w, status, kind, message)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
