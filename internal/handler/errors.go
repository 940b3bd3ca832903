package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// ErrorDetail is the machine code and human message of a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// PartialFailureResponse is returned with 207 when an operation completed but
// some of its side effects did not.
type PartialFailureResponse struct {
	Error  ErrorDetail `json:"error"`
	Failed []string    `json:"failed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError reports a request rejected before reaching the service layer
// (e.g. missing or malformed body).
func requestError(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// writeError maps a service error onto a status code and error body.
// notFound names what was being looked up, e.g. "activity not found".
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var partial *domain.PartialFailureError
	switch {
	case errors.As(err, &partial):
		writeJSON(w, http.StatusMultiStatus, PartialFailureResponse{
			Error:  ErrorDetail{Code: "partial_failure", Message: "completed with failures"},
			Failed: partial.Failed,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", notFound)
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrUnauthorized):
		writeErrorBody(w, http.StatusUnauthorized, "unauthorized", unwrapMessage(err, domain.ErrUnauthorized))
	case errors.Is(err, domain.ErrProvider):
		s.log.WarnContext(r.Context(), "provider failure", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusBadGateway, "provider_error", "external provider unavailable")
	case errors.Is(err, domain.ErrRemote):
		s.log.ErrorContext(r.Context(), "remote operation failed", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusBadGateway, "remote_error", "storage operation failed")
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part that follows the sentinel.
// e.g. "recalculate: validation error: name is required" -> "name is required"
func unwrapMessage(err error, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
