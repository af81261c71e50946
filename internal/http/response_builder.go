package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Field       string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{Error: code, Description: description})
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry later")
}

// errorStatus maps a domain error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, log.ErrorTypeValidation
	case core.IsNotFound(err):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, core.ErrNoData):
		return http.StatusUnprocessableEntity, "no_data"
	case core.IsConversion(err):
		return http.StatusBadGateway, log.ErrorTypeConversion
	case core.IsStorage(err):
		return http.StatusInternalServerError, log.ErrorTypeStorage
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}

// writeError logs err and replies with its mapped status. Internal details
// are not sent for 5xx storage and internal errors.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := errorStatus(err)

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	fields := log.NewFields().WithOperation(op).WithErrorType(code).WithError(err).ToSlice()
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}

	resp := ErrorResponse{Error: code, Description: err.Error()}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	if status == http.StatusInternalServerError {
		resp.Description = "internal error"
	}
	writeJSON(w, status, resp)
}
