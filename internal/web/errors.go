package web

// errors.go provides unified error responses for the API.
//
// Every handler error goes through respondError, which:
//  1. Maps the error via core.MapError to a user-facing message and code
//  2. Derives the HTTP status from the sentinel the error wraps
//  3. Logs the technical error with the request id for correlation
//  4. Writes {error, message, action, code, fields?} JSON

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnknownResource):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyReports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrEmptyCart):
		return http.StatusBadRequest
	}
	if _, ok := core.AsValidation(err); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// badRequest reports a malformed parameter or body as a field error.
func badRequest(field, format string, args ...any) error {
	var errs core.ValidationErrors
	errs.Add(field, format, args...)
	return errs.Err()
}

// respondError logs err and writes the mapped JSON error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Debug("request rejected", attrs...)
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if ve, ok := core.AsValidation(err); ok {
		resp.Fields = ve
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn("encode error response", "error", err)
	}
}
