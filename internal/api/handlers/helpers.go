package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/UnknownOlympus/waypoints/internal/api/dto"
)

// RequestIDHeader carries the request id set by the router middleware.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// ValidationError is a client mistake in the request body. Its message is safe to return.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorContext(r.Context(), "encode failed",
			"method", r.Method, "path", r.URL.Path, "request_id", requestID(w), "error", err)
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, msg string) {
	writeJSON(w, r, log, status, dto.MessageResponse{Message: msg})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	log.ErrorContext(r.Context(), msg,
		"method", r.Method, "path", r.URL.Path, "request_id", requestID(w), "error", err)
	writeMessage(w, r, log, http.StatusInternalServerError, "internal server error")
}

// allowMethod answers 405 with an Allow header unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, log *slog.Logger, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeMessage(w, r, log, http.StatusMethodNotAllowed, "method not allowed")

	return false
}

// decodeJSON strictly decodes exactly one JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return invalid("%s has an invalid type", typeErr.Field)
		case errors.As(err, &maxErr):
			return invalid("body must not exceed %d bytes", maxErr.Limit)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return invalid("body contains %s", strings.TrimPrefix(err.Error(), "json: "))
		case errors.Is(err, io.EOF):
			return invalid("body must not be empty")
		default:
			return invalid("invalid json body")
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalid("body must contain only one JSON object")
	}

	return nil
}

func requestID(w http.ResponseWriter) string {
	return w.Header().Get(RequestIDHeader)
}
