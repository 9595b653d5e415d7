package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"medchatd/internal/manager"
	"medchatd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err as JSON, adding Retry-After for retryable
// conditions and counting backpressure rejections.
func writeServiceError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	retryable := false
	switch {
	case manager.IsTooBusy(err):
		IncrementBackpressure("admission_timeout")
		retryable = true
	case manager.IsInsufficientMemory(err):
		IncrementBackpressure("insufficient_memory")
		retryable = true
	case manager.IsEngineLoadFailed(err), manager.IsShuttingDown(err), manager.IsEngineUnloaded(err):
		retryable = status == http.StatusServiceUnavailable
	}
	if retryable && retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSONError(w, status, err.Error())
	return status
}
