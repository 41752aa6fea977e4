// Package envelope writes the JSON bodies and CORS headers shared by every
// dashboard endpoint.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/kilianp07/mg4dash/core/logger"
	"github.com/kilianp07/mg4dash/core/routing"
)

// Error messages returned to clients.
const (
	MsgProvider         = "HERE routing error"
	MsgUnexpected       = "Unexpected server error"
	MsgInvalidBody      = "invalid request body"
	MsgMethodNotAllowed = "method not allowed"
)

// AllowedMethods is announced on preflight responses.
const AllowedMethods = "GET,POST,OPTIONS"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// ErrorBody is the error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the error envelope. details is omitted when nil.
func Error(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorBody{Error: msg, Details: details})
}

// RoutingError maps a planner error onto its status and envelope.
func RoutingError(w http.ResponseWriter, err error) {
	var pe *routing.ProviderError
	switch {
	case errors.Is(err, routing.ErrInvalidRequest):
		Error(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, routing.ErrMissingCredential):
		Error(w, http.StatusInternalServerError, err.Error(), nil)
	case errors.As(err, &pe):
		var details any
		if len(pe.Body) > 0 {
			details = pe.Body
		}
		Error(w, pe.StatusCode, MsgProvider, details)
	default:
		Error(w, http.StatusInternalServerError, MsgUnexpected, err.Error())
	}
}

// AllowOrigin marks a response readable from any origin.
func AllowOrigin(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
}

// Preflight answers a CORS preflight request.
func Preflight(w http.ResponseWriter) {
	h := w.Header()
	AllowOrigin(h)
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Allow-Methods", AllowedMethods)
	w.WriteHeader(http.StatusNoContent)
}

// CORS adds the allow-origin header to every response and answers
// preflight requests itself.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			Preflight(w)
			return
		}
		AllowOrigin(w.Header())
		next.ServeHTTP(w, r)
	})
}

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// Recover turns a panic into the unexpected-error envelope.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
					Error(w, http.StatusInternalServerError, MsgUnexpected, fmt.Sprint(v))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
