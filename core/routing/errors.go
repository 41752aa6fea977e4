package routing

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when origin or destination is missing.
	ErrInvalidRequest = errors.New("origin and destination are required as \"lat,lng\"")
	// ErrMissingCredential is returned when no provider key is configured.
	ErrMissingCredential = errors.New("HERE_API_KEY not configured")
	// ErrNoRoute is returned when a route document holds no route.
	ErrNoRoute = errors.New("route document contains no route")
)

// ProviderError carries a non-2xx answer from the routing provider.
type ProviderError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("routing provider returned status %d", e.StatusCode)
}
