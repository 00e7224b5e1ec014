package opendata

import (
	"errors"
	"fmt"
)

// Predefined errors for the OpenData fetch protocol.
var (
	// ErrNoData is returned when the API has no data for the request: a 404
	// on the secondary datos URL, or a well-formed body whose own status
	// reports no matching data. Not retried.
	ErrNoData = errors.New("no data for request")

	// ErrExhausted is returned when all retry attempts have been used
	// without obtaining a payload.
	ErrExhausted = errors.New("retries exhausted")
)

// APIError is an error descriptor the API returns inside an HTTP 200 body.
type APIError struct {
	Estado      int
	Descripcion string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Estado, e.Descripcion)
}

// errRateLimited marks an HTTP 429, which triggers the longer back-off.
var errRateLimited = errors.New("rate limited")

// transientError wraps a retryable failure (connection error, 5xx, empty or
// malformed body).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }
