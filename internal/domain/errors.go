package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the store (unknown day ID, activity, checklist item).
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. empty activity name, negative price).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrRemote marks a rejected store or file-storage operation.
// Handlers should map this to HTTP 502.
var ErrRemote = errors.New("remote operation failed")

// ErrProvider marks a failed third-party call (geocoding, weather, places):
// transport error, non-OK status, or a malformed response.
var ErrProvider = errors.New("external provider failure")

// ErrPartialFailure is wrapped by PartialFailureError.
var ErrPartialFailure = errors.New("partial failure")

// ErrUnauthorized is returned when credentials or tokens are rejected.
var ErrUnauthorized = errors.New("unauthorized")

// PartialFailureError reports an operation that completed while some of its
// side effects failed, e.g. an activity deleted while one of its attachment
// files could not be removed from storage.
type PartialFailureError struct {
	Op     string
	Failed []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %s: %d item(s) failed: %s",
		e.Op, ErrPartialFailure, len(e.Failed), strings.Join(e.Failed, ", "))
}

// Unwrap lets errors.Is(err, ErrPartialFailure) match.
func (e *PartialFailureError) Unwrap() error { return ErrPartialFailure }
