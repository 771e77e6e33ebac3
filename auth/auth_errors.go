package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed means the backend could not be asked, or answered
	// with something that is not a validation result. It says nothing about
	// whether the token itself is good.
	ErrValidationFailed = errors.New("token validation failed")

	ErrMissingFields = errors.New("all fields are required")
)

// APIError is a non-2xx answer from the auth API, carrying the message the
// backend put in the body so pages can show it to the user
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api: %d %s", e.Status, e.Message)
}
