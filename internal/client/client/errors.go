package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("service unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoSession    = errors.New("no active session")
	ErrInvalidToken = errors.New("invalid verification token")
	ErrConflict     = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
)

// APIError is an error payload returned by the service. It unwraps to one of
// the sentinel errors above, so callers use errors.Is for the category and
// Message for display.
type APIError struct {
	Status  int
	Type    string
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Type)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// Message returns the text best suited for showing err to a user: the
// service's own message when there is one, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
