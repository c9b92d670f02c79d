package profileproof

import (
	"errors"
	"fmt"
)

var (
	// ErrHashMissing is returned when validating a username with no live hash
	ErrHashMissing = errors.New("hash missing")

	// ErrBadRequest is returned for any other client-side rejection
	ErrBadRequest = errors.New("bad request")

	// ErrServer is returned when the service fails on its side
	ErrServer = errors.New("server error")
)

// APIError carries an error response from the service
type APIError struct {
	StatusCode  int
	Title       string `json:"error"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Title, e.Description)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Title)
}

// Is lets callers match API errors against the sentinels above
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrHashMissing:
		return e.StatusCode == 400 && e.Title == "Hash Missing"
	case ErrBadRequest:
		return e.StatusCode >= 400 && e.StatusCode < 500
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}
