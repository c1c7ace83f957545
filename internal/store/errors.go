package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Fetch for an unknown identity
var ErrNotFound = errors.New("entity not found")

// StatusError is a non-2xx answer from the remote service
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned status %d", e.Code)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}
