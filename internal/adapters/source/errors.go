package source

import (
	"errors"
	"fmt"
)

// Sentinel kinds for fetch errors.
var (
	ErrEndpoint = errors.New("api endpoint is empty")
	ErrStatus   = errors.New("unexpected response status")
	ErrDecode   = errors.New("decode response failed")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrStatus, e.Code, e.Body)
}

// Unwrap lets errors.Is match ErrStatus.
func (e *StatusError) Unwrap() error { return ErrStatus }
