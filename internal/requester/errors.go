package requester

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps failures below HTTP: DNS, TLS, resets, timeouts, cancellation
	ErrTransport = errors.New("request failed")

	// ErrInvalidResponse means no usable HTTP response came back
	ErrInvalidResponse = errors.New("invalid or missing HTTP response")

	// ErrNoCredential is returned for authenticated calls when no bearer token is stored
	ErrNoCredential = errors.New("no bearer token available")
)

// StatusError reports a non-2xx response. Body is kept for diagnostics.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// DecodeError reports a payload that did not match the target type
type DecodeError struct {
	Err     error
	Payload []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err carries the given HTTP status code
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}
