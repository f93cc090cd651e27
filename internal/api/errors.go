package api

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedMethod is returned for any method other than GET or POST
	ErrUnsupportedMethod = errors.New("unsupported request method")
	// ErrEmptyKey is returned when a client is built without an API key
	ErrEmptyKey = errors.New("api key must not be empty")
)

// SigningError reports unusable key material.
type SigningError struct {
	Reason string
}

func (e *SigningError) Error() string {
	return "signing error: " + e.Reason
}

// TransportError reports a non-2xx HTTP status. The body is kept verbatim
// and the envelope is never parsed.
type TransportError struct {
	StatusCode int
	Body       []byte
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP error [%d]: %s", e.StatusCode, string(e.Body))
}

// MalformedResponseError reports a body that is not the expected JSON shape
type MalformedResponseError struct {
	Body []byte
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v: %s", e.Err, string(e.Body))
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// APIError is a non-zero application code returned inside the envelope
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error [%d]: %s", e.Code, e.Message)
}
