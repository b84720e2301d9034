package types

import (
	"errors"
	"fmt"
)

// RejectedError means an endpoint was reached and answered with a non-success
// status. It is definitive: no other endpoint is tried.
type RejectedError struct {
	StatusCode int
	Endpoint   string
	Body       string
	Err        error
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("Nessie error: %d", e.StatusCode)
	if desc := HTTPStatusDescription(e.StatusCode); desc != "" {
		msg = fmt.Sprintf("Nessie error: %d (%s)", e.StatusCode, desc)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Body)
	}
	return msg
}

// Unwrap returns the sentinel mapped from the status code
func (e *RejectedError) Unwrap() error {
	return e.Err
}

// UnreachableError means no usable response came back from an endpoint:
// dial failure, timeout, truncated body or a body that is not JSON.
type UnreachableError struct {
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("Nessie unreachable at %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying transport error
func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// MissingIDError is returned when a created entity carries none of the
// recognised identifier fields.
type MissingIDError struct {
	Entity  string
	Payload string
}

func (e *MissingIDError) Error() string {
	return fmt.Sprintf("failed to create %s: no ID returned in %s", e.Entity, e.Payload)
}

// IsRejected reports whether err came from a server that answered
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// IsRetryable reports whether the next endpoint should be tried
func IsRetryable(err error) bool {
	var unreachable *UnreachableError
	return errors.As(err, &unreachable)
}

// HTTPStatusDescription returns a human-readable description for common HTTP status codes.
// This helps with errors like 525 (SSL Handshake Failed) which are Cloudflare-specific.
func HTTPStatusDescription(statusCode int) string {
	descriptions := map[int]string{
		400: "Bad Request",
		401: "Unauthorized",
		403: "Forbidden",
		404: "Not Found",
		429: "Too Many Requests",
		500: "Internal Server Error",
		502: "Bad Gateway",
		503: "Service Unavailable",
		504: "Gateway Timeout",
		520: "Web Server Error",
		521: "Web Server Is Down",
		522: "Connection Timed Out",
		523: "Origin Is Unreachable",
		524: "A Timeout Occurred",
		525: "SSL Handshake Failed",
		526: "Invalid SSL Certificate",
	}
	return descriptions[statusCode]
}

// MissingConfigError names the first required gateway setting that is empty
type MissingConfigError struct {
	Field string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("Missing Nessie config: %s", e.Field)
}
