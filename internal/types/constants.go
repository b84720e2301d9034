package types

import (
	"errors"
	"time"
)

const (
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent is the user agent string
	UserAgent = "nudgepay-go/1.0.0"
)

// DefaultBaseURLs are the Nessie sandbox hostnames in the order they are tried.
// The sandbox has moved between these hosts over time.
var DefaultBaseURLs = []string{
	"https://api.nessieisreal.com",
	"https://api.reimaginebanking.com",
	"http://api.nessieisreal.com",
	"http://api.reimaginebanking.com",
}

// Common errors
var (
	// ErrNotAuthenticated is returned when the API key is rejected
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrBadRequest is returned when the API rejects the request body
	ErrBadRequest = errors.New("bad request")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")

	// ErrNoEndpoints is returned when a gateway has no base URLs to try
	ErrNoEndpoints = errors.New("no gateway endpoints configured")
)
