package nessie

import (
	internalTypes "github.com/eshaffer321/nudgepay-go/internal/types"
)

// Error types surfaced by the client
type (
	// RejectedError: the server answered with a non-success status
	RejectedError = internalTypes.RejectedError

	// UnreachableError: no endpoint produced a usable response
	UnreachableError = internalTypes.UnreachableError

	// MissingIDError: a created entity carried no recognised identifier
	MissingIDError = internalTypes.MissingIDError

	// MissingConfigError: a required credential field is empty
	MissingConfigError = internalTypes.MissingConfigError
)

var (
	// ErrNotAuthenticated is returned when the API key is rejected
	ErrNotAuthenticated = internalTypes.ErrNotAuthenticated

	// ErrNotFound is returned when an account or customer does not exist
	ErrNotFound = internalTypes.ErrNotFound

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = internalTypes.ErrRateLimited

	// ErrServerError is returned for server errors
	ErrServerError = internalTypes.ErrServerError
)

// IsRejected reports whether the server answered and refused the request
func IsRejected(err error) bool {
	return internalTypes.IsRejected(err)
}

// IsUnreachable reports whether every endpoint failed at the transport level
func IsUnreachable(err error) bool {
	return internalTypes.IsRetryable(err)
}
