package tokens

import "errors"

// Domain errors for token acquisition.
//
// These errors can be checked using errors.Is() in calling code.
var (
	// ErrRequestFailed is returned when the token endpoint cannot be reached
	// or returns a malformed response.
	ErrRequestFailed = errors.New("tokens: token request failed")

	// ErrUnauthorized is returned when the token endpoint rejects the
	// client credentials or issues no access token.
	ErrUnauthorized = errors.New("tokens: credentials rejected")

	// ErrNotConfigured is returned when no token endpoint is configured.
	ErrNotConfigured = errors.New("tokens: no token endpoint configured")
)
