// Package common defines sentinel errors and constants shared by the watch
// and phone sides of wristnote. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// PairingTokenHeaderName is the gRPC metadata key carrying the shared secret
// both devices were paired with.
const PairingTokenHeaderName = "pairing_token"
