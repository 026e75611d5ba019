// Package common defines shared sentinel errors used across the service
// layers of admitd. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Request-level errors (no remote call was attempted).
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")

	// Remote-interaction errors.
	ErrTransport = errors.New("transport error")
	ErrRemote    = errors.New("remote error")

	// Profile resolution errors.
	ErrNotFound = errors.New("not found")

	// Auth errors (missing, invalid or malformed token).
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)
