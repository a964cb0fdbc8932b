package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorAmbiguous    = errors.New("ambiguous reference")

	// Validation errors.
	ErrorEmptySecret  = errors.New("secret is empty")
	ErrorInvalidKey   = errors.New("invalid blob key")
	ErrorBlobTooLarge = errors.New("blob too large")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Transport errors.
	ErrUnavailable = errors.New("remote unavailable")
)
