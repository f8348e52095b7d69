// Package common defines sentinel errors shared across gophstat layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Authentication and authorization outcomes.
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrCouldNotValidate     = errors.New("could not validate credentials")
	ErrUserNotFound         = errors.New("could not find user")
	ErrInactiveUser         = errors.New("inactive user")
	ErrIncorrectCredentials = errors.New("incorrect username or password")

	// Token decoding errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformedToken   = errors.New("malformed token")
	ErrTokenExpired     = errors.New("token expired")

	// Upload validation errors.
	ErrInvalidFormat   = errors.New("invalid format")
	ErrPayloadTooLarge = errors.New("payload too large")
)
