// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across storage/service layers.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or unknown token where one is required.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates a valid identity with insufficient privilege or ownership.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates a structural validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateUsername indicates a username uniqueness violation.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials indicates a login failure. Unknown username and
	// wrong password deliberately map to the same sentinel so responses do
	// not reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
