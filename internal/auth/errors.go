package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated covers a missing, malformed or badly signed
	// credential and a caller that no longer exists or is deactivated.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrExpired means the credential was valid but its window elapsed.
	ErrExpired = errors.New("token expired")
	// ErrForbidden means the caller lacks the capability or ownership.
	ErrForbidden = errors.New("forbidden")

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrInvalidInput       = errors.New("invalid input")
	ErrWeakPassword       = fmt.Errorf("%w: weak password", ErrInvalidInput)
	ErrNotFound           = errors.New("user not found")
	ErrConflict           = errors.New("email already registered")
)
