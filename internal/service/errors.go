// Package service holds the credential and user management logic. It is the
// only caller of the password hasher, the token signer and the stores.
package service

import (
	"errors"
	"fmt"
)

// Failures callers are expected to tell apart with errors.Is.
var (
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInternal              = errors.New("internal error")
)

// internalErr marks err as ErrInternal while keeping it in the chain for logs.
func internalErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}
