// Package repository defines the persistence boundary for users and
// password reset tokens. Sentinel values let the service layer tell
// failure scenarios apart without inspecting driver errors: ErrEmailExists
// is a uniqueness violation on insert or update, ErrUserNotFound and
// ErrResetTokenNotFound mean the row does not exist, and
// ErrResetTokenExpired means a reset token was found past its expiry (and
// has been purged).
package repository

import "errors"

// ErrEmailExists is returned when an insert or update collides with
// another user's email (case-insensitive).
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrResetTokenNotFound is returned when no reset token matches the hash.
var ErrResetTokenNotFound = errors.New("reset token not found")

// ErrResetTokenExpired is returned when a reset token was found past its
// expiry. The row has already been deleted when this is returned.
var ErrResetTokenExpired = errors.New("reset token expired")
