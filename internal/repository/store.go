package repository

import (
	"context"
	"time"

	"github.com/iliyamo/user-management-api/internal/model"
)

// UserStore is the persistence contract for user records. Email lookups
// and the uniqueness invariant compare lowercase.
type UserStore interface {
	// Create inserts u and returns it with its new ID. ErrEmailExists on a
	// duplicate email.
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// UpdateProfile overwrites email, names and role of u.ID. The password
	// hash is left alone; it only changes through UpdatePasswordHash.
	UpdateProfile(ctx context.Context, u model.User) error
	PasswordUpdater
	Delete(ctx context.Context, id uint64) error
}

// PasswordUpdater replaces a user's password hash. ErrUserNotFound when
// the user does not exist.
type PasswordUpdater interface {
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
}

// ResetTokenStore persists single-use password reset tokens keyed by the
// digest of the raw token.
type ResetTokenStore interface {
	// Replace atomically removes any token of t.UserID and stores t, so at
	// most one token per user survives concurrent calls.
	Replace(ctx context.Context, t model.PasswordResetToken) error

	// Redeem consumes the token with the given digest. When the token is
	// live it sets the owner's password hash to the value produced by
	// newHash and deletes the token as one unit, returning the owner's id.
	// A missing token yields ErrResetTokenNotFound; a token expired at now
	// is deleted and yields ErrResetTokenExpired; a token whose owner is
	// gone yields ErrUserNotFound. Of two concurrent calls for the same
	// token at most one succeeds.
	Redeem(ctx context.Context, tokenHash string, now time.Time, newHash func() (string, error)) (uint64, error)
}
