package model

import "time"

// PasswordResetToken models an entry in the `password_resets` table.
// At most one row exists per user. The raw token handed to the client is
// never stored; TokenHash holds its SHA-256 hex digest and is the lookup
// key.
//
// Fields:
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the raw token.
//  ExpiresAt – absolute expiry; the token is invalid strictly after it.
//  CreatedAt – timestamp of creation.
type PasswordResetToken struct {
    UserID    uint64    // password_resets.user_id
    TokenHash string    // password_resets.token_hash
    ExpiresAt time.Time // password_resets.expires_at
    CreatedAt time.Time // password_resets.created_at
}

// IsExpired reports whether the token is past its expiry at now.
func (t PasswordResetToken) IsExpired(now time.Time) bool {
    return now.After(t.ExpiresAt)
}
