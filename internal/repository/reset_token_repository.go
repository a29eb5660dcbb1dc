package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/user-management-api/internal/database"
	"github.com/iliyamo/user-management-api/internal/model"
)

// ResetTokenRepo stores password reset tokens in the 'password_resets'
// table. user_id and token_hash are both unique.
type ResetTokenRepo struct{ DB *sql.DB }

func NewResetTokenRepo(db *sql.DB) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

// Replace stores t, dropping any previous token of the same user in the
// same statement. REPLACE deletes every row colliding on a unique key, so
// concurrent calls leave exactly one row for the user.
func (r *ResetTokenRepo) Replace(ctx context.Context, t model.PasswordResetToken) error {
	_, err := r.DB.ExecContext(ctx,
		"REPLACE INTO password_resets (user_id, token_hash, expires_at) VALUES (?,?,?)",
		t.UserID, t.TokenHash, t.ExpiresAt.UTC())
	if err != nil {
		if isMySQLError(err, mysqlNoReferencedRow) {
			return ErrUserNotFound
		}
		return fmt.Errorf("replace reset token: %w", err)
	}
	return nil
}

// Redeem locks the token row, applies the new password hash and deletes
// the token in one transaction. A second caller blocks on the row lock and
// then finds nothing.
func (r *ResetTokenRepo) Redeem(ctx context.Context, tokenHash string, now time.Time, newHash func() (string, error)) (uint64, error) {
	var (
		userID  uint64
		expired bool
	)
	err := database.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx database.DBTX) error {
		var expiresAt time.Time
		err := tx.QueryRowContext(ctx,
			"SELECT user_id, expires_at FROM password_resets WHERE token_hash=? FOR UPDATE",
			tokenHash).Scan(&userID, &expiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("lock reset token: %w", err)
		}

		if now.After(expiresAt) {
			// purge and commit; the caller still sees the expiry
			expired = true
			_, err := tx.ExecContext(ctx, "DELETE FROM password_resets WHERE token_hash=?", tokenHash)
			return err
		}

		var id uint64
		err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? FOR UPDATE", userID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		hash, err := newHash()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, userID); err != nil {
			return fmt.Errorf("update password hash: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM password_resets WHERE token_hash=?", tokenHash); err != nil {
			return fmt.Errorf("delete reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return userID, err
	}
	if expired {
		return userID, ErrResetTokenExpired
	}
	return userID, nil
}
