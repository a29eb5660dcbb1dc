package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/user-management-api/internal/model"
	"github.com/iliyamo/user-management-api/internal/repository"
	"github.com/iliyamo/user-management-api/internal/utils"
)

// ResetTokenTTL is the fixed lifetime of a password reset token.
const ResetTokenTTL = time.Hour

// ResetGrant is a freshly issued reset token. Token is the raw value handed
// to the user; only its digest is stored.
type ResetGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResetTokens implements the reset token lifecycle on top of a
// ResetTokenStore: issue with supersede, single-use redemption and lazy
// expiry.
type ResetTokens struct {
	store  repository.ResetTokenStore
	hasher PasswordHasher
	log    *zap.Logger
	now    func() time.Time
}

func NewResetTokens(store repository.ResetTokenStore, hasher PasswordHasher, log *zap.Logger) *ResetTokens {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResetTokens{store: store, hasher: hasher, log: log, now: time.Now}
}

// IssueFor creates a token for userID, replacing any pending one.
func (r *ResetTokens) IssueFor(ctx context.Context, userID uint64) (ResetGrant, error) {
	raw, err := utils.RandomHex(utils.ResetTokenBytes)
	if err != nil {
		return ResetGrant{}, internalErr("generate reset token", err)
	}
	// DATETIME keeps seconds only; truncate so the stored and returned expiry agree.
	expiresAt := r.now().UTC().Truncate(time.Second).Add(ResetTokenTTL)

	err = r.store.Replace(ctx, model.PasswordResetToken{
		UserID:    userID,
		TokenHash: utils.HashOpaque(raw),
		ExpiresAt: expiresAt,
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		return ResetGrant{}, ErrUserNotFound
	}
	if err != nil {
		r.log.Error("store reset token", zap.Uint64("user_id", userID), zap.Error(err))
		return ResetGrant{}, internalErr("store reset token", err)
	}
	r.log.Info("reset token issued", zap.Uint64("user_id", userID), zap.Time("expires_at", expiresAt))
	return ResetGrant{Token: raw, ExpiresAt: expiresAt}, nil
}

// Redeem consumes token and sets newPassword on its owner. Unknown,
// consumed, superseded and expired tokens all fail with
// ErrInvalidOrExpiredToken.
func (r *ResetTokens) Redeem(ctx context.Context, token, newPassword string) (uint64, error) {
	if token == "" {
		return 0, ErrInvalidOrExpiredToken
	}
	var hashErr error
	userID, err := r.store.Redeem(ctx, utils.HashOpaque(token), r.now(), func() (string, error) {
		h, err := r.hasher.Hash(newPassword)
		hashErr = err
		return h, err
	})
	switch {
	case err == nil:
		r.log.Info("password reset", zap.Uint64("user_id", userID))
		return userID, nil
	case errors.Is(err, repository.ErrResetTokenNotFound):
		r.log.Warn("reset token not found")
		return 0, ErrInvalidOrExpiredToken
	case errors.Is(err, repository.ErrResetTokenExpired):
		r.log.Warn("reset token expired", zap.Uint64("user_id", userID))
		return 0, ErrInvalidOrExpiredToken
	case errors.Is(err, repository.ErrUserNotFound):
		r.log.Error("reset token owner missing", zap.Uint64("user_id", userID))
		return 0, ErrUserNotFound
	case hashErr != nil:
		r.log.Error("hash new password", zap.Error(hashErr))
		return 0, internalErr("hash password", hashErr)
	default:
		r.log.Error("redeem reset token", zap.Uint64("user_id", userID), zap.Error(err))
		return 0, internalErr("redeem reset token", err)
	}
}
