package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/user-management-api/internal/model"
	"github.com/iliyamo/user-management-api/internal/repository"
	"github.com/iliyamo/user-management-api/internal/utils"
)

// PasswordHasher is satisfied by *utils.PasswordHasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// TokenSigner is satisfied by *utils.Signer.
type TokenSigner interface {
	Issue(c utils.Claims) (utils.IssuedToken, error)
	Verify(raw string) (utils.Claims, error)
}

// RegisterInput carries an already validated registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string // empty means model.RoleUser
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      model.UserView `json:"user"`
}

// CredentialService runs register, login and the password recovery flows.
type CredentialService struct {
	users    repository.UserStore
	resets   *ResetTokens
	hasher   PasswordHasher
	signer   TokenSigner
	notifier Notifier
	log      *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialService(users repository.UserStore, resets *ResetTokens, hasher PasswordHasher, signer TokenSigner, notifier Notifier, log *zap.Logger) *CredentialService {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CredentialService{
		users:    users,
		resets:   resets,
		hasher:   hasher,
		signer:   signer,
		notifier: notifier,
		log:      log,
	}
}

// Register creates the account and signs the user in.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		return AuthResult{}, internalErr("hash password", err)
	}

	u, err := s.users.Create(ctx, model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		return AuthResult{}, ErrDuplicateEmail
	}
	if err != nil {
		s.log.Error("create user", zap.Error(err))
		return AuthResult{}, internalErr("create user", err)
	}

	res, err := s.issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID))
	if err := s.notifier.UserRegistered(ctx, res.User); err != nil {
		s.log.Warn("notify user registered", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	return res, nil
}

// Login checks the credentials. An unknown email and a wrong password
// produce the same error and take comparable time.
func (s *CredentialService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.burnCompare(password)
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		s.log.Error("load user by email", zap.Error(err))
		return AuthResult{}, internalErr("load user", err)
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		s.log.Error("verify password", zap.Uint64("user_id", u.ID), zap.Error(err))
		return AuthResult{}, internalErr("verify password", err)
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

// ForgotPassword issues a reset token for the account behind email. Unlike
// Login it reports unknown emails as ErrUserNotFound.
func (s *CredentialService) ForgotPassword(ctx context.Context, email string) (ResetGrant, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ResetGrant{}, ErrUserNotFound
	}
	if err != nil {
		s.log.Error("load user by email", zap.Error(err))
		return ResetGrant{}, internalErr("load user", err)
	}

	grant, err := s.resets.IssueFor(ctx, u.ID)
	if err != nil {
		return ResetGrant{}, err
	}
	if err := s.notifier.PasswordResetRequested(ctx, u.View(), grant.Token, grant.ExpiresAt); err != nil {
		s.log.Warn("notify reset requested", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	return grant, nil
}

// ResetPassword redeems token and sets newPassword, which the caller has
// already checked against the password policy.
func (s *CredentialService) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := s.resets.Redeem(ctx, token, newPassword)
	return err
}

// Authenticate verifies a session token.
func (s *CredentialService) Authenticate(_ context.Context, bearer string) (utils.Claims, error) {
	c, err := s.signer.Verify(bearer)
	if err != nil {
		return utils.Claims{}, ErrUnauthorized
	}
	return c, nil
}

func (s *CredentialService) issue(u model.User) (AuthResult, error) {
	tok, err := s.signer.Issue(utils.Claims{Subject: u.ID, Role: u.Role})
	if err != nil {
		s.log.Error("sign session token", zap.Uint64("user_id", u.ID), zap.Error(err))
		return AuthResult{}, internalErr("sign token", err)
	}
	return AuthResult{Token: tok.Token, ExpiresAt: tok.ExpiresAt, User: u.View()}, nil
}

// burnCompare spends one bcrypt comparison against a throwaway digest.
func (s *CredentialService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password-0")
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}
