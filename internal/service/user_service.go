package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/user-management-api/internal/model"
	"github.com/iliyamo/user-management-api/internal/repository"
	"github.com/iliyamo/user-management-api/internal/utils"
)

// CanAccessUser reports whether actor may read or modify user targetID:
// admins may touch anyone, everybody else only themselves.
func CanAccessUser(actor utils.Claims, targetID uint64) bool {
	return actor.Role == model.RoleAdmin || actor.Subject == targetID
}

// UpdateInput is a partial update. Empty fields are left unchanged.
type UpdateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// UserService implements the /users resource.
type UserService struct {
	users  repository.UserStore
	hasher PasswordHasher
	log    *zap.Logger
}

func NewUserService(users repository.UserStore, hasher PasswordHasher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, hasher: hasher, log: log}
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context, actor utils.Claims) ([]model.UserView, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	users, err := s.users.List(ctx)
	if err != nil {
		s.log.Error("list users", zap.Error(err))
		return nil, internalErr("list users", err)
	}
	out := make([]model.UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out, nil
}

// Get returns user id. Access is checked before existence so a non-admin
// cannot probe for other ids.
func (s *UserService) Get(ctx context.Context, actor utils.Claims, id uint64) (model.UserView, error) {
	if !CanAccessUser(actor, id) {
		return model.UserView{}, ErrForbidden
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return model.UserView{}, err
	}
	return u.View(), nil
}

// Update applies in to user id. Only admins may change roles.
func (s *UserService) Update(ctx context.Context, actor utils.Claims, id uint64, in UpdateInput) (model.UserView, error) {
	if !CanAccessUser(actor, id) {
		return model.UserView{}, ErrForbidden
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return model.UserView{}, err
	}

	if in.Role != "" && in.Role != u.Role {
		if actor.Role != model.RoleAdmin {
			return model.UserView{}, ErrForbidden
		}
		u.Role = in.Role
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	var newHash string
	if in.Password != "" {
		h, err := s.hasher.Hash(in.Password)
		if err != nil {
			s.log.Error("hash password", zap.Error(err))
			return model.UserView{}, internalErr("hash password", err)
		}
		newHash = h
	}

	// The hash read above may already be stale; only the profile columns
	// are written back.
	if err := s.mapWriteErr(id, s.users.UpdateProfile(ctx, u)); err != nil {
		return model.UserView{}, err
	}
	if newHash != "" {
		if err := s.mapWriteErr(id, s.users.UpdatePasswordHash(ctx, id, newHash)); err != nil {
			return model.UserView{}, err
		}
	}
	s.log.Info("user updated", zap.Uint64("user_id", id), zap.Uint64("actor", actor.Subject))
	return u.View(), nil
}

// Delete removes user id. Admin only.
func (s *UserService) Delete(ctx context.Context, actor utils.Claims, id uint64) error {
	if actor.Role != model.RoleAdmin {
		return ErrForbidden
	}
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		s.log.Error("delete user", zap.Uint64("user_id", id), zap.Error(err))
		return internalErr("delete user", err)
	}
	s.log.Info("user deleted", zap.Uint64("user_id", id), zap.Uint64("actor", actor.Subject))
	return nil
}

func (s *UserService) mapWriteErr(id uint64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrEmailExists):
		return ErrDuplicateEmail
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	}
	s.log.Error("update user", zap.Uint64("user_id", id), zap.Error(err))
	return internalErr("update user", err)
}

func (s *UserService) load(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		s.log.Error("load user", zap.Uint64("user_id", id), zap.Error(err))
		return model.User{}, internalErr("load user", err)
	}
	return u, nil
}
