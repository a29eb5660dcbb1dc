package service

import (
	"context"
	"time"

	"github.com/iliyamo/user-management-api/internal/model"
)

// Notifier receives account events. Calls are fire-and-forget: a failure is
// logged by the caller and never fails the request.
type Notifier interface {
	UserRegistered(ctx context.Context, u model.UserView) error
	PasswordResetRequested(ctx context.Context, u model.UserView, token string, expiresAt time.Time) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) UserRegistered(context.Context, model.UserView) error { return nil }

func (NopNotifier) PasswordResetRequested(context.Context, model.UserView, string, time.Time) error {
	return nil
}
