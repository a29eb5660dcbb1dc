// Package queue carries account events over RabbitMQ: the API publishes
// them and the mailer consumes them.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/user-management-api/internal/model"
)

// Queue names. Each event type has its own durable queue.
const (
    UserRegisteredQueue         = "user.registered"
    PasswordResetRequestedQueue = "password.reset_requested"
)

// UserRegisteredEvent is published after a successful registration so the
// mailer can send a welcome message.
type UserRegisteredEvent struct {
    EventID      string `json:"event_id"`
    UserID       uint64 `json:"user_id"`
    Email        string `json:"email"`
    FirstName    string `json:"first_name"`
    LastName     string `json:"last_name"`
    RegisteredAt string `json:"registered_at"`
}

// PasswordResetRequestedEvent is published when a reset token is issued.
// ResetToken is the raw token the mailer delivers to the user.
type PasswordResetRequestedEvent struct {
    EventID     string `json:"event_id"`
    UserID      uint64 `json:"user_id"`
    Email       string `json:"email"`
    FirstName   string `json:"first_name"`
    ResetToken  string `json:"reset_token"`
    ExpiresAt   string `json:"expires_at"`
    RequestedAt string `json:"requested_at"`
}

func newUserRegisteredEvent(u model.UserView, now time.Time) UserRegisteredEvent {
    return UserRegisteredEvent{
        EventID:      uuid.NewString(),
        UserID:       u.ID,
        Email:        u.Email,
        FirstName:    u.FirstName,
        LastName:     u.LastName,
        RegisteredAt: now.UTC().Format(time.RFC3339),
    }
}

func newPasswordResetRequestedEvent(u model.UserView, token string, expiresAt, now time.Time) PasswordResetRequestedEvent {
    return PasswordResetRequestedEvent{
        EventID:     uuid.NewString(),
        UserID:      u.ID,
        Email:       u.Email,
        FirstName:   u.FirstName,
        ResetToken:  token,
        ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
        RequestedAt: now.UTC().Format(time.RFC3339),
    }
}
