package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/store"
)

// Provisioner turns account signup events into application user rows.
// Redelivered events are harmless because PutUser is an upsert.
type Provisioner struct {
	users store.UserStore
}

func NewProvisioner(users store.UserStore) *Provisioner {
	return &Provisioner{users: users}
}

// HandleSignupMessage processes a single signup event from AMQP
func (w *Provisioner) HandleSignupMessage(ctx context.Context, msg *amqp.UserSignupMessage) error {
	slog.InfoContext(ctx, "Provisioning user",
		"user_id", msg.UserID,
		"email", msg.Email)

	user := core.User{
		ID:    msg.UserID,
		Name:  msg.Name,
		Email: msg.Email,
		Role:  core.RoleNormal,
	}

	if err := w.users.PutUser(ctx, user); err != nil {
		return fmt.Errorf("provision user %s: %w", msg.UserID, err)
	}

	slog.InfoContext(ctx, "User provisioned", "user_id", msg.UserID)
	return nil
}

// StartupCheck makes sure the user store answers before the worker
// starts consuming, so broken storage fails fast instead of nacking
// every message in the queue.
func (w *Provisioner) StartupCheck(ctx context.Context) error {
	if _, err := w.users.GetUser(ctx, "startup-probe"); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("user store not ready: %w", err)
	}
	return nil
}
