// Package store defines the ports to the backing data store and its SQLite
// implementation. Every entry read and write is scoped to the owning user;
// the admin role is the only caller allowed to see or delete user rows.
package store

import (
	"context"
	"errors"
	"time"

	"caixa/internal/core"
)

var (
	// ErrUnavailable wraps any driver or backend failure. Callers keep
	// their previous local state and surface the failure; no retry is
	// attempted at this layer.
	ErrUnavailable = errors.New("store unavailable")

	// ErrPermissionDenied marks an ownership or role mismatch.
	ErrPermissionDenied = errors.New("permission denied")

	ErrNotFound = errors.New("not found")
)

// Account is an authentication credential row. The users table holds the
// visible profile; accounts hold what sign-in needs.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

type (
	// EntryStore is the owner-scoped CRUD port over the two entry tables.
	EntryStore interface {
		// Select returns the owner's entries sorted descending by date.
		Select(ctx context.Context, kind core.Kind, ownerID string) ([]core.Entry, error)

		// Insert stores a new entry and returns it with the assigned ID.
		Insert(ctx context.Context, kind core.Kind, e core.Entry) (core.Entry, error)

		// Update replaces all mutable fields of the entry identified by
		// e.ID, scoped to e.OwnerID.
		Update(ctx context.Context, kind core.Kind, e core.Entry) error

		// SetPaid updates only the paid flag (the toggle path).
		SetPaid(ctx context.Context, kind core.Kind, id, ownerID string, paid bool) error

		// Delete removes the entry. Deleting an id that does not exist is
		// not an error, matching the remote store's semantics.
		Delete(ctx context.Context, kind core.Kind, id, ownerID string) error
	}

	// UserStore manages the users table. List and delete are restricted to
	// the admin role, enforced here the way the original backend enforced
	// it with row-level security.
	UserStore interface {
		PutUser(ctx context.Context, u core.User) error

		// SetRole changes an existing user's role. PutUser deliberately
		// leaves the role untouched on conflict, so promotion goes
		// through here.
		SetRole(ctx context.Context, id, role string) error

		GetUser(ctx context.Context, id string) (core.User, error)
		ListUsers(ctx context.Context, actor core.User) ([]core.User, error)
		DeleteUser(ctx context.Context, actor core.User, id string) error
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a Account) error
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		GetAccount(ctx context.Context, id string) (Account, error)
	}
)
