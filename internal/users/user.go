// Package users is the verification engine's view of the externally-owned
// User entity. Only the fields verification reads or writes are modeled:
// the role, the downstream trust flag, and the policy preference flags.
package users

import (
	"context"
	"time"

	id "basera/pkg/domain"
)

// User mirrors the external User entity fields this subsystem touches.
type User struct {
	ID    id.UserID
	Role  id.Role
	Email string

	// IdentityVerified is the downstream trust flag the rest of the
	// application reads. Set on verification, actively revoked on admin
	// rejection.
	IdentityVerified bool

	// VerificationSkipped and VerificationRequired drive the policy
	// engine. Toggled by SetSkipPreference; no effect on the verification
	// record itself.
	VerificationSkipped  bool
	VerificationRequired bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence port for the external User entity.
type Store interface {
	// Find returns the user or sentinel.ErrNotFound.
	Find(ctx context.Context, userID id.UserID) (*User, error)

	// Update persists flag changes. Returns sentinel.ErrNotFound if the
	// user vanished.
	Update(ctx context.Context, user *User) error

	// Create registers a user. Returns sentinel.ErrConflict if the ID is
	// taken. Production users come from the accounts system; this exists
	// for development wiring and tests.
	Create(ctx context.Context, user *User) error
}
