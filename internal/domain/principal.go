package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserID is a value object for user identity. Users live in the external
// identity provider; this system only borrows a read-only view per request.
type UserID struct{ uuid.UUID }

// NewUserID creates a new UserID from uuid.
func NewUserID(id uuid.UUID) UserID { return UserID{UUID: id} }

// String returns the canonical string form.
func (u UserID) String() string { return u.UUID.String() }

// Principal is the identity attached to a request after token verification.
// Derived from identity-provider claims, never persisted.
type Principal struct {
	ID            UserID
	Email         string
	EmailVerified bool
	RoleHint      string
	CreatedAt     time.Time
}
