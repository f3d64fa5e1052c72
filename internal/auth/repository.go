package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no operator has the given id.
var ErrUserNotFound = errors.New("user not found")

// ErrUserRevoked is returned when the operator's API key was already revoked.
var ErrUserRevoked = errors.New("user is revoked")

// UserRepository stores billing operators and the bcrypt hashes of their
// bill_ API keys.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByPrefix returns the active operators whose key starts with prefix
	// (the first 8 characters of a bill_ key). Callers verify the hash.
	FindByPrefix(ctx context.Context, prefix string) ([]User, error)
	List(ctx context.Context) ([]User, error)
	// Revoke disables an operator's key; invoices and tiers they own are kept.
	Revoke(ctx context.Context, id uuid.UUID) error
	// CountAll counts operators including revoked ones. Zero means the admin
	// has not been bootstrapped yet.
	CountAll(ctx context.Context) (int, error)
}
