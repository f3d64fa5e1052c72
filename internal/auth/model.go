package auth

import (
	"time"

	"github.com/google/uuid"
)

// Operator roles.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User represents a row in the users table. Every price tier, invoice and
// settings row is owned by a user.
type User struct {
	ID           uuid.UUID
	Name         string
	Role         string
	ApiKeyPrefix string
	ApiKeyHash   string
	CreatedAt    time.Time
	RevokedAt    *time.Time
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID   uuid.UUID
	UserName string
	Role     string
}

// IsAdmin reports whether the identity may manage other users.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
