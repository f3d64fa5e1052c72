package tier

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTierNotFound is returned when a tier record is not found.
var ErrTierNotFound = errors.New("tier not found")

// ErrDuplicateCredits is returned when the owner already has a tier for the same credits amount.
var ErrDuplicateCredits = errors.New("tier with these credits already exists")

// Repository provides CRUD operations on the price_tiers table. Every
// operation is scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, t *Tier) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Tier, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Tier, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, fields UpdateFields) (*Tier, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	// BulkCreate inserts tiers in one transaction, skipping credits amounts
	// the owner already has. Returns the number of rows inserted.
	BulkCreate(ctx context.Context, ownerID uuid.UUID, tiers []Tier) (int, error)
}
