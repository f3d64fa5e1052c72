package tier

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billdesk/billdesk/internal/pricing"
)

// Tier represents a row in the price_tiers table.
type Tier struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Credits    int64
	MinNumbers int
	MaxNumbers int
	UnitPrice  decimal.Decimal
	Price      decimal.Decimal
	SortOrder  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UpdateFields holds optional fields for a partial tier update.
// Nil fields are not updated.
type UpdateFields struct {
	Credits    *int64
	MinNumbers *int
	MaxNumbers *int
	UnitPrice  *decimal.Decimal
	Price      *decimal.Decimal
	SortOrder  *int
}

// Snapshot converts stored tiers into the interpolator's input.
func Snapshot(tiers []Tier) []pricing.Tier {
	out := make([]pricing.Tier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, pricing.Tier{
			Credits:   t.Credits,
			UnitPrice: t.UnitPrice,
			Price:     t.Price,
		})
	}
	return out
}

// FromDefaults builds owner rows from the standard package table.
func FromDefaults(ownerID uuid.UUID) []Tier {
	defaults := pricing.DefaultTiers()
	out := make([]Tier, 0, len(defaults))
	for i, d := range defaults {
		out = append(out, Tier{
			OwnerID:    ownerID,
			Credits:    d.Credits,
			MinNumbers: d.MinNumbers,
			MaxNumbers: d.MaxNumbers,
			UnitPrice:  d.UnitPrice,
			Price:      d.Price,
			SortOrder:  i,
		})
	}
	return out
}
