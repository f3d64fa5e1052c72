package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSettingsNotFound is returned when the owner has never saved settings.
var ErrSettingsNotFound = errors.New("settings not found")

// Repository provides access to the user_settings table.
type Repository interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}

// Load returns the owner's settings, or defaults when none were saved yet.
func Load(ctx context.Context, repo Repository, ownerID uuid.UUID, defaultCompany string) (*Settings, error) {
	s, err := repo.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return &Settings{OwnerID: ownerID, CompanyName: defaultCompany}, nil
		}
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if s.CompanyName == "" {
		s.CompanyName = defaultCompany
	}
	return s, nil
}
