package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves the settings row for an owner.
func (r *PostgresRepository) Get(ctx context.Context, ownerID uuid.UUID) (*Settings, error) {
	query := `
		SELECT owner_id, wallet_address, company_name, created_at, updated_at
		FROM user_settings
		WHERE owner_id = $1`

	var s Settings
	err := r.pool.QueryRow(ctx, query, ownerID).Scan(
		&s.OwnerID, &s.WalletAddress, &s.CompanyName, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("querying settings: %w", err)
	}

	return &s, nil
}

// Upsert inserts or replaces the owner's settings.
func (r *PostgresRepository) Upsert(ctx context.Context, s *Settings) error {
	query := `
		INSERT INTO user_settings (owner_id, wallet_address, company_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE
		SET wallet_address = EXCLUDED.wallet_address,
		    company_name = EXCLUDED.company_name,
		    updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, s.OwnerID, s.WalletAddress, s.CompanyName).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting settings: %w", err)
	}

	return nil
}
