package tier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// allColumns is the ordered list of columns scanned from the price_tiers table.
const allColumns = `id, owner_id, credits, min_numbers, max_numbers,
	unit_price, price, sort_order, created_at, updated_at`

// scanTier scans a single Tier from a row.
func scanTier(row pgx.Row) (*Tier, error) {
	var t Tier
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Credits,
		&t.MinNumbers, &t.MaxNumbers,
		&t.UnitPrice, &t.Price, &t.SortOrder,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("scanning tier row: %w", err)
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new tier record.
func (r *PostgresRepository) Create(ctx context.Context, t *Tier) error {
	query := fmt.Sprintf(`
		INSERT INTO price_tiers (owner_id, credits, min_numbers, max_numbers, unit_price, price, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, allColumns)

	created, err := scanTier(r.pool.QueryRow(ctx, query,
		t.OwnerID, t.Credits, t.MinNumbers, t.MaxNumbers,
		t.UnitPrice, t.Price, t.SortOrder,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCredits
		}
		return fmt.Errorf("inserting tier: %w", err)
	}

	*t = *created
	return nil
}

// GetByID retrieves a single tier by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Tier, error) {
	query := fmt.Sprintf(`SELECT %s FROM price_tiers WHERE id = $1 AND owner_id = $2`, allColumns)
	return scanTier(r.pool.QueryRow(ctx, query, id, ownerID))
}

// List retrieves all of the owner's tiers ordered by credits.
func (r *PostgresRepository) List(ctx context.Context, ownerID uuid.UUID) ([]Tier, error) {
	query := fmt.Sprintf(`SELECT %s FROM price_tiers WHERE owner_id = $1 ORDER BY credits ASC`, allColumns)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing tiers: %w", err)
	}
	defer rows.Close()

	tiers := []Tier{}
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tier rows: %w", err)
	}

	return tiers, nil
}

// Update modifies non-nil fields on a tier. Returns the updated tier.
func (r *PostgresRepository) Update(ctx context.Context, ownerID, id uuid.UUID, fields UpdateFields) (*Tier, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if fields.Credits != nil {
		set("credits", *fields.Credits)
	}
	if fields.MinNumbers != nil {
		set("min_numbers", *fields.MinNumbers)
	}
	if fields.MaxNumbers != nil {
		set("max_numbers", *fields.MaxNumbers)
	}
	if fields.UnitPrice != nil {
		set("unit_price", *fields.UnitPrice)
	}
	if fields.Price != nil {
		set("price", *fields.Price)
	}
	if fields.SortOrder != nil {
		set("sort_order", *fields.SortOrder)
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, ownerID, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")

	args = append(args, id, ownerID)

	query := fmt.Sprintf(`
		UPDATE price_tiers
		SET %s
		WHERE id = $%d AND owner_id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1, allColumns)

	t, err := scanTier(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCredits
		}
		return nil, err
	}
	return t, nil
}

// Delete removes a tier by its UUID.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM price_tiers WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTierNotFound
	}

	return nil
}

// BulkCreate inserts tiers in a single transaction, skipping credits values
// the owner already has.
func (r *PostgresRepository) BulkCreate(ctx context.Context, ownerID uuid.UUID, tiers []Tier) (int, error) {
	if len(tiers) == 0 {
		return 0, nil
	}

	inserted := 0
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range tiers {
			batch.Queue(`
				INSERT INTO price_tiers (owner_id, credits, min_numbers, max_numbers, unit_price, price, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (owner_id, credits) DO NOTHING`,
				ownerID, t.Credits, t.MinNumbers, t.MaxNumbers, t.UnitPrice, t.Price, t.SortOrder,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range tiers {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return err
			}
			inserted += int(tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("bulk inserting tiers: %w", err)
	}

	return inserted, nil
}
