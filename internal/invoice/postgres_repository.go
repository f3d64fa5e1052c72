package invoice

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

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const invoiceColumns = `id, owner_id, invoice_number, customer_note, total_credits, total_amount,
	wallet_address, status, transaction_id, paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.OwnerID, &inv.Number, &inv.CustomerNote,
		&inv.TotalCredits, &inv.TotalAmount, &inv.WalletAddress,
		&inv.Status, &inv.TransactionID, &inv.PaidAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("scanning invoice row: %w", err)
	}
	return &inv, nil
}

func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Create inserts an invoice and its items in one transaction. Status defaults
// to pending.
func (r *PostgresRepository) Create(ctx context.Context, inv *Invoice) error {
	if inv.Status == "" {
		inv.Status = StatusPending
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (owner_id, invoice_number, customer_note, total_credits,
			                      total_amount, wallet_address, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`,
			inv.OwnerID, inv.Number, inv.CustomerNote, inv.TotalCredits,
			inv.TotalAmount, inv.WalletAddress, inv.Status,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return ErrDuplicateNumber
			}
			return err
		}

		for i := range inv.Items {
			item := &inv.Items[i]
			item.InvoiceID = inv.ID
			item.SortOrder = i
			err := tx.QueryRow(ctx, `
				INSERT INTO invoice_items (invoice_id, credits, price, sort_order)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at`,
				item.InvoiceID, item.Credits, item.Price, item.SortOrder,
			).Scan(&item.ID, &item.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("inserting invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice with its items.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 AND owner_id = $2`, invoiceColumns)
	return r.getWithItems(ctx, query, id, ownerID)
}

// GetByNumber retrieves an invoice by its number with its items.
func (r *PostgresRepository) GetByNumber(ctx context.Context, ownerID uuid.UUID, number string) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE invoice_number = $1 AND owner_id = $2`, invoiceColumns)
	return r.getWithItems(ctx, query, number, ownerID)
}

func (r *PostgresRepository) getWithItems(ctx context.Context, query string, args ...any) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	items, err := r.items(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (r *PostgresRepository) items(ctx context.Context, invoiceID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, credits, price, sort_order, created_at
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY sort_order ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing invoice items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Credits, &it.Price, &it.SortOrder, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning invoice item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice item rows: %w", err)
	}
	return items, nil
}

// List retrieves a paginated, filtered list of an owner's invoices, newest
// first. Items are not loaded.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	conditions := []string{"owner_id = $1"}
	args := []any{filter.OwnerID}
	argIdx := 2

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("invoice_number ILIKE $%d", argIdx))
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM invoices %s", whereClause), args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("counting invoices: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit

	dataQuery := fmt.Sprintf(`
		SELECT %s
		FROM invoices
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, invoiceColumns, whereClause, argIdx, argIdx+1)

	args = append(args, filter.Limit, offset)

	invoices, err := r.queryInvoices(ctx, dataQuery, args...)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Invoices: invoices,
		Total:    total,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}, nil
}

func (r *PostgresRepository) queryInvoices(ctx context.Context, query string, args ...any) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}
	return invoices, nil
}

// UpdateStatus sets the status of an owner's invoice. Moving to paid stamps
// paid_at if it was not already set.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, status string) (*Invoice, error) {
	query := fmt.Sprintf(`
		UPDATE invoices
		SET status = $1,
		    paid_at = CASE WHEN $1 = 'paid' THEN COALESCE(paid_at, NOW()) ELSE paid_at END,
		    updated_at = NOW()
		WHERE id = $2 AND owner_id = $3
		RETURNING %s`, invoiceColumns)

	if _, err := scanInvoice(r.pool.QueryRow(ctx, query, status, id, ownerID)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ownerID, id)
}

// MarkPaid settles a pending invoice with an on-chain transaction.
func (r *PostgresRepository) MarkPaid(ctx context.Context, id uuid.UUID, p Payment) (*Invoice, error) {
	query := fmt.Sprintf(`
		UPDATE invoices
		SET status = 'paid', transaction_id = $1, paid_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'pending'
		RETURNING %s`, invoiceColumns)

	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, p.TransactionID, p.PaidAt, id))
	if err == nil {
		return inv, nil
	}
	if _, ok := uniqueViolation(err); ok {
		return nil, ErrTransactionClaimed
	}
	if !errors.Is(err, ErrInvoiceNotFound) {
		return nil, fmt.Errorf("marking invoice paid: %w", err)
	}

	// Distinguish a missing invoice from one that is no longer pending
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM invoices WHERE id = $1)", id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking invoice existence: %w", err)
	}
	if !exists {
		return nil, ErrInvoiceNotFound
	}
	return nil, ErrNotPending
}

// ListPending returns one page of pending invoices across all owners, oldest
// first, keyed on (created_at, id).
func (r *PostgresRepository) ListPending(ctx context.Context, filter PendingFilter) ([]Invoice, error) {
	if filter.Limit < 1 {
		filter.Limit = 100
	}

	where := []string{"status = 'pending'"}
	var args []any
	argIdx := 1

	if !filter.CreatedSince.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, filter.CreatedSince)
		argIdx++
	}
	if filter.AfterID != uuid.Nil {
		where = append(where, fmt.Sprintf("(created_at, id) > ($%d, $%d)", argIdx, argIdx+1))
		args = append(args, filter.AfterCreatedAt, filter.AfterID)
		argIdx += 2
	}

	query := fmt.Sprintf(`
		SELECT %s FROM invoices
		WHERE %s
		ORDER BY created_at ASC, id ASC
		LIMIT $%d`, invoiceColumns, strings.Join(where, " AND "), argIdx)
	args = append(args, filter.Limit)
	return r.queryInvoices(ctx, query, args...)
}

// Delete removes an invoice; its items are removed by cascade.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// NumberExists reports whether any invoice already uses number.
func (r *PostgresRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = $1)", number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking invoice number: %w", err)
	}
	return exists, nil
}

// Stats aggregates the owner's invoices: totals, counts by status and the
// last six months by calendar month.
func (r *PostgresRepository) Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_credits), 0)::BIGINT,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'paid'),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM invoices
		WHERE owner_id = $1`, ownerID,
	).Scan(&s.TotalAmount, &s.TotalCredits, &s.InvoiceCount, &s.PaidCount, &s.PendingCount, &s.CancelledCount)
	if err != nil {
		return nil, fmt.Errorf("aggregating invoices: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
		       COALESCE(SUM(total_amount), 0),
		       COUNT(*)
		FROM invoices
		WHERE owner_id = $1 AND created_at >= NOW() - INTERVAL '6 months'
		GROUP BY 1
		ORDER BY 1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("aggregating monthly invoices: %w", err)
	}
	defer rows.Close()

	s.Monthly = []MonthlyStat{}
	for rows.Next() {
		var m MonthlyStat
		if err := rows.Scan(&m.Month, &m.Amount, &m.Count); err != nil {
			return nil, fmt.Errorf("scanning monthly row: %w", err)
		}
		s.Monthly = append(s.Monthly, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating monthly rows: %w", err)
	}

	return &s, nil
}
