package invoice

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrInvoiceNotFound is returned when an invoice record is not found.
var ErrInvoiceNotFound = errors.New("invoice not found")

// ErrDuplicateNumber is returned when the invoice number is already taken.
var ErrDuplicateNumber = errors.New("invoice number already exists")

// ErrNotPending is returned when marking a non-pending invoice as paid.
var ErrNotPending = errors.New("invoice is not pending")

// ErrTransactionClaimed is returned when a transaction already settled another invoice.
var ErrTransactionClaimed = errors.New("transaction already settled another invoice")

// Repository provides persistence for invoices and their items.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, ownerID uuid.UUID, number string) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
	UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, status string) (*Invoice, error)
	// MarkPaid settles a pending invoice regardless of owner; used by the
	// payment poller.
	MarkPaid(ctx context.Context, id uuid.UUID, p Payment) (*Invoice, error)
	// ListPending returns one page of pending invoices of every owner,
	// oldest first.
	ListPending(ctx context.Context, filter PendingFilter) ([]Invoice, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	NumberExists(ctx context.Context, number string) (bool, error)
	Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error)
}
