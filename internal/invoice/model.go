package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a known invoice status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Invoice represents a row in the invoices table together with its items.
type Invoice struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Number        string
	CustomerNote  string
	TotalCredits  int64
	TotalAmount   decimal.Decimal
	WalletAddress string
	Status        string
	TransactionID *string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []Item
}

// Item is one purchased credits package on an invoice.
type Item struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Credits   int64
	Price     decimal.Decimal
	SortOrder int
	CreatedAt time.Time
}

// ListFilter holds optional filters and pagination for listing invoices.
type ListFilter struct {
	OwnerID uuid.UUID
	Search  *string // partial match on invoice number (ILIKE)
	Status  *string
	From    *time.Time
	To      *time.Time
	Page    int // default 1
	Limit   int // default 20
}

// PendingFilter selects a page of pending invoices for the payment poller.
// Rows are ordered by (created_at, id); pass the last row of a page as
// AfterCreatedAt/AfterID to fetch the next one.
type PendingFilter struct {
	CreatedSince   time.Time // zero means no lower bound
	AfterCreatedAt time.Time
	AfterID        uuid.UUID // uuid.Nil starts at the first page
	Limit          int       // default 100
}

// ListResult holds the result of a paginated list query.
type ListResult struct {
	Invoices []Invoice
	Total    int
	Page     int
	Limit    int
}

// Payment records the on-chain transfer that settled an invoice.
type Payment struct {
	TransactionID string
	PaidAt        time.Time
}

// Stats summarises an owner's invoices.
type Stats struct {
	TotalAmount    decimal.Decimal
	TotalCredits   int64
	InvoiceCount   int
	PaidCount      int
	PendingCount   int
	CancelledCount int
	Monthly        []MonthlyStat
}

// MonthlyStat is the invoice volume of one calendar month (YYYY-MM).
type MonthlyStat struct {
	Month  string
	Amount decimal.Decimal
	Count  int
}
