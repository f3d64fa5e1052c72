package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/billdesk/billdesk/internal/invoice"
)

const (
	maxInvoiceItems = 50
	maxNoteLength   = 1000
)

var validStatuses = map[string]bool{
	invoice.StatusPending:   true,
	invoice.StatusPaid:      true,
	invoice.StatusCancelled: true,
}

// InvoiceItem mirrors one requested line item.
type InvoiceItem struct {
	Credits int64
	Price   *decimal.Decimal
}

// CreateInvoiceRequest mirrors the fields needed for create invoice validation.
type CreateInvoiceRequest struct {
	Items         []InvoiceItem
	WalletAddress string
	CustomerNote  string
}

// ValidateCreateInvoiceRequest validates the fields of a create invoice request.
// An empty wallet address is allowed; the owner's configured wallet is used.
func ValidateCreateInvoiceRequest(req CreateInvoiceRequest) []FieldError {
	var errs []FieldError

	switch {
	case len(req.Items) == 0:
		errs = append(errs, FieldError{Field: "items", Message: "items must contain at least one item"})
	case len(req.Items) > maxInvoiceItems:
		errs = append(errs, FieldError{Field: "items", Message: fmt.Sprintf("items must contain at most %d items", maxInvoiceItems)})
	}

	for i, it := range req.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if it.Credits <= 0 {
			errs = append(errs, FieldError{Field: prefix + "credits", Message: "credits must be a positive integer"})
		}
		if it.Price != nil {
			errs = append(errs, validatePrice(prefix+"price", *it.Price)...)
		}
	}

	if wallet := strings.TrimSpace(req.WalletAddress); wallet != "" && !TronAddressRegex.MatchString(wallet) {
		errs = append(errs, FieldError{Field: "walletAddress", Message: tronAddressMessage})
	}

	if len(req.CustomerNote) > maxNoteLength {
		errs = append(errs, FieldError{Field: "customerNote", Message: fmt.Sprintf("customerNote must be at most %d characters", maxNoteLength)})
	}

	return errs
}

// ValidateStatus validates an invoice status value.
func ValidateStatus(field, status string) []FieldError {
	if status == "" {
		return []FieldError{{Field: field, Message: field + " is required"}}
	}
	if !validStatuses[status] {
		return []FieldError{{Field: field, Message: fmt.Sprintf("%s must be one of: %s", field, joinKeys(validStatuses))}}
	}
	return nil
}
