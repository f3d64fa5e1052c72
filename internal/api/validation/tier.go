package validation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const maxBulkTiers = 100

var (
	// maxPrice and maxUnitPrice are the largest values the price_tiers
	// NUMERIC(10,2) and NUMERIC(10,6) columns hold.
	maxPrice     = decimal.RequireFromString("99999999.99")
	maxUnitPrice = decimal.RequireFromString("9999.999999")
)

// CreateTierRequest mirrors the fields needed for create tier validation.
type CreateTierRequest struct {
	Credits    int64
	MinNumbers int
	MaxNumbers int
	UnitPrice  *decimal.Decimal
	Price      *decimal.Decimal
}

// ValidateCreateTierRequest validates the fields of a create tier request.
func ValidateCreateTierRequest(req CreateTierRequest) []FieldError {
	return validateTier("", req)
}

// ValidateBulkTierRequest validates every row of a bulk import. Field names
// are prefixed with the row index, e.g. "tiers[2].price".
func ValidateBulkTierRequest(rows []CreateTierRequest) []FieldError {
	if len(rows) == 0 {
		return []FieldError{{Field: "tiers", Message: "tiers must contain at least one row"}}
	}
	if len(rows) > maxBulkTiers {
		return []FieldError{{Field: "tiers", Message: fmt.Sprintf("tiers must contain at most %d rows", maxBulkTiers)}}
	}

	var errs []FieldError
	seen := make(map[int64]int, len(rows))
	for i, row := range rows {
		prefix := fmt.Sprintf("tiers[%d].", i)
		errs = append(errs, validateTier(prefix, row)...)
		if first, dup := seen[row.Credits]; dup && row.Credits > 0 {
			errs = append(errs, FieldError{
				Field:   prefix + "credits",
				Message: fmt.Sprintf("credits duplicates tiers[%d]", first),
			})
			continue
		}
		seen[row.Credits] = i
	}
	return errs
}

func validateTier(prefix string, req CreateTierRequest) []FieldError {
	var errs []FieldError

	if req.Credits <= 0 {
		errs = append(errs, FieldError{Field: prefix + "credits", Message: "credits must be a positive integer"})
	}

	errs = append(errs, validateNumbers(prefix, req.MinNumbers, req.MaxNumbers)...)

	if req.Price == nil {
		errs = append(errs, FieldError{Field: prefix + "price", Message: "price is required"})
	} else {
		errs = append(errs, validatePrice(prefix+"price", *req.Price)...)
	}

	if req.UnitPrice != nil {
		errs = append(errs, validateUnitPrice(prefix+"unitPrice", *req.UnitPrice)...)
	}

	return errs
}

// UpdateTierRequest mirrors the fields needed for update tier validation.
// Nil fields are not validated.
type UpdateTierRequest struct {
	Credits    *int64
	MinNumbers *int
	MaxNumbers *int
	UnitPrice  *decimal.Decimal
	Price      *decimal.Decimal
	SortOrder  *int
}

// ValidateUpdateTierRequest validates only non-nil fields on an update request.
func ValidateUpdateTierRequest(req UpdateTierRequest) []FieldError {
	var errs []FieldError

	if req.Credits != nil && *req.Credits <= 0 {
		errs = append(errs, FieldError{Field: "credits", Message: "credits must be a positive integer"})
	}
	if req.MinNumbers != nil && *req.MinNumbers < 0 {
		errs = append(errs, FieldError{Field: "minNumbers", Message: "minNumbers must not be negative"})
	}
	if req.MaxNumbers != nil && *req.MaxNumbers < 0 {
		errs = append(errs, FieldError{Field: "maxNumbers", Message: "maxNumbers must not be negative"})
	}
	if req.MinNumbers != nil && req.MaxNumbers != nil && *req.MinNumbers > *req.MaxNumbers {
		errs = append(errs, FieldError{Field: "maxNumbers", Message: "maxNumbers must be at least minNumbers"})
	}
	if req.Price != nil {
		errs = append(errs, validatePrice("price", *req.Price)...)
	}
	if req.UnitPrice != nil {
		errs = append(errs, validateUnitPrice("unitPrice", *req.UnitPrice)...)
	}
	if req.SortOrder != nil && *req.SortOrder < 0 {
		errs = append(errs, FieldError{Field: "sortOrder", Message: "sortOrder must not be negative"})
	}

	return errs
}

func validateNumbers(prefix string, minNumbers, maxNumbers int) []FieldError {
	var errs []FieldError
	if minNumbers < 0 {
		errs = append(errs, FieldError{Field: prefix + "minNumbers", Message: "minNumbers must not be negative"})
	}
	if maxNumbers < 0 {
		errs = append(errs, FieldError{Field: prefix + "maxNumbers", Message: "maxNumbers must not be negative"})
	}
	if minNumbers > maxNumbers {
		errs = append(errs, FieldError{Field: prefix + "maxNumbers", Message: "maxNumbers must be at least minNumbers"})
	}
	return errs
}

func validatePrice(field string, p decimal.Decimal) []FieldError {
	switch {
	case p.IsNegative():
		return []FieldError{{Field: field, Message: field + " must not be negative"}}
	case p.GreaterThan(maxPrice):
		return []FieldError{{Field: field, Message: field + " must be at most " + maxPrice.String()}}
	case !p.Equal(p.Round(2)):
		return []FieldError{{Field: field, Message: field + " must have at most 2 decimal places"}}
	}
	return nil
}

func validateUnitPrice(field string, p decimal.Decimal) []FieldError {
	switch {
	case p.IsNegative():
		return []FieldError{{Field: field, Message: field + " must not be negative"}}
	case p.GreaterThan(maxUnitPrice):
		return []FieldError{{Field: field, Message: field + " must be at most " + maxUnitPrice.String()}}
	}
	return nil
}
