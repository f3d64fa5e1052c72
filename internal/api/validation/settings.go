package validation

import (
	"regexp"
	"strings"
)

// TronAddressRegex matches a base58check Tron account address.
var TronAddressRegex = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)

const tronAddressMessage = "walletAddress must be a Tron address (T followed by 33 base58 characters)"

// UpdateSettingsRequest mirrors the fields needed for settings validation.
// Nil fields are left unchanged.
type UpdateSettingsRequest struct {
	WalletAddress *string
	CompanyName   *string
}

// ValidateUpdateSettingsRequest validates only non-nil fields. An empty
// wallet address clears it.
func ValidateUpdateSettingsRequest(req UpdateSettingsRequest) []FieldError {
	var errs []FieldError

	if req.WalletAddress != nil {
		wallet := strings.TrimSpace(*req.WalletAddress)
		if wallet != "" && !TronAddressRegex.MatchString(wallet) {
			errs = append(errs, FieldError{Field: "walletAddress", Message: tronAddressMessage})
		}
	}

	if req.CompanyName != nil && len(strings.TrimSpace(*req.CompanyName)) > 255 {
		errs = append(errs, FieldError{Field: "companyName", Message: "companyName must be at most 255 characters"})
	}

	return errs
}
