package validation

import (
	"fmt"
	"strings"

	"github.com/billdesk/billdesk/internal/auth"
)

var validRoles = map[string]bool{auth.RoleAdmin: true, auth.RoleOperator: true}

// CreateUserRequest mirrors the fields needed for create user validation.
type CreateUserRequest struct {
	Name string
	Role string
}

// ValidateCreateUserRequest validates the fields of a create user request.
// An empty role defaults to operator.
func ValidateCreateUserRequest(req CreateUserRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > 255 {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}

	if req.Role != "" && !validRoles[req.Role] {
		errs = append(errs, FieldError{Field: "role", Message: fmt.Sprintf("role must be one of: %s", joinKeys(validRoles))})
	}

	return errs
}
