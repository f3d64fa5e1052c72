package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/billdesk/billdesk/internal/api/validation"
)

func TestCreateUser(t *testing.T) {
	t.Parallel()

	assert.Empty(t, validation.ValidateCreateUserRequest(validation.CreateUserRequest{Name: "alice"}))
	assert.Empty(t, validation.ValidateCreateUserRequest(validation.CreateUserRequest{Name: "alice", Role: "admin"}))

	assertFieldError(t, validation.ValidateCreateUserRequest(validation.CreateUserRequest{Name: "  "}), "name", "required")
	assertFieldError(t, validation.ValidateCreateUserRequest(validation.CreateUserRequest{Name: strings.Repeat("a", 256)}), "name", "at most 255")
	assertFieldError(t, validation.ValidateCreateUserRequest(validation.CreateUserRequest{Name: "bob", Role: "root"}), "role", `"admin", "operator"`)
}
