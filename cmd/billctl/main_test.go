package main

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billdesk/billdesk/internal/pricing"
)

func run(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run("version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestQuote_RejectsNonPositiveCredits(t *testing.T) {
	_, err := run("quote", "--owner", uuid.NewString(), "--credits", "0")
	assert.ErrorIs(t, err, pricing.ErrInvalidCredits)
}

func TestQuote_RequiresFlags(t *testing.T) {
	_, err := run("quote", "--credits", "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner")
}

func TestTiersImportDefaults_InvalidOwner(t *testing.T) {
	_, err := run("tiers", "import-defaults", "--owner", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--owner must be a user id")
}

func TestUsersCreate_InvalidRole(t *testing.T) {
	_, err := run("users", "create", "--name", "bob", "--role", "root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role must be one of")
}

func TestUsersCreate_BlankName(t *testing.T) {
	_, err := run("users", "create", "--name", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}
