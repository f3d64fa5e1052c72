package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billdesk/billdesk/internal/provider"
)

// fakeProvider is a no-op Provider for registry tests.
type fakeProvider struct{}

func (f *fakeProvider) IncomingTransfers(_ context.Context, _ provider.TransferQuery) ([]provider.Transfer, error) {
	return nil, nil
}

func (f *fakeProvider) CheckConnectivity(_ context.Context) provider.ConnectivityStatus {
	return provider.ConnectivityStatus{Connected: true}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	fp := &fakeProvider{}
	reg.Register(provider.NetworkTRC20, fp)

	got, err := reg.Get(provider.NetworkTRC20)
	require.NoError(t, err)
	assert.Equal(t, fp, got)
}

func TestRegistry_GetUnknown(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()

	_, err := reg.Get("erc20")
	assert.ErrorIs(t, err, provider.ErrUnknownNetwork)
	assert.Contains(t, err.Error(), `"erc20"`)
}

func TestRegistry_Has(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	reg.Register(provider.NetworkTRC20, &fakeProvider{})

	assert.True(t, reg.Has(provider.NetworkTRC20))
	assert.False(t, reg.Has("erc20"))
}

func TestRegistry_Networks(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry()
	reg.Register("trc20", &fakeProvider{})
	reg.Register("bep20", &fakeProvider{})

	assert.Equal(t, []string{"bep20", "trc20"}, reg.Networks())
	assert.Empty(t, provider.NewRegistry().Networks())
}
