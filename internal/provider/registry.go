package provider

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownNetwork is returned when no provider is registered for a network.
var ErrUnknownNetwork = errors.New("unknown payment network")

// NetworkTRC20 is the network name of USDT on Tron.
const NetworkTRC20 = "trc20"

// Registry maps network names to Provider implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under the given network name, replacing any
// previous one.
func (r *Registry) Register(network string, p Provider) {
	r.providers[network] = p
}

// Get returns the provider registered for network.
func (r *Registry) Get(network string) (Provider, error) {
	p, ok := r.providers[network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
	return p, nil
}

// Has reports whether a provider is registered for network.
func (r *Registry) Has(network string) bool {
	_, ok := r.providers[network]
	return ok
}

// Networks returns the registered network names, sorted.
func (r *Registry) Networks() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
