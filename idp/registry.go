package idp

import "sort"

// Registry is the explicit set of configured providers. It is built once at
// process start from configuration and passed by reference; there is no
// package-level provider list.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers. Nil entries are
// skipped, which is how absent provider credentials disable a provider
// without error.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
	}

	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Name()] = p
	}

	return r
}

// Get returns the named provider or ErrProviderNotFound.
func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, ErrProviderNotFound
	}

	p, ok := r.providers[name]
	if !ok {
		clone := ErrProviderNotFound.Clone()
		if clone == nil {
			return nil, ErrProviderNotFound
		}
		return nil, clone.WithMetadata(map[string]any{"provider": name})
	}

	return p, nil
}

// Empty reports whether no provider is configured; the sign-in surface uses
// this to show its configuration-error state instead of crashing.
func (r *Registry) Empty() bool {
	return r == nil || len(r.providers) == 0
}

// Names returns the configured provider names in stable order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
