// Package providers defines the adapter contract shared by every generation
// backend and the registry that routes jobs to them.
package providers

import (
	"context"
	"fmt"
	"sync"

	"vidiai/internal/domain"
)

// Adapter shapes requests for one external generation API and normalizes its
// status responses.
type Adapter interface {
	Provider() domain.Provider
	// Validate runs before any network call.
	Validate(req domain.GenerationRequest) error
	Submit(ctx context.Context, req domain.GenerationRequest) (string, error)
	Status(ctx context.Context, externalID string) (domain.StatusResult, error)
}

// Registry maps provider families to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.Provider]Adapter
}

// NewRegistry registers the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its provider family.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Get returns the adapter owning p.
func (r *Registry) Get(p domain.Provider) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s not registered", domain.ErrUnknownProvider, p)
	}
	return a, nil
}

// Providers lists the registered families.
func (r *Registry) Providers() []domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Provider, 0, len(r.adapters))
	for _, p := range domain.Providers() {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
