package semantic

import (
	"fmt"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/registry"
)

// GraphRegistry manages named graph stores.
type GraphRegistry struct {
	*registry.BaseRegistry[GraphStore]
}

// NewGraphRegistry creates an empty graph store registry.
func NewGraphRegistry() *GraphRegistry {
	return &GraphRegistry{
		BaseRegistry: registry.NewBaseRegistry[GraphStore](),
	}
}

func (r *GraphRegistry) RegisterGraphStore(name string, store GraphStore) error {
	if name == "" {
		return fmt.Errorf("graph store name cannot be empty")
	}
	if store == nil {
		return fmt.Errorf("graph store cannot be nil")
	}
	return r.Register(name, store)
}

// CreateGraphStoreFromConfig builds a store for the configured backend and
// registers it under name.
func (r *GraphRegistry) CreateGraphStoreFromConfig(name string, cfg *config.GraphConfig) (GraphStore, error) {
	if name == "" {
		return nil, fmt.Errorf("graph store name cannot be empty")
	}

	store, err := NewGraphStoreFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if err := r.RegisterGraphStore(name, store); err != nil {
		return nil, fmt.Errorf("failed to register graph store: %w", err)
	}
	return store, nil
}

func (r *GraphRegistry) GetGraphStore(name string) (GraphStore, error) {
	store, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("graph store '%s' not found", name)
	}
	return store, nil
}

// NewGraphStoreFromConfig builds a graph store for the configured provider.
func NewGraphStoreFromConfig(cfg *config.GraphConfig) (GraphStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("graph config cannot be nil")
	}

	switch cfg.Provider {
	case config.GraphProviderMemory, "":
		return NewMemoryStore(), nil
	case config.GraphProviderBlazegraph:
		return NewBlazegraphStoreFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported graph provider: %s (supported: memory, blazegraph)", cfg.Provider)
	}
}
