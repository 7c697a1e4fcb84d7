package mode

import "sync"

type registryEntry struct {
	desc    Descriptor
	factory Factory
}

// Registry is the static table of available experiences. The controller
// resolves selections through it and never hardcodes mode names.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds an experience under its descriptor name. Names are unique.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if desc.Name == "" {
		return ErrNameEmpty
	}
	if factory == nil {
		return ErrFactoryNil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return ErrModeAlreadyExists
	}
	r.entries[desc.Name] = registryEntry{desc: desc, factory: factory}
	r.order = append(r.order, desc.Name)
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	return entry.desc, ok
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}
	return out
}

func (r *Registry) factory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	return entry.factory, ok
}
