package formatter

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the closed set of known formatters. Adding a formatter is
// a compile-time registration from the command wiring, not dynamic
// discovery.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a formatter registration. Duplicate names are an error.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("formatter registration requires a name")
	}
	if reg.New == nil {
		return fmt.Errorf("formatter %q registration requires a constructor", reg.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[reg.Name]; exists {
		return fmt.Errorf("formatter %q already registered", reg.Name)
	}
	r.entries[reg.Name] = reg
	return nil
}

// Get returns the registration for a formatter name.
func (r *Registry) Get(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok {
		return Registration{}, fmt.Errorf("unknown formatter: %q", name)
	}
	return reg, nil
}

// Has reports whether a formatter name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns all registered formatter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
