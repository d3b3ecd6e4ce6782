package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps resolution policy names to resolvers.
type Registry struct {
	resolvers map[string]Resolver
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[string]Resolver),
	}
}

// NewDefaultRegistry creates a registry holding the built-in policies.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(CreatorChosen{})
	_ = r.Register(NewRandomOutcome(nil))
	return r
}

// Register adds a resolver, replacing any resolver with the same name.
func (r *Registry) Register(res Resolver) error {
	if res == nil {
		return fmt.Errorf("cannot register nil resolver")
	}
	if res.Name() == "" {
		return fmt.Errorf("resolver name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[res.Name()] = res
	return nil
}

// Get retrieves a resolver by policy name.
func (r *Registry) Get(name string) (Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return res, nil
}

// Names returns the registered policy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resolvers))
	for name := range r.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered resolvers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resolvers)
}
