package modelrt

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps type names to serializers.
type Registry struct {
	mu          sync.RWMutex
	serializers map[string]AnySerializer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{serializers: make(map[string]AnySerializer)}
}

// Register adds s under its type name. A name can be registered once.
func (r *Registry) Register(s AnySerializer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.TypeName()
	if _, dup := r.serializers[name]; dup {
		return fmt.Errorf("modelrt: serializer %q already registered", name)
	}
	r.serializers[name] = s
	return nil
}

// Lookup returns the serializer registered under name.
func (r *Registry) Lookup(name string) (AnySerializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.serializers[name]
	return s, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.serializers))
	for name := range r.serializers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var defaultRegistry = NewRegistry()

// Register adds s to the default registry. Generated serializers.go files
// call it from init; registering the same type name twice panics, as two
// packages binding one name is a build defect.
func Register(s AnySerializer) {
	if err := defaultRegistry.Register(s); err != nil {
		panic(err)
	}
}

// Lookup returns the serializer registered under name in the default
// registry.
func Lookup(name string) (AnySerializer, bool) {
	return defaultRegistry.Lookup(name)
}

// Names returns the type names in the default registry.
func Names() []string {
	return defaultRegistry.Names()
}
