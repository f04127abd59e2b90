package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds every CompiledType produced by compiling one or more
// connector schema documents: resources, their nested schemas, resource
// collections, and synthesized anonymous structures. It is the shared
// lookup table the Field-Path Engine and Check Evaluator walk at runtime.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*CompiledType

	// resources maps provider -> resource type names declared under
	// that provider's "resources" section (excludes nested schemas).
	resources map[string][]string

	// collections maps provider -> the fully-qualified name of its
	// resource_collection type.
	collections map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		types:       make(map[string]*CompiledType),
		resources:   make(map[string][]string),
		collections: make(map[string]string),
	}
}

// Register adds or replaces a compiled type.
func (r *Registry) Register(ct *CompiledType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[ct.Name] = ct
}

// Lookup returns the compiled type for a fully-qualified name.
func (r *Registry) Lookup(fqName string) (*CompiledType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[fqName]
	return ct, ok
}

// MustLookup panics if the type is not registered. Reserved for call
// sites downstream of a successful Compile, where a missing reference
// indicates a compiler bug rather than bad input.
func (r *Registry) MustLookup(fqName string) *CompiledType {
	ct, ok := r.Lookup(fqName)
	if !ok {
		panic(fmt.Sprintf("schema: unregistered type %q", fqName))
	}
	return ct
}

func (r *Registry) markResource(provider, fqName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[provider] = append(r.resources[provider], fqName)
}

func (r *Registry) markCollection(provider, fqName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[provider] = fqName
}

// ResourceTypes returns the fully-qualified names of the resource types
// declared under a provider, in declaration order.
func (r *Registry) ResourceTypes(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.resources[provider]))
	copy(out, r.resources[provider])
	return out
}

// CollectionType returns the resource_collection type name for a
// provider, if one was compiled.
func (r *Registry) CollectionType(provider string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.collections[provider]
	return name, ok
}

// Providers returns the sorted set of providers with at least one
// compiled resource type.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.resources))
	for p := range r.resources {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AllTypes returns every compiled type, sorted by name for deterministic
// iteration (e.g. when dumping a registry for diagnostics).
func (r *Registry) AllTypes() []*CompiledType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*CompiledType, 0, len(r.types))
	for _, ct := range r.types {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
