// Package names maps scene entities to human-readable names.
package names

import "github.com/Faultbox/gltfview/internal/render"

// Registry associates entities with names. Entries refer to entities by id
// only and do not keep any asset alive.
type Registry struct {
	names map[render.Entity]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[render.Entity]string)}
}

// Add names e, replacing any previous name.
func (r *Registry) Add(e render.Entity, name string) {
	r.names[e] = name
}

// Name returns the name of e, or "" when e is unnamed.
func (r *Registry) Name(e render.Entity) string {
	return r.names[e]
}

// Lookup returns the name of e and whether one was registered.
func (r *Registry) Lookup(e render.Entity) (string, bool) {
	n, ok := r.names[e]
	return n, ok
}

// Remove forgets e.
func (r *Registry) Remove(e render.Entity) {
	delete(r.names, e)
}

// Len returns the number of named entities.
func (r *Registry) Len() int {
	return len(r.names)
}

// Clear forgets every entity.
func (r *Registry) Clear() {
	clear(r.names)
}
