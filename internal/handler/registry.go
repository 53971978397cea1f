package handler

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds registered handlers keyed by job kind.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler to the registry under the given kind.
func (r *Registry) Register(kind string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Resolve returns the handler for the given job kind.
func (r *Registry) Resolve(kind string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("handler %q is not registered", kind)
	}
	return h, nil
}

// Known reports whether a handler is registered for the given kind.
func (r *Registry) Known(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// List returns information about all registered handlers, sorted by name
// for a stable API response.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.handlers))
	for _, h := range r.handlers {
		infos = append(infos, h.Describe())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
