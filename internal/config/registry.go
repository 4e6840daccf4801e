package config

import (
	"path/filepath"
	"sync"
)

// Registry hands out one Store per configuration file so every consumer of a path shares the
// same in-memory document and lock. The composition root owns it.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry() *Registry {
	return &Registry{stores: map[string]*Store{}}
}

// Open returns the Store for path, creating it on first use. Paths are compared in absolute, cleaned form.
func (r *Registry) Open(path string) *Store {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[key]; ok {
		return s
	}
	s := NewStore(key)
	r.stores[key] = s
	return s
}
