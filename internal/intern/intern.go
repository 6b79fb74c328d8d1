// Package intern maps strings to small integer ids.
//
// A Registry belongs to one engine and lives as long as it does, so tests and
// concurrent engines never see each other's ids.
package intern

import "sync"

// Registry assigns ids in first-seen order, starting at 0. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ids   map[string]int
	names []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ids: make(map[string]int)}
}

// ID returns the id of s, assigning the next free one on first use.
func (r *Registry) ID(s string) int {
	r.mu.RLock()
	id, ok := r.ids[s]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[s]; ok {
		return id
	}
	id = len(r.names)
	r.ids[s] = id
	r.names = append(r.names, s)
	return id
}

// Lookup returns the id of s without assigning one.
func (r *Registry) Lookup(s string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[s]
	return id, ok
}

// Name returns the string behind id.
func (r *Registry) Name(id int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

// Len returns the number of interned strings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Reset forgets every id.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[string]int)
	r.names = nil
}
