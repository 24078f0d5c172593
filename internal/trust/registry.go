package trust

import (
	"slices"
	"sync"
)

// Registry hands out one Manager per subject. Different subjects never share a lock.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]*Manager
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]*Manager)}
}

// Get returns the subject's manager, creating it on first use
func (r *Registry) Get(subject string) *Manager {
	r.mu.RLock()
	m, ok := r.managers[subject]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if m, ok := r.managers[subject]; ok {
		return m
	}
	m = NewManager(subject)
	r.managers[subject] = m
	return m
}

// Subjects lists known subjects in sorted order
func (r *Registry) Subjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subjects := make([]string, 0, len(r.managers))
	for s := range r.managers {
		subjects = append(subjects, s)
	}
	slices.Sort(subjects)
	return subjects
}

// Scores returns the current score of every known subject
func (r *Registry) Scores() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scores := make(map[string]int, len(r.managers))
	for s, m := range r.managers {
		scores[s] = m.Score()
	}
	return scores
}

// ResetAll resets every subject
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.managers {
		m.Reset()
	}
}
