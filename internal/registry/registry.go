// Package registry holds the synced sport catalogue, filtered by the
// configured allow-list.
package registry

import (
	"sync"

	"github.com/fortuna-sports/arbiter/pkg/models"
)

// SportRegistry is a thread-safe catalogue of active sports, replaced
// wholesale on every catalogue sync.
type SportRegistry struct {
	mu        sync.RWMutex
	sports    map[string]models.Sport
	allowList map[string]bool // nil = allow all active sports
}

// NewSportRegistry creates a registry. An empty allowList means "all
// active sports" per spec §6.
func NewSportRegistry(allowList []string) *SportRegistry {
	var allow map[string]bool
	if len(allowList) > 0 {
		allow = make(map[string]bool, len(allowList))
		for _, k := range allowList {
			allow[k] = true
		}
	}
	return &SportRegistry{
		sports:    make(map[string]models.Sport),
		allowList: allow,
	}
}

// Replace swaps the full catalogue, keeping only active sports that pass
// the allow-list filter.
func (r *SportRegistry) Replace(sports []models.Sport) {
	next := make(map[string]models.Sport, len(sports))
	for _, s := range sports {
		if !s.Active {
			continue
		}
		if r.allowList != nil && !r.allowList[s.Key] {
			continue
		}
		next[s.Key] = s
	}

	r.mu.Lock()
	r.sports = next
	r.mu.Unlock()
}

// Get retrieves a sport by key.
func (r *SportRegistry) Get(sportKey string) (models.Sport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sports[sportKey]
	return s, ok
}

// Keys returns the currently active, allow-listed sport keys.
func (r *SportRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.sports))
	for k := range r.sports {
		keys = append(keys, k)
	}
	return keys
}

// All returns every currently registered Sport.
func (r *SportRegistry) All() []models.Sport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Sport, 0, len(r.sports))
	for _, s := range r.sports {
		out = append(out, s)
	}
	return out
}

// Count returns the number of registered sports.
func (r *SportRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sports)
}
