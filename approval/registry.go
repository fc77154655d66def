// Package approval gates which ingested documents are visible to end users.
//
// Every ingested document starts pending; only an explicit Approve makes
// its fragments eligible for student-facing retrieval. State is held in
// memory and is lost on restart, so documents found on disk at startup
// are registered as pending again.
package approval

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/poiesic/docent/core"
)

// Registry maps document keys to their approval state.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	approved map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{approved: make(map[string]bool)}
}

// Register marks key pending, resetting any earlier approval.
func (r *Registry) Register(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approved[key] = false
}

// Approve makes key visible to end users.
func (r *Registry) Approve(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.approved[key]; !ok {
		return fmt.Errorf("%w: %s", core.ErrDocumentNotFound, key)
	}
	r.approved[key] = true
	return nil
}

// Delete forgets key.
func (r *Registry) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.approved[key]; !ok {
		return fmt.Errorf("%w: %s", core.ErrDocumentNotFound, key)
	}
	delete(r.approved, key)
	return nil
}

// IsApproved reports whether key is known and approved.
func (r *Registry) IsApproved(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approved[key]
}

// State returns the state of key and whether it is known.
func (r *Registry) State(key string) (core.ApprovalState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	approved, ok := r.approved[key]
	if !ok {
		return 0, false
	}
	if approved {
		return core.StateApproved, true
	}
	return core.StatePending, true
}

// Snapshot returns a copy of every key's state.
func (r *Registry) Snapshot() map[string]core.ApprovalState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]core.ApprovalState, len(r.approved))
	for key, approved := range r.approved {
		if approved {
			out[key] = core.StateApproved
		} else {
			out[key] = core.StatePending
		}
	}
	return out
}

// Keys returns every registered key in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.approved))
}
