package subscription

import "sync"

// Registry resolves the per-slot subscription.Manager the RPC and Connect
// layers need for SUBSCRIPTIONS-detail filtering, satisfying
// rpc.SubscriptionsBySlot.
type Registry struct {
	mu       sync.RWMutex
	managers map[uint32]*Manager
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{managers: map[uint32]*Manager{}}
}

// Put installs mgr for slot, replacing any manager previously there.
func (r *Registry) Put(slot uint32, mgr *Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[slot] = mgr
}

// Remove vacates slot.
func (r *Registry) Remove(slot uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.managers, slot)
}

// Manager resolves the subscription manager for slot, if any.
func (r *Registry) Manager(slot uint32) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[slot]
	return m, ok
}
