// Package registry implements the process-wide connection id -> Sender
// directory. The central locking discipline: hold the lock only long
// enough to snapshot membership, never across a network send.
package registry

import (
	"sync"

	"github.com/wyndhq/wynd/internal/member"
	"github.com/wyndhq/wynd/internal/metrics"
)

// Registry is the process-wide id -> Sender directory.
type Registry struct {
	mu      sync.Mutex
	clients map[member.ID]member.Sender
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{clients: make(map[member.ID]member.Sender)}
}

// Register inserts id. Panics if id is already present — connection ids
// are never reused, so a duplicate registration can only indicate a bug
// in the caller.
func (r *Registry) Register(id member.ID, sender member.Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[id]; exists {
		panic("registry: duplicate connection id registered")
	}
	r.clients[id] = sender
	metrics.IncConnection()
}

// Remove deletes id. Idempotent.
func (r *Registry) Remove(id member.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[id]; !exists {
		return
	}
	delete(r.clients, id)
	metrics.DecConnection()
}

// Get returns the Sender registered under id, if any.
func (r *Registry) Get(id member.ID) (member.Sender, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.clients[id]
	return s, ok
}

// Snapshot returns every registered Sender as of the call. The lock is
// released before this function returns, so the caller may safely send to
// every element without holding any registry lock.
func (r *Registry) Snapshot() []member.Sender {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]member.Sender, 0, len(r.clients))
	for _, s := range r.clients {
		out = append(out, s)
	}
	return out
}

// SnapshotExcept is Snapshot filtered to exclude the given id.
func (r *Registry) SnapshotExcept(exclude member.ID) []member.Sender {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]member.Sender, 0, len(r.clients))
	for id, s := range r.clients {
		if id == exclude {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Len reports the number of currently registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
