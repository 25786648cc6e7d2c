// Package idgen hands out process-monotonic connection identifiers using
// a single atomic counter, safe for concurrent use without a lock.
package idgen

import (
	"sync/atomic"

	"github.com/wyndhq/wynd/internal/member"
)

// Allocator issues unique, strictly increasing connection ids, seeded at 1.
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator returns an Allocator whose first Allocate() call returns 1.
func NewAllocator() *Allocator {
	a := &Allocator{}
	a.next.Store(1)
	return a
}

// Allocate returns the next unused connection id. Safe for concurrent use.
func (a *Allocator) Allocate() member.ID {
	return member.ID(a.next.Add(1) - 1)
}
