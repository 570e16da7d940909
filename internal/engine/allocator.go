package engine

import (
	"sync/atomic"

	"github.com/roach88/unnest/internal/ir"
)

// Allocator issues column ids for one plan-building session.
//
// Every id is handed out once. The first call to Next returns 0, so a
// driver that allocates names up front gets ids in declaration order.
//
// Thread-safety: Allocator is safe for concurrent use (atomic operations).
// A Session is still meant to be driven from one goroutine at a time.
type Allocator struct {
	next atomic.Int64
}

// NewAllocator creates an allocator whose first id is 0.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// NewAllocatorAt creates an allocator whose first id is start.
// Used when ids below start were issued elsewhere.
func NewAllocatorAt(start ir.ColumnID) *Allocator {
	a := &Allocator{}
	a.next.Store(int64(start))
	return a
}

// Next returns a fresh id.
func (a *Allocator) Next() ir.ColumnID {
	return ir.ColumnID(a.next.Add(1) - 1)
}

// Peek returns the id the next call to Next will return.
func (a *Allocator) Peek() ir.ColumnID {
	return ir.ColumnID(a.next.Load())
}
