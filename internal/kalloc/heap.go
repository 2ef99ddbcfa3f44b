// Package kalloc implements the kernel's internal dynamic-allocation
// arena: a fixed-size byte buffer, carved up by a first-fit free list,
// standing in for the static BSS heap the rCore original hands to a
// buddy-system allocator (original_source/os/src/mm/heap_allocator.rs).
// Go's own runtime already provides general-purpose allocation for most
// of this kernel; the only user of this arena is internal/fs's
// CacheManager_t, which carves every resident block's bytes out of one
// arena. The deadlock-detection matrices are plain Go slices.
package kalloc

import (
	"fmt"
	"sync"
)

type freeNode struct {
	off, size int
	next      *freeNode
}

// Arena_t is a fixed-capacity byte buffer with a first-fit free list.
type Arena_t struct {
	sync.Mutex
	buf  []byte
	free *freeNode
}

// NewArena allocates an arena of the given capacity in bytes, modeling
// the rCore original's static HEAP_SPACE array.
func NewArena(capacity int) *Arena_t {
	return &Arena_t{
		buf:  make([]byte, capacity),
		free: &freeNode{off: 0, size: capacity},
	}
}

// Handle_t references a live allocation within an Arena_t.
type Handle_t struct {
	off, size int
}

// Bytes returns the backing slice for this allocation.
func (h Handle_t) Bytes(a *Arena_t) []byte {
	return a.buf[h.off : h.off+h.size]
}

// Alloc reserves size bytes from the arena using first fit. It panics
// with an out-of-memory message if no free run is big enough -- resource
// exhaustion in this teaching kernel is a fatal condition per spec.md §7
// kind 2, not a recoverable error.
func (a *Arena_t) Alloc(size int) Handle_t {
	a.Lock()
	defer a.Unlock()
	var prev *freeNode
	for n := a.free; n != nil; n = n.next {
		if n.size >= size {
			h := Handle_t{off: n.off, size: size}
			if n.size == size {
				if prev == nil {
					a.free = n.next
				} else {
					prev.next = n.next
				}
			} else {
				n.off += size
				n.size -= size
			}
			return h
		}
		prev = n
	}
	panic(fmt.Sprintf("kalloc: out of memory allocating %d bytes", size))
}

// Free returns h's span to the free list, coalescing with the adjacent
// free runs that directly precede or follow it.
func (a *Arena_t) Free(h Handle_t) {
	a.Lock()
	defer a.Unlock()
	n := &freeNode{off: h.off, size: h.size}
	var prev *freeNode
	cur := a.free
	for cur != nil && cur.off < n.off {
		prev = cur
		cur = cur.next
	}
	if cur != nil && n.off+n.size == cur.off {
		n.size += cur.size
		n.next = cur.next
	} else {
		n.next = cur
	}
	if prev != nil && prev.off+prev.size == n.off {
		prev.size += n.size
		prev.next = n.next
	} else if prev == nil {
		a.free = n
	} else {
		prev.next = n
	}
}

// Available returns the total bytes still free in the arena.
func (a *Arena_t) Available() int {
	a.Lock()
	defer a.Unlock()
	n := 0
	for f := a.free; f != nil; f = f.next {
		n += f.size
	}
	return n
}
