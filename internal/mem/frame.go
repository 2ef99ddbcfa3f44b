// Package mem implements the kernel's physical-frame allocator: a
// stack-style allocator over a contiguous physical range that hands out
// 4 KiB frames as RAII handles, grounded on biscuit's Physmem_t
// (mem/mem.go) but simplified to the single-pool, non-percpu shape
// spec.md §4.1 describes -- this kernel targets a single hart, so
// biscuit's per-CPU free lists have no job to do here.
package mem

import (
	"fmt"
	"sync"

	"rvkernel/internal/config"
	"rvkernel/internal/defs"
	"rvkernel/internal/klog"
)

var log = klog.For("mem")

// Pfn_t is a physical page number: a physical address right-shifted by
// PageShift. 44 bits is enough to address every page of a 56-bit
// physical address space.
type Pfn_t uint64

// Pg_t is the byte contents of one physical page.
type Pg_t [config.PageSize]byte

// Allocator_t is a stack-style physical frame allocator: allocation pops
// the recycle stack if non-empty, else bumps a cursor over [current,
// end); deallocation validates and pushes onto the recycle stack.
type Allocator_t struct {
	sync.Mutex
	base     Pfn_t
	current  Pfn_t
	end      Pfn_t
	recycled []Pfn_t
	store    *backing
}

// NewAllocator constructs an allocator owning the frame range
// [base, base+count).
func NewAllocator(base Pfn_t, count int) *Allocator_t {
	return &Allocator_t{base: base, current: base, end: base + Pfn_t(count)}
}

// Frame_t is an RAII handle on a single physical frame: allocation
// returns one, and Drop returns the frame to the owning allocator
// exactly once. The zero value is not valid; use Alloc.
type Frame_t struct {
	pfn   Pfn_t
	owner *Allocator_t
	freed bool
}

// Pfn returns the physical page number this handle owns.
func (f *Frame_t) Pfn() Pfn_t { return f.pfn }

// Page returns the backing storage for this frame, modeling the
// direct-mapped access biscuit's Dmap provides for a physical page.
func (f *Frame_t) Page() *Pg_t {
	return f.owner.pageOf(f.pfn)
}

// Drop returns the frame to its allocator. Calling it again on the same
// handle, or on a nil handle, does nothing; a double free reaching the
// allocator itself (dealloc of a pfn that is not in use) panics per
// spec.md §7 kind 4.
func (f *Frame_t) Drop() {
	if f == nil || f.freed {
		return
	}
	f.freed = true
	f.owner.dealloc(f.pfn)
}

// PageAt returns the direct-mapped storage for pfn, allocating backing
// storage lazily if it has never been touched. Used by the page-table
// walker and by translated_byte_buffer to dereference a physical page
// number, standing in for biscuit's Physmem_t.Dmap.
func (a *Allocator_t) PageAt(pfn Pfn_t) *Pg_t {
	return a.pageOf(pfn)
}

// backing is the allocator's physical memory, indexed by pfn-base.
// A real kernel would use a direct map; the hosted simulator keeps one
// Go-allocated page per frame instead.
type backing struct {
	pages map[Pfn_t]*Pg_t
}

func (a *Allocator_t) pageOf(pfn Pfn_t) *Pg_t {
	a.Lock()
	defer a.Unlock()
	if a.store == nil {
		a.store = &backing{pages: make(map[Pfn_t]*Pg_t)}
	}
	pg, ok := a.store.pages[pfn]
	if !ok {
		pg = &Pg_t{}
		a.store.pages[pfn] = pg
	}
	return pg
}

// Alloc hands out a zeroed frame, failing with ENOMEM when both the
// recycle stack is empty and the cursor is exhausted.
func (a *Allocator_t) Alloc() (*Frame_t, defs.Err_t) {
	a.Lock()
	var pfn Pfn_t
	if n := len(a.recycled); n > 0 {
		pfn = a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
	} else if a.current < a.end {
		pfn = a.current
		a.current++
	} else {
		a.Unlock()
		log.Warn("out of physical frames")
		return nil, -defs.ENOMEM
	}
	a.Unlock()
	pg := a.pageOf(pfn)
	for i := range pg {
		pg[i] = 0
	}
	return &Frame_t{pfn: pfn, owner: a}, 0
}

func (a *Allocator_t) dealloc(pfn Pfn_t) {
	a.Lock()
	defer a.Unlock()
	if pfn >= a.current {
		panic(fmt.Sprintf("mem: dealloc of never-allocated frame %#x", pfn))
	}
	for _, r := range a.recycled {
		if r == pfn {
			panic(fmt.Sprintf("mem: double free of frame %#x", pfn))
		}
	}
	a.recycled = append(a.recycled, pfn)
}

// Stats reports (frames-in-use, free-recycled, capacity).
func (a *Allocator_t) Stats() (inuse, free, capacity int) {
	a.Lock()
	defer a.Unlock()
	capacity = int(a.end - a.base)
	free = len(a.recycled)
	inuse = int(a.current-a.base) - free
	return
}
