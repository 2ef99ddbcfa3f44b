// Package proc implements the task/process model: PID and kernel-stack
// slot recycling, TCB/PCB lifecycle, fork/exec/waitpid/exit, and
// thread_create/waittid, grounded on original_source/os/src/task/{id,
// task,manager,processor,mod}.rs.
package proc

import (
	"fmt"
	"sync"
)

// RecycleAllocator_t is a stack-style integer id allocator: alloc pops
// the recycle stack if non-empty, else bumps a cursor; dealloc pushes
// onto the recycle stack after validating the id was actually handed
// out and is not already free. Grounded on
// original_source/os/src/task/id.rs's RecycleAllocator, the same shape
// mem.Allocator_t generalizes for physical frames.
type RecycleAllocator_t struct {
	mu       sync.Mutex
	current  int
	recycled []int
}

// NewRecycleAllocator returns an empty allocator starting at id 0.
func NewRecycleAllocator() *RecycleAllocator_t { return &RecycleAllocator_t{} }

// Alloc returns a fresh or recycled id.
func (a *RecycleAllocator_t) Alloc() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.recycled); n > 0 {
		id := a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
		return id
	}
	id := a.current
	a.current++
	return id
}

// Dealloc returns id to the pool. It panics on a double-free or on an
// id that was never handed out, mirroring original_source's asserts.
func (a *RecycleAllocator_t) Dealloc(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id >= a.current {
		panic(fmt.Sprintf("proc: dealloc of never-allocated id %d", id))
	}
	for _, r := range a.recycled {
		if r == id {
			panic(fmt.Sprintf("proc: double free of id %d", id))
		}
	}
	a.recycled = append(a.recycled, id)
}

var (
	pidAllocator    = NewRecycleAllocator()
	kstackAllocator = NewRecycleAllocator()
)

// AllocPid hands out a fresh process id from the global allocator.
func AllocPid() int { return pidAllocator.Alloc() }

// FreePid returns pid to the global allocator.
func FreePid(pid int) { pidAllocator.Dealloc(pid) }

// AllocKstackSlot hands out a fresh kernel-stack slot id.
func AllocKstackSlot() int { return kstackAllocator.Alloc() }

// FreeKstackSlot returns slot to the global allocator.
func FreeKstackSlot(slot int) { kstackAllocator.Dealloc(slot) }
