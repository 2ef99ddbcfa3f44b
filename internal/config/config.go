// Package config collects the kernel's tuning constants: page geometry,
// fixed virtual addresses, and scheduler parameters. Biscuit scatters
// such constants as package-level consts at their point of use; this
// kernel instead follows the rCore original's practice of a single
// config module, since spec.md names these values as constants shared
// by several packages (vm, proc, sched) that would otherwise import
// each other just to agree on an address.
package config

import "time"

const (
	// PageShift is the base-2 exponent of the page size.
	PageShift = 12
	// PageSize is the size of a page in bytes (4 KiB).
	PageSize = 1 << PageShift
	// PageOffsetMask masks the in-page offset bits of a virtual address.
	PageOffsetMask = PageSize - 1

	// VAWidth is the width, in bits, of a virtual address (SV39).
	VAWidth = 39
	// MaxVA is one past the highest representable virtual address.
	MaxVA = 1 << VAWidth

	// Trampoline is the virtual address of the shared trampoline page,
	// mapped read-execute in every address space at the top of the
	// address space.
	Trampoline = MaxVA - PageSize
	// TrapContextBase is the virtual address of the first task's trap
	// context page, directly below the trampoline. Threads after the
	// first get successive pages below this one.
	TrapContextBase = Trampoline - PageSize

	// KernelStackSize is the size, in bytes, of a task's kernel stack.
	KernelStackSize = 16 * PageSize
	// UserStackSize is the size, in bytes, of a task's initial user stack.
	UserStackSize = 2 * PageSize

	// BigStride is the stride increment numerator: a task's stride
	// advances by BigStride/priority on every dispatch.
	BigStride = 1 << 16

	// DefaultPriority is assigned to a freshly spawned task.
	DefaultPriority = 16

	// TickRate is the simulated timer interrupt frequency.
	TickRate = 100
	// TickInterval is the wall-clock period between timer interrupts.
	TickInterval = time.Second / TickRate

	// BlockSize is the size, in bytes, of one file-system block.
	BlockSize = 512
	// BlockCacheSize is the number of blocks the cache holds concurrently.
	BlockCacheSize = 16

	// PipeBufSize is the fixed capacity of a pipe's ring buffer.
	PipeBufSize = 32

	// NameLen is the maximum length of a directory-entry name, sized so
	// a DirEntry is a multiple of 4 bytes.
	NameLen = 27
)

// KernelStackPosition returns the (bottom, top) virtual addresses of the
// kernel stack belonging to the slot-th kernel-stack slot, counting down
// from the trampoline with a guard page between slots.
func KernelStackPosition(slot int) (bottom, top int) {
	top = Trampoline - slot*(KernelStackSize+PageSize)
	bottom = top - KernelStackSize
	return
}

// TrapContextVA returns the virtual address of the tid-th trap-context
// page within an address space (tid 0 is the process's first thread).
func TrapContextVA(tid int) int {
	return TrapContextBase - tid*PageSize
}
