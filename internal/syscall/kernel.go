package syscall

import (
	"rvkernel/internal/fs"
	"rvkernel/internal/mem"
)

// Kernel_t bundles the process-wide singletons a syscall handler needs
// beyond the calling task itself: the physical-frame allocator and the
// mounted file system, grounded on spec.md §9's "Global state" list
// (frame allocator and block cache manager are process-wide
// singletons). cmd/ksim constructs exactly one of these at boot and
// passes it to every Dispatch call.
type Kernel_t struct {
	Alloc *mem.Allocator_t
	FS    *fs.FileSystem_t

	// Programs maps a loadable program's path to its ELF image bytes.
	// NewKernel starts it empty and cmd/ksim adds no entries, so under
	// cmd/ksim exec/spawn find no program. exec/spawn resolve through this
	// map rather than fs.FileSystem_t, keeping the kernel's own
	// loadable images (the statically-linked app table of spec.md
	// §4.4's init-process note) distinct from user data files.
	Programs map[string][]byte
}

// NewKernel wraps an already-initialized allocator and file system.
func NewKernel(alloc *mem.Allocator_t, filesystem *fs.FileSystem_t) *Kernel_t {
	return &Kernel_t{Alloc: alloc, FS: filesystem, Programs: make(map[string][]byte)}
}
