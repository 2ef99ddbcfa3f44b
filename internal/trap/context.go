// Package trap holds the saved register image and kernel re-entry
// pointers carried in each task's trap-context page, grounded on
// original_source/os/src/trap/context.rs's TrapContext. Biscuit itself
// folds the equivalent state into a hand-written assembly trap frame
// invisible to this pack; this kernel's hosted simulator has no
// assembly layer, so the struct is plain Go instead, following
// biscuit's general "_t"-suffixed concrete-type naming.
package trap

// Context_t is the trap context belonging to one thread: the user
// register image at the moment of a syscall, exception, or timer
// interrupt, plus three fields the kernel writes once at thread
// creation and never touches again -- the kernel's own page-table
// token, this thread's kernel stack pointer, and the virtual address
// of the kernel's trap-handling entry point, all needed so the
// trampoline can return control to the kernel without the kernel
// address space being mapped during the brief window execution runs
// under the user page table.
type Context_t struct {
	// X holds the 32 RISC-V general-purpose registers, x0 through x31.
	// x2 is the stack pointer; SetSP keeps callers from poking it
	// directly and forgetting which index that is.
	X [32]uint64

	// Sstatus is a simulated supervisor status register; only the SPP
	// (previous privilege) bit is meaningful here, recording that this
	// thread traps back to user mode.
	Sstatus uint64

	// Sepc is the program counter to resume at on return to user mode.
	Sepc uint64

	// KernelSatp is the kernel address space's page-table token, so a
	// trap handler can restore it regardless of which task was running.
	KernelSatp uint64

	// KernelSp is this thread's kernel stack pointer at the top of its
	// stack, loaded by the trampoline before the kernel trap handler
	// runs.
	KernelSp uint64

	// TrapHandler is the virtual address, in kernel space, of the
	// function the trampoline jumps to after a trap.
	TrapHandler uint64
}

const (
	sstatusSPP uint64 = 1 << 8
)

// SetSP writes sp into the x2 (stack pointer) slot of the register
// image.
func (c *Context_t) SetSP(sp uint64) { c.X[2] = sp }

// NewAppContext builds the initial trap context for a freshly loaded
// or freshly forked user thread: program counter at entry, user stack
// pointer at sp, SPP cleared so the first trap return drops to user
// mode, and the three kernel re-entry fields pinned for the lifetime
// of the thread.
func NewAppContext(entry, sp, kernelSatp, kernelSp, trapHandler uint64) *Context_t {
	c := &Context_t{
		Sepc:        entry,
		KernelSatp:  kernelSatp,
		KernelSp:    kernelSp,
		TrapHandler: trapHandler,
	}
	c.Sstatus &^= sstatusSPP // SPP = User: trap return drops to user mode
	c.SetSP(sp)
	return c
}
