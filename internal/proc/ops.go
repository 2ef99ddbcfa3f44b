package proc

import (
	"rvkernel/internal/config"
	"rvkernel/internal/defs"
	"rvkernel/internal/mem"
	"rvkernel/internal/trap"
	"rvkernel/internal/vm"
)

// InitProc is the first process the kernel starts; exiting processes
// reparent their children to it (spec.md §4.4).
var InitProc *PCB_t

// layoutUserRegions lays the user stack above the highest ELF-loaded
// address, separated from it by a one-page guard, and starts the
// brk-managed heap directly at the stack's top with no guard page in
// between, mirroring original_source/os/src/mm/memory_set.rs's from_elf layout.
// It returns the initial stack pointer (the stack's top) and the
// address the heap starts growing from.
func layoutUserRegions(as *vm.AddressSpace_t, afterElf int) (userSP, heapBottom int, err error) {
	stackBase := afterElf + config.PageSize
	stackTop := stackBase + config.UserStackSize
	if e := as.InsertFramedArea(stackBase, stackTop, vm.PermR|vm.PermW|vm.PermU); e != nil {
		return 0, 0, e
	}
	return stackTop, stackTop, nil
}

// Spawn builds the address space for a fresh process from an ELF image,
// allocates its PID and first TCB, and registers a goroutine to run
// body once dispatched. The process starts with tid 0 Ready on the
// scheduler's ready queue.
func Spawn(alloc *mem.Allocator_t, image []byte, body Body_t) (*PCB_t, defs.Err_t) {
	as, err := vm.NewAddressSpace(alloc)
	if err != 0 {
		return nil, err
	}
	entry, afterElf, loadErr := as.LoadELF(image)
	if loadErr != nil {
		return nil, -defs.EINVAL
	}
	userSP, heapBottom, regionErr := layoutUserRegions(as, afterElf)
	if regionErr != nil {
		return nil, -defs.ENOMEM
	}
	if err := as.InitHeap(heapBottom, vm.PermR|vm.PermW|vm.PermU); err != nil {
		return nil, -defs.ENOMEM
	}

	p := newPCB(as)
	t, tcbErr := p.newThread(as, entry, userSP)
	if tcbErr != 0 {
		return nil, tcbErr
	}
	start(t, body)
	Enqueue(t)
	return p, 0
}

// newThread allocates a tid, a kernel-stack slot, and a trap-context
// page, wires up an initial trap context, and appends the new TCB_t to
// the process's task list.
func (p *PCB_t) newThread(as *vm.AddressSpace_t, entry, sp int) (*TCB_t, defs.Err_t) {
	p.mu.Lock()
	tid := p.tidAlloc.Alloc()
	kstackSlot := p.nextKstack.Alloc()
	p.mu.Unlock()

	trapVA, err := as.MapTrapContext(tid)
	if err != 0 {
		return nil, err
	}

	t := newTCB(p, tid, kstackSlot, trapVA)
	// kernelSatp/kernelSp/trapHandler are vestigial here: this hosted
	// simulator has no separate kernel address space or assembly trap
	// handler to return through, so they are recorded as zero for
	// structural parity with original_source's TrapContext only.
	t.Ctx = trap.NewAppContext(uint64(entry), uint64(sp), 0, 0, 0)

	p.mu.Lock()
	p.Tasks = append(p.Tasks, t)
	p.mu.Unlock()
	return t, 0
}

// a0RegisterIndex is x10, the RISC-V calling-convention register
// carrying a syscall's return value.
const a0RegisterIndex = 10

// Fork deep-copies the calling process's address space and TCB-0
// register state into a new process, adds it to the parent's children,
// and schedules its goroutine to run childBody. Per spec.md §4.4 the
// child's saved a0 is zeroed so it returns 0 from the fork syscall,
// while Fork itself returns the child's PID to the parent's caller.
func (p *PCB_t) Fork(childBody Body_t) (*PCB_t, defs.Err_t) {
	p.mu.Lock()
	parentTask := p.Tasks[0]
	parentCtx := *parentTask.Ctx // copy by value: full register image
	p.mu.Unlock()

	childAS, err := p.AS.Fork()
	if err != 0 {
		return nil, err
	}
	child := newPCB(childAS)
	child.Parent = p

	t, tcbErr := child.newThread(childAS, int(parentCtx.Sepc), int(parentCtx.X[2]))
	if tcbErr != 0 {
		return nil, tcbErr
	}
	// newThread built a fresh trap context via trap.NewAppContext; splice
	// in the rest of the parent's register image so the child resumes
	// exactly where the parent was, not at a clean entry point.
	childCtx := parentCtx
	childCtx.X[a0RegisterIndex] = 0
	childCtx.KernelSatp = t.Ctx.KernelSatp
	childCtx.KernelSp = t.Ctx.KernelSp
	childCtx.TrapHandler = t.Ctx.TrapHandler
	t.Ctx = &childCtx

	p.mu.Lock()
	p.Children = append(p.Children, child)
	p.mu.Unlock()

	start(t, childBody)
	Enqueue(t)
	return child, 0
}

// Exec replaces the process's address space wholesale with a fresh ELF
// image, keeping the PID and kernel-stack slot of the calling thread.
// The file-descriptor table is left untouched (spec.md §4.4: inherit
// across exec).
func (p *PCB_t) Exec(alloc *mem.Allocator_t, image []byte, callerTid int) defs.Err_t {
	as, err := vm.NewAddressSpace(alloc)
	if err != 0 {
		return err
	}
	entry, afterElf, loadErr := as.LoadELF(image)
	if loadErr != nil {
		return -defs.EINVAL
	}
	userSP, heapBottom, regionErr := layoutUserRegions(as, afterElf)
	if regionErr != nil {
		return -defs.ENOMEM
	}
	if err := as.InitHeap(heapBottom, vm.PermR|vm.PermW|vm.PermU); err != nil {
		return -defs.ENOMEM
	}

	p.mu.Lock()
	p.AS = as
	var caller *TCB_t
	for _, t := range p.Tasks {
		if t.Tid == callerTid {
			caller = t
		}
	}
	p.mu.Unlock()
	if caller == nil {
		return -defs.ESRCH
	}

	trapVA, mapErr := as.MapTrapContext(callerTid)
	if mapErr != 0 {
		return mapErr
	}
	caller.mu.Lock()
	caller.TrapCtxVA = trapVA
	caller.Ctx = trap.NewAppContext(uint64(entry), uint64(userSP), 0, 0, 0)
	caller.mu.Unlock()
	return 0
}

// WaitPid reaps a zombie child matching pid (or any child if pid == -1),
// writing its exit code to out and returning its PID. It returns
// RetNoSuchChild if the process has no matching child at all, or
// RetNotYetZombie if a matching child exists but has not exited yet.
// The children list is scanned in order, the first zombie match wins.
func (p *PCB_t) WaitPid(pid int, out *int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	matchIdx := -1
	haveMatch := false
	for i, c := range p.Children {
		if pid != -1 && c.Pid != pid {
			continue
		}
		haveMatch = true
		if c.IsZombie() {
			matchIdx = i
			break
		}
	}
	if !haveMatch {
		return defs.RetNoSuchChild
	}
	if matchIdx < 0 {
		return defs.RetNotYetZombie
	}

	reaped := p.Children[matchIdx]
	p.Children = append(p.Children[:matchIdx], p.Children[matchIdx+1:]...)
	*out = reaped.ExitCode()
	return reaped.Pid
}

// Exit marks the process a zombie, reparents all children to InitProc,
// releases user data pages, and closes every file descriptor. It does
// not touch the caller's own TCB status -- the goroutine running Exit
// is expected to return immediately afterward, and start() records the
// Zombie status and exit code for the exiting thread itself.
func (p *PCB_t) Exit(code int) {
	p.mu.Lock()
	p.zombie = true
	p.exitCode = code
	for _, c := range p.Children {
		c.mu.Lock()
		c.Parent = InitProc
		c.mu.Unlock()
	}
	if InitProc != nil {
		InitProc.mu.Lock()
		InitProc.Children = append(InitProc.Children, p.Children...)
		InitProc.mu.Unlock()
	}
	p.Children = nil
	p.mu.Unlock()

	p.AS.RecycleDataPages()
	p.FDs.CloseAll()
}

// ThreadCreate allocates a new TID, a fresh user-stack segment and
// trap-context page in the shared address space, and a new TCB, then
// enqueues it Ready with pc=entry. spec.md §4.4's thread_create.
func (p *PCB_t) ThreadCreate(entry int, stackBase int, body Body_t) (*TCB_t, defs.Err_t) {
	stackTop := stackBase + config.UserStackSize
	if err := p.AS.InsertFramedArea(stackBase, stackTop, vm.PermR|vm.PermW|vm.PermU); err != nil {
		return nil, -defs.ENOMEM
	}
	t, err := p.newThread(p.AS, entry, stackTop)
	if err != 0 {
		return nil, err
	}
	start(t, body)
	Enqueue(t)
	return t, 0
}

// WaitTid mirrors WaitPid at thread granularity: it does not remove the
// TCB from p.Tasks (a real kernel would free its kernel stack and
// trap-context page here; this simulator keeps the slot for
// inspection, matching the "TCB lingers, data pages freed" treatment
// Exit already gives a process-level zombie).
func (p *PCB_t) WaitTid(tid int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var target *TCB_t
	for _, t := range p.Tasks {
		if t.Tid == tid {
			target = t
			break
		}
	}
	if target == nil {
		return defs.RetNoSuchChild
	}
	if target.Status() != Zombie {
		return defs.RetNotYetZombie
	}
	return target.ExitCode()
}
