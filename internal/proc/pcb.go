package proc

import (
	"sync"

	"rvkernel/internal/deadlock"
	"rvkernel/internal/fd"
	"rvkernel/internal/ksync"
	"rvkernel/internal/util"
	"rvkernel/internal/vm"
)

// PCB_t is a process control block: the address space, file
// descriptors, process-relative children/parent bookkeeping, and the
// per-process synchronization-primitive and deadlock-detection state
// every thread in the process shares. Grounded on
// original_source/os/src/task/task.rs's TaskControlBlockInner, widened
// with the mutex_list/semaphore_list/condvar_list/available/allocation
// /need fields original_source/os/src/syscall/sync.rs shows hanging off
// the process, not the individual thread.
type PCB_t struct {
	mu sync.Mutex

	Pid int
	AS  *vm.AddressSpace_t
	FDs fd.Table_t

	Parent   *PCB_t
	Children []*PCB_t

	Tasks      []*TCB_t
	tidAlloc   *RecycleAllocator_t
	nextKstack *RecycleAllocator_t

	Mutexes    util.SlotTable_t[ksync.Mutex_i]
	Semaphores util.SlotTable_t[*ksync.Semaphore_t]
	Condvars   util.SlotTable_t[*ksync.Condvar_t]
	Detector   *deadlock.Detector_t

	zombie   bool
	exitCode int
}

// newPCB constructs a process wrapping an already-built address space,
// with its own TID and kernel-stack-slot allocators and a disabled-by-
// default deadlock detector.
func newPCB(as *vm.AddressSpace_t) *PCB_t {
	p := &PCB_t{
		Pid:        AllocPid(),
		AS:         as,
		tidAlloc:   NewRecycleAllocator(),
		nextKstack: NewRecycleAllocator(),
		Detector:   deadlock.NewDetector(),
	}
	p.FDs.InstallStdio()
	return p
}

// IsZombie reports whether exit has run for this process.
func (p *PCB_t) IsZombie() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.zombie
}

// ExitCode returns the code recorded by exit.
func (p *PCB_t) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}
