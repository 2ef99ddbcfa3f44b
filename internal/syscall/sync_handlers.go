package syscall

import (
	"rvkernel/internal/defs"
	"rvkernel/internal/deadlock"
	"rvkernel/internal/ksync"
	"rvkernel/internal/proc"
)

// threadStackRegionBase and threadStackStride pick a fresh, disjoint
// user-stack region for each thread_create call, the same spacing
// internal/proc's own tests use (stackBase + i*stride) since nothing
// in this hosted simulator's address-space layout reserves a
// thread-stack area the way a real kernel's fixed memory map would.
const (
	threadStackRegionBase = 0x500000
	threadStackStride     = 0x10000
)

// sysThreadCreate allocates a new TID, user stack, and trap-context
// page in the calling process's shared address space, and enqueues a
// TCB whose body runs childBody with arg delivered via the register
// convention childBody itself is responsible for reading, since this
// simulator passes arg through Go closures rather than a0.
func sysThreadCreate(t *proc.TCB_t, entry, arg int, childBody proc.Body_t) int {
	p := t.Proc()
	stackBase := threadStackRegionBase + len(p.Tasks)*threadStackStride
	child, err := p.ThreadCreate(entry, stackBase, childBody)
	if err != 0 {
		return defs.RetGenericFail
	}
	// Mutexes/semaphores created before this thread existed only sized
	// the detector's thread dimension up to the task count at their own
	// creation time (Expand in sysMutexCreate/sysSemaphoreCreate); growing
	// it here keeps every resource's row wide enough for the new thread
	// before it can ever be named as tid in TryAcquire/Commit/BumpNeed.
	p.Detector.Expand(deadlock.Mutex, p.Mutexes.Len(), len(p.Tasks))
	p.Detector.Expand(deadlock.Semaphore, p.Semaphores.Len(), len(p.Tasks))
	return child.Tid
}

func sysGetTid(t *proc.TCB_t) int { return t.Tid }

func sysWaitTid(t *proc.TCB_t, tid int) int {
	return t.Proc().WaitTid(tid)
}

// sysMutexCreate installs a fresh mutex (spinning or blocking per the
// blocking flag) into the process's slot table and registers its
// initial availability with the deadlock detector, per spec.md §4.7's
// resolved Open Question: a mutex is a unit-count resource, available
// = 1 at creation.
func sysMutexCreate(t *proc.TCB_t, blocking bool) int {
	p := t.Proc()
	var m ksync.Mutex_i
	if blocking {
		m = ksync.NewMutexBlocking()
	} else {
		m = ksync.NewMutexSpin()
	}
	id := p.Mutexes.Insert(m)
	p.Detector.Expand(deadlock.Mutex, id+1, len(p.Tasks))
	p.Detector.SetAvailable(deadlock.Mutex, id, 1)
	return id
}

// sysMutexLock runs the banker's-algorithm safety test before blocking
// (spec.md §4.7), refusing with RetDeadlock if detection is enabled and
// granting this lock could deadlock. On a safe grant it declares the
// pending request via BumpNeed, blocks on the mutex itself, and only
// once that block actually returns does it commit the acquisition --
// committing any earlier would let another thread's concurrent safety
// test see this resource as free while it is still only promised, not
// held.
func sysMutexLock(t *proc.TCB_t, id int) int {
	p := t.Proc()
	m, ok := p.Mutexes.Get(id)
	if !ok {
		return defs.RetGenericFail
	}
	if !p.Detector.TryAcquire(deadlock.Mutex, t.Tid, id) {
		return defs.RetDeadlock
	}
	p.Detector.BumpNeed(deadlock.Mutex, t.Tid, id, 1)
	t.Suspend(m.Lock)
	p.Detector.BumpNeed(deadlock.Mutex, t.Tid, id, -1)
	p.Detector.Commit(deadlock.Mutex, t.Tid, id)
	return 0
}

func sysMutexUnlock(t *proc.TCB_t, id int) int {
	p := t.Proc()
	m, ok := p.Mutexes.Get(id)
	if !ok {
		return defs.RetGenericFail
	}
	m.Unlock()
	p.Detector.Release(deadlock.Mutex, t.Tid, id)
	return 0
}

// sysSemaphoreCreate installs a counting semaphore initialized with
// resCount units and registers that count as the detector's initial
// availability.
func sysSemaphoreCreate(t *proc.TCB_t, resCount int) int {
	p := t.Proc()
	s := ksync.NewSemaphore(resCount)
	id := p.Semaphores.Insert(s)
	p.Detector.Expand(deadlock.Semaphore, id+1, len(p.Tasks))
	p.Detector.SetAvailable(deadlock.Semaphore, id, resCount)
	return id
}

func sysSemaphoreUp(t *proc.TCB_t, id int) int {
	p := t.Proc()
	s, ok := p.Semaphores.Get(id)
	if !ok {
		return defs.RetGenericFail
	}
	s.Up()
	p.Detector.Release(deadlock.Semaphore, t.Tid, id)
	return 0
}

func sysSemaphoreDown(t *proc.TCB_t, id int) int {
	p := t.Proc()
	s, ok := p.Semaphores.Get(id)
	if !ok {
		return defs.RetGenericFail
	}
	if !p.Detector.TryAcquire(deadlock.Semaphore, t.Tid, id) {
		return defs.RetDeadlock
	}
	p.Detector.BumpNeed(deadlock.Semaphore, t.Tid, id, 1)
	t.Suspend(s.Down)
	p.Detector.BumpNeed(deadlock.Semaphore, t.Tid, id, -1)
	p.Detector.Commit(deadlock.Semaphore, t.Tid, id)
	return 0
}

func sysCondvarCreate(t *proc.TCB_t) int {
	return t.Proc().Condvars.Insert(ksync.NewCondvar())
}

func sysCondvarSignal(t *proc.TCB_t, id int) int {
	cv, ok := t.Proc().Condvars.Get(id)
	if !ok {
		return defs.RetGenericFail
	}
	cv.Signal()
	return 0
}

// sysCondvarWait waits on condvar id, releasing and reacquiring mutex
// mutexID around the block, per spec.md §4.6.
func sysCondvarWait(t *proc.TCB_t, id, mutexID int) int {
	p := t.Proc()
	cv, ok := p.Condvars.Get(id)
	if !ok {
		return defs.RetGenericFail
	}
	m, ok := p.Mutexes.Get(mutexID)
	if !ok {
		return defs.RetGenericFail
	}
	t.Suspend(func() { cv.Wait(m) })
	return 0
}

func sysEnableDeadlockDetect(t *proc.TCB_t, enabled bool) int {
	t.Proc().Detector.SetEnabled(enabled)
	return 0
}
