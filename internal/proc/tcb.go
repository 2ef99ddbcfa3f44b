package proc

import (
	"sync"
	"time"

	"rvkernel/internal/config"
	"rvkernel/internal/trap"
)

// Status_t is a task's lifecycle state (spec.md §4.4).
type Status_t int

const (
	Ready Status_t = iota
	Running
	Blocked
	Zombie
)

// TCB_t is one thread's control block: the unit the scheduler
// dispatches. A process with multiple threads shares one PCB_t across
// several TCB_t values, grounded on the process_inner.tasks vector
// implied by original_source/os/src/syscall/sync.rs's tid/res indexing.
type TCB_t struct {
	mu sync.Mutex

	Tid        int
	KstackSlot int
	TrapCtxVA  int
	Ctx        *trap.Context_t

	proc     *PCB_t
	status   Status_t
	stride   uint64
	pass     uint64
	priority int

	exitCode int

	startTime     time.Time
	syscallCounts map[int]int

	// resumeCh/doneCh are the hosted simulator's stand-in for a real
	// context switch: the scheduler sends on resumeCh to hand this
	// thread the hart, and the thread's body sends on doneCh when it
	// yields, blocks, or exits. See internal/sched and
	// SPEC_FULL.md's execution-model section for the full
	// correspondence.
	resumeCh chan struct{}
	doneCh   chan Status_t
}

func newTCB(p *PCB_t, tid, kstackSlot, trapCtxVA int) *TCB_t {
	return &TCB_t{
		Tid:           tid,
		KstackSlot:    kstackSlot,
		TrapCtxVA:     trapCtxVA,
		proc:          p,
		status:        Ready,
		priority:      config.DefaultPriority,
		startTime:     time.Now(),
		syscallCounts: make(map[int]int),
		resumeCh:      make(chan struct{}),
		doneCh:        make(chan Status_t, 1),
	}
}

// RecordSyscall bumps this task's per-syscall-id dispatch counter, the
// bookkeeping task_info (spec.md §6) reports back to user space.
func (t *TCB_t) RecordSyscall(id int) {
	t.mu.Lock()
	t.syscallCounts[id]++
	t.mu.Unlock()
}

// SyscallCount reports how many times syscall id has been dispatched on
// this task.
func (t *TCB_t) SyscallCount(id int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syscallCounts[id]
}

// ElapsedMillis reports wall-clock milliseconds since this task was
// created, standing in for the original's kernel-time accounting (this
// simulator has no separate user/kernel timestamp split to draw on).
func (t *TCB_t) ElapsedMillis() int64 {
	t.mu.Lock()
	start := t.startTime
	t.mu.Unlock()
	return time.Since(start).Milliseconds()
}

// Proc returns the owning process.
func (t *TCB_t) Proc() *PCB_t { return t.proc }

// Status returns the current lifecycle state.
func (t *TCB_t) Status() Status_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *TCB_t) setStatus(s Status_t) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Stride implements sched.Handle_i.
func (t *TCB_t) Stride() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stride
}

// AdvanceStride implements sched.Handle_i.
func (t *TCB_t) AdvanceStride(bigStride uint64, priority int) {
	t.mu.Lock()
	t.stride += bigStride / uint64(priority)
	t.mu.Unlock()
}

// Priority implements sched.Handle_i.
func (t *TCB_t) Priority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

// SetPriority changes this task's scheduling priority, used by the
// set_priority syscall (spec.md §6, requires prio >= 2).
func (t *TCB_t) SetPriority(prio int) {
	t.mu.Lock()
	t.priority = prio
	t.mu.Unlock()
}

// ExitCode returns the value the task's body returned, which start
// records when the task becomes a Zombie.
func (t *TCB_t) ExitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitCode
}
