package proc

import (
	"runtime"

	"rvkernel/internal/config"
	"rvkernel/internal/fs"
	"rvkernel/internal/sched"
)

// init points fs.Yield at the current task's Yield, so a blocked pipe
// read/write gives up the hart; with no task dispatched it falls back
// to runtime.Gosched.
func init() {
	fs.Yield = func() {
		if t, ok := CPU.Current().(*TCB_t); ok && t != nil {
			t.Yield()
			return
		}
		runtime.Gosched()
	}
}

// ReadyQ and CPU are the kernel's process-wide scheduler singletons
// (spec.md §5's "processor, task manager... are process-wide
// singletons"), grounded on original_source/os/src/task/manager.rs's
// TASK_MANAGER and processor.rs's PROCESSOR.
var (
	ReadyQ = sched.NewReadyQueue()
	CPU    = sched.NewProcessor()
)

// Enqueue marks t Ready and appends it to the back of the ready queue.
func Enqueue(t *TCB_t) {
	t.setStatus(Ready)
	ReadyQ.Push(t)
}

// Body_t is the function a TCB_t's goroutine runs, standing in for a
// real kernel's jump to user mode through the trampoline -- see
// SPEC_FULL.md's execution-model notes. It receives its own TCB_t so it
// can call Yield/Suspend/syscalls explicitly, since this simulator has
// no implicit "current task" thread-local.
type Body_t func(t *TCB_t) int

// start spawns t's goroutine, which waits for its first dispatch before
// running body, then records the exit code and frees the hart on
// completion.
func start(t *TCB_t, body Body_t) {
	go func() {
		<-t.resumeCh
		t.setStatus(Running)
		code := body(t)
		t.mu.Lock()
		t.status = Zombie
		t.exitCode = code
		t.mu.Unlock()
		t.doneCh <- Zombie
	}()
}

// Yield voluntarily gives up the hart: t rejoins the back of the ready
// queue and blocks until redispatched.
func (t *TCB_t) Yield() {
	Enqueue(t)
	t.doneCh <- Ready
	<-t.resumeCh
	t.setStatus(Running)
}

// Suspend gives up the hart to run blockingOp -- a call into one of the
// ksync primitives, or a real sleep -- and, once blockingOp returns
// (the primitive having woken this task), rejoins the ready queue and
// waits its turn again. This is the hosted-simulator's stand-in for
// "enqueue the TCB on the appropriate wait list and jump into the idle
// context" (spec.md §5): the wait-list parking is real goroutine
// blocking inside blockingOp, and rejoining the ready queue happens on
// this same goroutine the instant it is woken, rather than being done
// by the waker.
func (t *TCB_t) Suspend(blockingOp func()) {
	t.setStatus(Blocked)
	t.doneCh <- Blocked
	blockingOp()
	Enqueue(t)
	<-t.resumeCh
	t.setStatus(Running)
}

// RunScheduler is the dispatch loop: in the idle context, fetch a task
// by stride, mark it Running, hand it the hart, and wait for it to
// yield, block, or exit before picking the next one. It returns when
// stop is closed and the ready queue is empty.
func RunScheduler(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			if ReadyQ.Len() == 0 {
				return
			}
		default:
		}
		h, ok := ReadyQ.PopMin(config.BigStride)
		if !ok {
			runtime.Gosched()
			continue
		}
		t := h.(*TCB_t)
		CPU.SetCurrent(t)
		t.resumeCh <- struct{}{}
		<-t.doneCh
		CPU.TakeCurrent()
	}
}
