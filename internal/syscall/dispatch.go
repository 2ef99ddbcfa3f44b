package syscall

import (
	"rvkernel/internal/defs"
	"rvkernel/internal/proc"
	"rvkernel/internal/trap"
)

// Register indices per the RISC-V calling convention: a0-a2 carry the
// first three syscall arguments (and a0 doubles as the return-value
// slot), a7 carries the syscall number. Grounded on
// original_source/os/src/trap/mod.rs's trap_handler, which reads
// cx.x[17] for the id and cx.x[10..=12] for arguments.
const (
	regA0 = 10
	regA1 = 11
	regA2 = 12
	regA7 = 17
)

// Dispatch decodes tf's a7/a0/a1/a2 registers, runs the corresponding
// handler for t (a thread of k's kernel), and returns the value to
// store in a0 on trap return, plus whether the calling task has exited
// (exit/an unrecognized syscall) and must not be resumed.
//
// childBody is required only for fork, spawn, and thread_create: this
// hosted simulator represents a task's program as a running Go
// closure, not as bytes a generic dispatcher can interpret, so the
// "new" task's behavior must be supplied by the caller rather than
// loaded from memory the way a real kernel loads straight machine
// code. It is ignored by every other syscall and may be nil then.
func Dispatch(k *Kernel_t, t *proc.TCB_t, tf *trap.Context_t, childBody proc.Body_t) (ret int64, exited bool) {
	id := int(tf.X[regA7])
	a0 := int(tf.X[regA0])
	a1 := int(tf.X[regA1])
	a2 := int(tf.X[regA2])

	t.RecordSyscall(id)

	switch id {
	case SysExit:
		return sysExit(t, a0)
	case SysYield:
		return sysYield(t)
	case SysGetPid:
		return int64(sysGetPid(t)), false
	case SysFork:
		return int64(sysFork(t, childBody)), false
	case SysExec:
		return int64(sysExec(k, t, a0)), false
	case SysSpawn:
		return int64(sysSpawn(k, t, a0, childBody)), false
	case SysWaitPid:
		return int64(sysWaitPid(k, t, a0, a1)), false
	case SysSetPriority:
		return int64(sysSetPriority(t, a0)), false
	case SysGetTime:
		return int64(sysGetTime(k, t, a0)), false
	case SysTaskInfo:
		return int64(sysTaskInfo(k, t, a0)), false
	case SysMmap:
		return int64(sysMmap(t, a0, a1, a2)), false
	case SysMunmap:
		return int64(sysMunmap(t, a0, a1)), false

	case SysOpen:
		return int64(sysOpen(k, t, a0, a1)), false
	case SysClose:
		return int64(sysClose(t, a0)), false
	case SysRead:
		return int64(sysRead(k, t, a0, a1, a2)), false
	case SysWrite:
		return int64(sysWrite(k, t, a0, a1, a2)), false
	case SysFstat:
		return int64(sysFstat(k, t, a0, a1)), false
	case SysLinkat:
		return int64(sysLinkat(k, t, a0, a1)), false
	case SysUnlinkat:
		return int64(sysUnlinkat(k, t, a0)), false

	case SysThreadCreate:
		return int64(sysThreadCreate(t, a0, a1, childBody)), false
	case SysGetTid:
		return int64(sysGetTid(t)), false
	case SysWaitTid:
		return int64(sysWaitTid(t, a0)), false
	case SysMutexCreate:
		return int64(sysMutexCreate(t, a0 != 0)), false
	case SysMutexLock:
		return int64(sysMutexLock(t, a0)), false
	case SysMutexUnlock:
		return int64(sysMutexUnlock(t, a0)), false
	case SysSemaphoreCreate:
		return int64(sysSemaphoreCreate(t, a0)), false
	case SysSemaphoreUp:
		return int64(sysSemaphoreUp(t, a0)), false
	case SysSemaphoreDown:
		return int64(sysSemaphoreDown(t, a0)), false
	case SysCondvarCreate:
		return int64(sysCondvarCreate(t)), false
	case SysCondvarSignal:
		return int64(sysCondvarSignal(t, a0)), false
	case SysCondvarWait:
		return int64(sysCondvarWait(t, a0, a1)), false
	case SysEnableDeadlockDetect:
		return int64(sysEnableDeadlockDetect(t, a0 != 0)), false

	default:
		// An unrecognized syscall number terminates the offending task
		// with a fixed exit code, per spec.md §7's "user-mode faults...
		// terminate the offending task".
		t.Proc().Exit(int(defs.RetGenericFail))
		return int64(defs.RetGenericFail), true
	}
}
