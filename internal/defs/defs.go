// Package defs holds identifiers and error sentinels shared across every
// kernel subsystem: the syscall-visible error codes, thread/process id
// types, and the fixed syscall return values. The fixed virtual
// addresses every address space agrees on live in internal/config.
package defs

// Err_t is a syscall return value. Zero means success; a negative value
// is the (positive) errno negated, matching the POSIX convention the
// syscall ABI exposes to user space.
type Err_t int

// Errno sentinels returned (negated) from syscall handlers.
const (
	EFAULT        Err_t = 14
	EINVAL        Err_t = 22
	ENOMEM        Err_t = 12
	ENOHEAP       Err_t = 12
	ENAMETOOLONG  Err_t = 36
	EBADF         Err_t = 9
	EEXIST        Err_t = 17
	ENOENT        Err_t = 2
	ENOSPC        Err_t = 28
	EAGAIN        Err_t = 11
	ESRCH         Err_t = 3
	EDEADLK       Err_t = 0xDEAD
	ENOTBLOCKING  Err_t = -2
)

// Tid_t identifies a thread uniquely within its owning process.
type Tid_t int

// Pid_t identifies a process uniquely within the kernel.
type Pid_t int

// Sentinel return values defined by the syscall surface in spec §6-7.
const (
	// RetGenericFail is the generic failure sentinel ("-1").
	RetGenericFail = -1
	// RetNoSuchChild is waitpid's "no matching child" sentinel.
	RetNoSuchChild = -1
	// RetNotYetZombie is waitpid's "child alive" sentinel.
	RetNotYetZombie = -2
	// RetDeadlock is the banker's-algorithm refusal sentinel.
	RetDeadlock = -0xDEAD
)
