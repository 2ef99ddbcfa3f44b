// Package ksync implements the kernel's four user-visible synchronization
// primitives -- MutexSpin, MutexBlocking, Semaphore, and Condvar -- each
// identified by a small integer slot within a process's primitive table.
// Grounded on original_source/os/src/sync/mutex.rs and the semaphore and
// condvar syscalls in original_source/os/src/syscall/sync.rs. Named
// ksync, not sync, because every caller already imports the standard
// library's sync package for its own bookkeeping locks.
//
// These primitives carry no resource-accounting state themselves: the
// banker's-algorithm matrices belong to the deadlock package and are
// updated by the syscall layer wrapping lock/unlock, exactly as
// original_source's sys_mutex_lock does around MutexSpin.lock.
package ksync

import (
	"runtime"
	"sync"
)

// Mutex_i is the common interface both mutex flavors satisfy.
type Mutex_i interface {
	Lock()
	Unlock()
}

// MutexSpin_t busy-waits for the lock, yielding the hart between
// attempts. It gives no fairness guarantee, matching spec.md §4.6.
type MutexSpin_t struct {
	mu     sync.Mutex
	locked bool
}

// NewMutexSpin returns a freshly created, unlocked spin mutex.
func NewMutexSpin() *MutexSpin_t { return &MutexSpin_t{} }

// Lock spins until the mutex is free, then claims it.
func (m *MutexSpin_t) Lock() {
	for {
		m.mu.Lock()
		if !m.locked {
			m.locked = true
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		runtime.Gosched()
	}
}

// Unlock clears the lock. It is the caller's responsibility to hold it.
func (m *MutexSpin_t) Unlock() {
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
}

// MutexBlocking_t is a boolean lock with a FIFO wait queue: a waiter
// blocks on a private channel and unlock hands ownership directly to
// the oldest waiter rather than clearing the flag, per spec.md §4.6.
type MutexBlocking_t struct {
	mu     sync.Mutex
	locked bool
	waitq  []chan struct{}
}

// NewMutexBlocking returns a freshly created, unlocked blocking mutex.
func NewMutexBlocking() *MutexBlocking_t { return &MutexBlocking_t{} }

// Lock blocks until the mutex can be claimed, waking in FIFO order.
func (m *MutexBlocking_t) Lock() {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	m.waitq = append(m.waitq, ch)
	m.mu.Unlock()
	<-ch // ownership transferred by the unlocker; locked stays true
}

// Unlock hands ownership to the oldest waiter if one exists, else
// clears the lock.
func (m *MutexBlocking_t) Unlock() {
	m.mu.Lock()
	if len(m.waitq) > 0 {
		ch := m.waitq[0]
		m.waitq = m.waitq[1:]
		m.mu.Unlock()
		close(ch)
		return
	}
	m.locked = false
	m.mu.Unlock()
}
