package ksync

import "sync"

// Condvar_t is a FIFO wait queue with signal/wait, grounded on
// original_source/os/src/syscall/sync.rs's sys_condvar_wait and
// sys_condvar_signal. wait releases mutex before blocking and
// re-acquires it after being woken, matching the standard
// release-block-reacquire condition variable contract.
type Condvar_t struct {
	mu    sync.Mutex
	waitq []chan struct{}
}

// NewCondvar returns a freshly created condition variable.
func NewCondvar() *Condvar_t { return &Condvar_t{} }

// Wait releases mutex, blocks until signaled, then reacquires mutex.
func (c *Condvar_t) Wait(mutex Mutex_i) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.waitq = append(c.waitq, ch)
	c.mu.Unlock()

	mutex.Unlock()
	<-ch
	mutex.Lock()
}

// Signal wakes the oldest waiter, if any. It is not an error to signal
// with no one waiting -- no broadcast is specified, matching spec.md
// §4.6.
func (c *Condvar_t) Signal() {
	c.mu.Lock()
	if len(c.waitq) == 0 {
		c.mu.Unlock()
		return
	}
	ch := c.waitq[0]
	c.waitq = c.waitq[1:]
	c.mu.Unlock()
	close(ch)
}
