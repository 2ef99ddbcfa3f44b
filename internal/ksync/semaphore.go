package ksync

import "sync"

// Semaphore_t is a signed counting semaphore with a FIFO wait queue,
// grounded on original_source/os/src/syscall/sync.rs's sys_semaphore_up
// /down pairing (the Semaphore type itself lives outside the retrieved
// source slice, but its signed-count-plus-queue shape is fully implied
// by the syscalls that drive it).
type Semaphore_t struct {
	mu    sync.Mutex
	count int
	waitq []chan struct{}
}

// NewSemaphore returns a semaphore initialized with resCount units
// available.
func NewSemaphore(resCount int) *Semaphore_t {
	return &Semaphore_t{count: resCount}
}

// Down decrements the counter; if it goes negative the caller blocks
// until a matching Up wakes it.
func (s *Semaphore_t) Down() {
	s.mu.Lock()
	s.count--
	if s.count < 0 {
		ch := make(chan struct{})
		s.waitq = append(s.waitq, ch)
		s.mu.Unlock()
		<-ch
		return
	}
	s.mu.Unlock()
}

// Up increments the counter; if it is still non-positive after
// incrementing (i.e. someone was waiting), the oldest waiter is woken.
func (s *Semaphore_t) Up() {
	s.mu.Lock()
	s.count++
	if s.count <= 0 && len(s.waitq) > 0 {
		ch := s.waitq[0]
		s.waitq = s.waitq[1:]
		s.mu.Unlock()
		close(ch)
		return
	}
	s.mu.Unlock()
}

// Count reports the current signed counter value, for tests and
// diagnostics only.
func (s *Semaphore_t) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
