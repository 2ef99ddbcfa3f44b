// Package sched implements the stride scheduler: a FIFO ready queue
// ordered by stride, and the processor bookkeeping that tracks which
// task is current. Grounded on original_source/os/src/task/manager.rs
// (TaskManager, a VecDeque-backed FIFO) and processor.rs (Processor's
// current/idle split), generalized from manager.rs's plain FIFO
// fetch_task to the stride-ordered pick spec.md §4.5 specifies.
package sched

import "sync"

// Handle_i is anything the scheduler can rank and dispatch: a task or
// thread control block.
type Handle_i interface {
	// Stride returns the current stride value.
	Stride() uint64
	// AdvanceStride increments the stride by bigStride/priority, called
	// exactly once per dispatch.
	AdvanceStride(bigStride uint64, priority int)
	// Priority returns the task's scheduling priority (>=1).
	Priority() int
}

// ReadyQueue_t is a FIFO list of ready handles; PopMin selects the
// smallest stride, breaking ties by queue position (earliest wins).
type ReadyQueue_t struct {
	mu    sync.Mutex
	items []Handle_i
}

// NewReadyQueue returns an empty ready queue.
func NewReadyQueue() *ReadyQueue_t { return &ReadyQueue_t{} }

// Push appends h to the back of the ready queue.
func (q *ReadyQueue_t) Push(h Handle_i) {
	q.mu.Lock()
	q.items = append(q.items, h)
	q.mu.Unlock()
}

// PopMin removes and returns the ready handle with the smallest stride,
// the earliest-enqueued among ties, advancing its stride by
// bigStride/priority before returning it. Reports false if the queue is
// empty.
func (q *ReadyQueue_t) PopMin(bigStride uint64) (Handle_i, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	best := 0
	for i := 1; i < len(q.items); i++ {
		if q.items[i].Stride() < q.items[best].Stride() {
			best = i
		}
	}
	h := q.items[best]
	q.items = append(q.items[:best], q.items[best+1:]...)
	h.AdvanceStride(bigStride, h.Priority())
	return h, true
}

// Len reports the number of ready handles currently queued.
func (q *ReadyQueue_t) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Processor_t tracks which handle is currently dispatched. The "idle"
// control flow referenced in spec.md §4.5 is, in this hosted simulator,
// simply the goroutine running the dispatch loop itself -- there is no
// separate idle task-context to store since Go's runtime already
// multiplexes goroutines onto the host thread.
type Processor_t struct {
	mu      sync.Mutex
	current Handle_i
}

// NewProcessor returns a processor with no current task.
func NewProcessor() *Processor_t { return &Processor_t{} }

// Current returns the handle currently dispatched, or nil.
func (p *Processor_t) Current() Handle_i {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// SetCurrent installs h as the currently dispatched handle.
func (p *Processor_t) SetCurrent(h Handle_i) {
	p.mu.Lock()
	p.current = h
	p.mu.Unlock()
}

// TakeCurrent clears and returns the currently dispatched handle.
func (p *Processor_t) TakeCurrent() Handle_i {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.current
	p.current = nil
	return h
}
