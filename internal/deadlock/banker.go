// Package deadlock implements the banker's-algorithm safety test used
// to gate mutex and semaphore acquisition, grounded on
// original_source/os/src/syscall/sync.rs's deadlock_detected and expand
// functions.
package deadlock

import "sync"

// Class identifies a resource class: separate matrices are kept for
// mutexes and semaphores (spec.md §4.7).
type Class int

const (
	Mutex Class = iota
	Semaphore
	numClasses
)

// Detector_t holds, per resource class, the available/allocation/need
// matrices for one process. Detection is disabled by default, matching
// original_source's deadlock_detection_enabled defaulting to false.
type Detector_t struct {
	mu      sync.Mutex
	enabled bool

	available [numClasses][]int   // available[class][r]
	alloc     [numClasses][][]int // alloc[class][t][r]
	need      [numClasses][][]int // need[class][t][r]
}

// NewDetector returns a detector with detection disabled and empty
// matrices; Expand grows them lazily as resources and threads appear.
func NewDetector() *Detector_t { return &Detector_t{} }

// SetEnabled turns safety-test gating on or off for this process.
func (d *Detector_t) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}

// Expand grows the matrices so resource id and thread tid are valid
// indices, per original_source's expand(i).
func (d *Detector_t) Expand(class Class, resourceCount, threadCount int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.available[class]) < resourceCount {
		d.available[class] = append(d.available[class], 0)
	}
	for len(d.alloc[class]) < threadCount {
		d.alloc[class] = append(d.alloc[class], nil)
		d.need[class] = append(d.need[class], nil)
	}
	for t := range d.alloc[class] {
		for len(d.alloc[class][t]) < resourceCount {
			d.alloc[class][t] = append(d.alloc[class][t], 0)
		}
		for len(d.need[class][t]) < resourceCount {
			d.need[class][t] = append(d.need[class][t], 0)
		}
	}
}

// SetAvailable sets available[class][r], used at resource creation (a
// mutex starts with available=1, a semaphore with its initial count --
// spec.md §4.7's resolved Open Question).
func (d *Detector_t) SetAvailable(class Class, r, units int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.available[class][r] = units
}

// TryAcquire runs the banker's safety test as if thread tid requested
// one more unit of resource r in class, returning false (refuse)
// without mutating any accounting if granting it could lead to
// deadlock. It never mutates allocation/available itself -- the
// request may still have to block (original_source's
// MutexSpin::lock/MutexBlocking::lock only actually hold the resource
// once the block returns), so callers declare the pending request with
// BumpNeed before blocking and record the real acquisition with Commit
// once the block returns. Committing inside TryAcquire would double-
// count the resource between the still-blocked requester and whoever
// currently holds it.
func (d *Detector_t) TryAcquire(class Class, tid, r int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled {
		return true
	}

	need := make([][]int, len(d.need[class]))
	for i, row := range d.need[class] {
		need[i] = append([]int(nil), row...)
	}
	need[tid][r]++

	work := append([]int(nil), d.available[class]...)
	finished := make([]bool, len(d.alloc[class]))

	progress := true
	for progress {
		progress = false
		for t := range d.alloc[class] {
			if finished[t] {
				continue
			}
			canFinish := true
			for j := range need[t] {
				if work[j]-need[t][j] < 0 {
					canFinish = false
					break
				}
			}
			if canFinish {
				for j := range d.alloc[class][t] {
					work[j] += d.alloc[class][t][j]
				}
				finished[t] = true
				progress = true
			}
		}
	}

	for _, ok := range finished {
		if !ok {
			return false
		}
	}
	return true
}

// Commit records that tid has actually acquired one unit of resource r
// in class: allocation[tid][r]++, available[r]--. Callers invoke this
// once the underlying blocking primitive (Mutex_i.Lock, Semaphore_t.Down)
// has actually returned control to the caller, never at TryAcquire
// time -- a request that passes the safety test may still sit parked
// for an arbitrary time before the resource is handed over, and until
// then it is not yet allocated.
func (d *Detector_t) Commit(class Class, tid, r int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alloc[class][tid][r]++
	d.available[class][r]--
}

// Release gives back one unit of resource r in class held by thread
// tid: allocation[tid][r]--, available[r]++.
func (d *Detector_t) Release(class Class, tid, r int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alloc[class][tid][r]--
	d.available[class][r]++
}

// BumpNeed adjusts need[class][tid][r] by delta, used to persist a
// thread's outstanding claim on a resource it does not yet hold while
// it blocks waiting for it (spec.md §4.6), so that a concurrent
// request from another thread sees the claim in its own safety test
// even though the first thread's acquisition hasn't committed yet.
func (d *Detector_t) BumpNeed(class Class, tid, r, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.need[class][tid][r] += delta
}
