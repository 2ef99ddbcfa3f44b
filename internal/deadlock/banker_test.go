package deadlock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClassicCrossAcquisitionRefused sets up the two-mutex, two-thread crossed-acquisition
// scenario: thread 0 holds mutex 0 and wants mutex 1; thread 1 holds
// mutex 1 and wants mutex 0. The second cross-acquisition must be
// refused.
func TestClassicCrossAcquisitionRefused(t *testing.T) {
	d := NewDetector()
	d.SetEnabled(true)
	d.Expand(Mutex, 2, 2)
	d.SetAvailable(Mutex, 0, 1)
	d.SetAvailable(Mutex, 1, 1)

	require.True(t, d.TryAcquire(Mutex, 0, 0)) // t0 takes mutex 0
	d.Commit(Mutex, 0, 0)
	require.True(t, d.TryAcquire(Mutex, 1, 1)) // t1 takes mutex 1
	d.Commit(Mutex, 1, 1)

	// t1 is already parked wanting mutex 0 back (BumpNeed is what a
	// blocked sysMutexLock call persists while it waits).
	d.BumpNeed(Mutex, 1, 0, 1)

	// t0 wants mutex 1 (held by t1, who in turn wants mutex 0): granting
	// this leaves no safe completion order, must be refused.
	require.False(t, d.TryAcquire(Mutex, 0, 1))
}

func TestSafeSequenceGranted(t *testing.T) {
	d := NewDetector()
	d.SetEnabled(true)
	d.Expand(Mutex, 2, 2)
	d.SetAvailable(Mutex, 0, 1)
	d.SetAvailable(Mutex, 1, 1)

	require.True(t, d.TryAcquire(Mutex, 0, 0))
	d.Commit(Mutex, 0, 0)
	// t1 takes mutex 1 and asks for mutex 0 only after t0 has released
	// it, so no cross-acquisition ever waits: every request is safe.
	require.True(t, d.TryAcquire(Mutex, 1, 1))
	d.Commit(Mutex, 1, 1)
	d.Release(Mutex, 0, 0)
	require.True(t, d.TryAcquire(Mutex, 1, 0))
}

func TestDisabledDetectionAlwaysGrants(t *testing.T) {
	d := NewDetector()
	d.Expand(Mutex, 2, 2)
	d.SetAvailable(Mutex, 0, 1)
	d.SetAvailable(Mutex, 1, 1)

	require.True(t, d.TryAcquire(Mutex, 0, 0))
	d.Commit(Mutex, 0, 0)
	require.True(t, d.TryAcquire(Mutex, 1, 1))
	d.Commit(Mutex, 1, 1)
	// with detection off the unsafe cross-acquisition is granted anyway
	require.True(t, d.TryAcquire(Mutex, 0, 1))
	d.Commit(Mutex, 0, 1)
}

func TestReleaseRestoresAvailability(t *testing.T) {
	d := NewDetector()
	d.SetEnabled(true)
	d.Expand(Semaphore, 1, 1)
	d.SetAvailable(Semaphore, 0, 1)

	require.True(t, d.TryAcquire(Semaphore, 0, 0))
	d.Commit(Semaphore, 0, 0)
	require.Equal(t, 0, d.available[Semaphore][0])
	d.Release(Semaphore, 0, 0)
	require.Equal(t, 1, d.available[Semaphore][0])
}

// TestTryAcquireNeverMutatesOnItsOwn locks in the fix for the premature-
// commit bug: a successful safety test must leave allocation/available
// untouched until the caller explicitly Commits, since the caller may
// still have to block an arbitrary time before actually obtaining the
// resource.
func TestTryAcquireNeverMutatesOnItsOwn(t *testing.T) {
	d := NewDetector()
	d.SetEnabled(true)
	d.Expand(Mutex, 1, 1)
	d.SetAvailable(Mutex, 0, 1)

	require.True(t, d.TryAcquire(Mutex, 0, 0))
	require.Equal(t, 1, d.available[Mutex][0])
	require.Equal(t, 0, d.alloc[Mutex][0][0])

	d.Commit(Mutex, 0, 0)
	require.Equal(t, 0, d.available[Mutex][0])
	require.Equal(t, 1, d.alloc[Mutex][0][0])
}

func TestExpandGrowsSparseMatrices(t *testing.T) {
	d := NewDetector()
	d.Expand(Mutex, 1, 1)
	d.Expand(Mutex, 3, 2)
	require.Len(t, d.available[Mutex], 3)
	require.Len(t, d.alloc[Mutex], 2)
	require.Len(t, d.alloc[Mutex][0], 3)
	require.Len(t, d.need[Mutex][1], 3)
}
