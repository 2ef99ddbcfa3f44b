package proc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnedTaskTracksSyscallCountsAndPriority(t *testing.T) {
	alloc := testAlloc()
	image := minimalELF(0x4000)

	var exited sync.WaitGroup
	exited.Add(1)
	var spawned *TCB_t
	p, err := Spawn(alloc, image, func(t *TCB_t) int {
		defer exited.Done()
		spawned = t
		t.RecordSyscall(64)
		t.RecordSyscall(64)
		t.SetPriority(7)
		t.Proc().Exit(0)
		return 0
	})
	require.Zero(t, err)

	runUntilIdle(t, time.Second)
	exited.Wait()

	require.NotNil(t, spawned)
	require.Equal(t, 2, spawned.SyscallCount(64))
	require.Equal(t, 0, spawned.SyscallCount(63))
	require.Equal(t, 7, spawned.Priority())
	require.GreaterOrEqual(t, spawned.ElapsedMillis(), int64(0))
	require.True(t, p.IsZombie())
}
