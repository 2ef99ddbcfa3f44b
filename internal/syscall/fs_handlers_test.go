package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rvkernel/internal/proc"
	"rvkernel/internal/vm"
)

func TestOpenWriteReadCloseRoundTrip(t *testing.T) {
	alloc := testAlloc()
	k := testKernel(alloc)

	var fdnum, n, readN int
	var readBuf [5]byte
	spawnAndRun(t, alloc, func(tt *proc.TCB_t) {
		pathVA := writeString(t, k, tt, "greeting.txt")
		fdnum = sysOpen(k, tt, pathVA, int(flagCreateReadWrite()))
		require.GreaterOrEqual(t, fdnum, 0)

		payloadVA := writeString(t, k, tt, "hello")
		n = sysWrite(k, tt, fdnum, payloadVA, 5)

		// Reading and writing share one offset, now at end of file:
		// reopen so the read starts from offset 0.
		require.Zero(t, sysClose(tt, fdnum))
		fdnum = sysOpen(k, tt, pathVA, 0)
		require.GreaterOrEqual(t, fdnum, 0)

		readVA := payloadVA + 16 // a fresh, unused slice of the same mapped page
		readN = sysRead(k, tt, fdnum, readVA, 5)
		buf, err := vm.TranslatedByteBuffer(k.Alloc, tt.Proc().AS.Token(), readVA, 5)
		require.Zero(t, err)
		copy(readBuf[:], buf)

		require.Zero(t, sysClose(tt, fdnum))
	})

	require.Equal(t, 5, n)
	require.Equal(t, 5, readN)
	require.Equal(t, "hello", string(readBuf[:]))
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	alloc := testAlloc()
	k := testKernel(alloc)

	var fdnum int
	spawnAndRun(t, alloc, func(tt *proc.TCB_t) {
		pathVA := writeString(t, k, tt, "nope.txt")
		fdnum = sysOpen(k, tt, pathVA, 0)
	})
	require.Equal(t, -1, fdnum)
}

func TestFstatReportsFileModeAndNlink(t *testing.T) {
	alloc := testAlloc()
	k := testKernel(alloc)

	var mode, nlink uint32
	spawnAndRun(t, alloc, func(tt *proc.TCB_t) {
		pathVA := writeString(t, k, tt, "stated.bin")
		fdnum := sysOpen(k, tt, pathVA, int(flagCreateReadWrite()))
		require.GreaterOrEqual(t, fdnum, 0)

		statVA := pathVA + 64
		require.Zero(t, sysFstat(k, tt, fdnum, statVA))

		buf, err := vm.TranslatedByteBuffer(k.Alloc, tt.Proc().AS.Token(), statVA, 16)
		require.Zero(t, err)
		mode = leUint32(buf[8:12])
		nlink = leUint32(buf[12:16])
	})
	require.Equal(t, uint32(0), mode) // ModeFile
	require.Equal(t, uint32(1), nlink)
}

func TestLinkatAndUnlinkatAdjustLinkCount(t *testing.T) {
	alloc := testAlloc()
	k := testKernel(alloc)

	var linkRet, unlinkRet, secondUnlinkRet int
	spawnAndRun(t, alloc, func(tt *proc.TCB_t) {
		origVA := writeString(t, k, tt, "orig.txt")
		fdnum := sysOpen(k, tt, origVA, int(flagCreateReadWrite()))
		require.GreaterOrEqual(t, fdnum, 0)
		require.Zero(t, sysClose(tt, fdnum))

		newVA := origVA + 32
		_ = writeStringAt(t, k, tt, newVA, "alias.txt")
		linkRet = sysLinkat(k, tt, origVA, newVA)

		unlinkRet = sysUnlinkat(k, tt, origVA)
		secondUnlinkRet = sysUnlinkat(k, tt, origVA)
	})
	require.Zero(t, linkRet)
	require.Zero(t, unlinkRet)
	require.Equal(t, -1, secondUnlinkRet)
	require.ElementsMatch(t, []string{"alias.txt"}, k.FS.RootInode().Ls())
}

// flagCreateReadWrite mirrors fs.ORDWR|fs.OCREATE without importing fs
// directly into every test, since the flags are plain bit values per
// spec.md §6.
func flagCreateReadWrite() int {
	const ordwr = 1 << 1
	const ocreate = 1 << 9
	return ordwr | ocreate
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func writeStringAt(t *testing.T, k *Kernel_t, tt *proc.TCB_t, va int, s string) int {
	t.Helper()
	buf := append([]byte(s), 0)
	if err := vm.TranslatedWriteBuffer(k.Alloc, tt.Proc().AS.Token(), va, buf); err != 0 {
		t.Fatalf("TranslatedWriteBuffer: %v", err)
	}
	return va
}
