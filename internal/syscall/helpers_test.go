package syscall

import (
	"sync"
	"testing"
	"time"

	"rvkernel/internal/fs"
	"rvkernel/internal/mem"
	"rvkernel/internal/proc"
	"rvkernel/internal/vm"
)

// writeString grows tt's heap by one more page on every call and
// writes s plus a NUL terminator at the start of that new page, returning that
// virtual address -- a stand-in for how a real libc would lay out an
// argv/path string in a process's own memory before trapping into the
// kernel.
func writeString(t *testing.T, k *Kernel_t, tt *proc.TCB_t, s string) int {
	t.Helper()
	as := tt.Proc().AS
	va, err := as.ChangeProgramBrk(4096)
	if err != 0 {
		t.Fatalf("ChangeProgramBrk: %v", err)
	}
	start := va - 4096
	buf := append([]byte(s), 0)
	if werr := vm.TranslatedWriteBuffer(k.Alloc, as.Token(), start, buf); werr != 0 {
		t.Fatalf("TranslatedWriteBuffer: %v", werr)
	}
	return start
}

func testAlloc() *mem.Allocator_t { return mem.NewAllocator(0, 8192) }

// testKernel builds a Kernel_t sharing alloc with whatever address
// spaces the test's processes are built from -- TranslatedByteBuffer
// and friends resolve pages through alloc.PageAt(ppn), so the
// allocator must be the exact instance that allocated those frames.
func testKernel(alloc *mem.Allocator_t) *Kernel_t {
	dev := fs.NewMemDevice(1536)
	filesys := fs.Format(dev, 1536)
	return NewKernel(alloc, filesys)
}

// minimalELF builds the smallest valid little-endian ELF64 executable
// with one PT_LOAD segment, entry==vaddr, empty contents. Duplicated
// from internal/proc's unexported test helper of the same name, since
// that package does not expose it across package boundaries.
func minimalELF(vaddr uint64) []byte {
	const ehsize = 64
	const phsize = 56
	buf := make([]byte, ehsize+phsize)
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2
	buf[5] = 1
	buf[6] = 1
	put16 := func(off int, v uint16) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
	}
	put32 := func(off int, v uint32) {
		for i := 0; i < 4; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	put64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	const ET_EXEC = 2
	const EM_RISCV = 243
	const PT_LOAD = 1
	const PF_R = 4
	const PF_X = 1

	put16(16, ET_EXEC)
	put16(18, EM_RISCV)
	put32(20, 1)
	put64(24, vaddr)
	put64(32, ehsize)
	put16(52, ehsize)
	put16(54, phsize)
	put16(56, 1)

	ph := buf[ehsize:]
	put32ph := func(off int, v uint32) {
		for i := 0; i < 4; i++ {
			ph[off+i] = byte(v >> (8 * i))
		}
	}
	put64ph := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			ph[off+i] = byte(v >> (8 * i))
		}
	}
	put32ph(0, PT_LOAD)
	put32ph(4, PF_R|PF_X)
	put64ph(8, ehsize+phsize)
	put64ph(16, vaddr)
	put64ph(24, vaddr)
	put64ph(32, 0)
	put64ph(40, 0)
	return buf
}

func runUntilIdle(t *testing.T, timeout time.Duration) {
	t.Helper()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		proc.RunScheduler(stop)
		close(done)
	}()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if proc.ReadyQ.Len() == 0 && proc.CPU.Current() == nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("scheduler did not stop")
	}
}

// spawnAndRun spawns a minimal process from alloc whose single thread
// runs body, then drives the scheduler until the process exits.
func spawnAndRun(t *testing.T, alloc *mem.Allocator_t, body func(tt *proc.TCB_t)) *proc.PCB_t {
	t.Helper()
	image := minimalELF(0x1000)

	var done sync.WaitGroup
	done.Add(1)
	p, err := proc.Spawn(alloc, image, func(tt *proc.TCB_t) int {
		defer done.Done()
		body(tt)
		tt.Proc().Exit(0)
		return 0
	})
	if err != 0 {
		t.Fatalf("spawn failed: %v", err)
	}
	runUntilIdle(t, 2*time.Second)
	done.Wait()
	return p
}
