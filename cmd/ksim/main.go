// ksim boots the simulated kernel against a file-backed disk image and
// runs the built-in init program. The boot order is: open (or format)
// the file system, build the frame allocator and the syscall layer's
// Kernel_t, spawn initproc, then run the scheduler until initproc
// exits. There is no separate kernel heap or kernel address space
// step; the processor and ready queue are package-level singletons in
// internal/proc.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rvkernel/internal/config"
	"rvkernel/internal/fs"
	"rvkernel/internal/klog"
	"rvkernel/internal/mem"
	"rvkernel/internal/proc"
	sys "rvkernel/internal/syscall"
	"rvkernel/internal/trap"
	"rvkernel/internal/vm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		imagePath string
		blocks    int
		frames    int
		format    bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "ksim",
		Short: "boot the simulated kernel against a disk image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				klog.LevelVar.Set(slog.LevelDebug)
			}
			return run(imagePath, blocks, frames, format)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "ksim.img", "path to the disk image file")
	cmd.Flags().IntVar(&blocks, "blocks", 4096, "total blocks to format the image with (only with --format)")
	cmd.Flags().IntVar(&frames, "frames", 16384, "physical frame count for the simulated allocator")
	cmd.Flags().BoolVar(&format, "format", false, "format a fresh file system before booting")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level kernel logging")

	return cmd
}

func run(imagePath string, blocks, frames int, format bool) error {
	log := klog.For("boot")

	dev, err := fs.OpenFileDevice(imagePath)
	if err != nil {
		return fmt.Errorf("ksim: open image: %w", err)
	}
	defer dev.Close()

	var filesystem *fs.FileSystem_t
	if format {
		if err := dev.Grow(blocks); err != nil {
			return fmt.Errorf("ksim: grow image: %w", err)
		}
		filesystem = fs.Format(dev, blocks)
		log.Info("formatted fresh file system", "blocks", blocks)
	} else {
		filesystem = fs.Open(dev)
		log.Info("mounted existing file system")
	}

	alloc := mem.NewAllocator(0, frames)
	k := sys.NewKernel(alloc, filesystem)
	log.Info("frame allocator and kernel state ready", "frames", frames)

	image := stubELF(config.PageSize)
	initPCB, spawnErr := proc.Spawn(alloc, image, initBody(k, log))
	if spawnErr != 0 {
		return fmt.Errorf("ksim: spawn initproc: %d", spawnErr)
	}
	proc.InitProc = initPCB
	log.Info("initproc spawned", "pid", initPCB.Pid)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		proc.RunScheduler(stop)
		close(done)
	}()

	for !initPCB.IsZombie() {
		time.Sleep(time.Millisecond)
	}
	close(stop)
	<-done

	filesystem.Cache().SyncAll()
	if err := dev.Sync(); err != nil {
		return fmt.Errorf("ksim: sync image: %w", err)
	}

	log.Info("initproc exited", "code", initPCB.ExitCode())
	return nil
}

// initBody demonstrates the full syscall surface through the real
// Dispatch entry point: a file round trip, a mutex round trip, and a
// fork/waitpid pair, mirroring the fork-then-reap loop
// original_source's initproc.rs runs forever, here run once since this
// is a demonstration boot rather than a persistent shell host.
func initBody(k *sys.Kernel_t, log *slog.Logger) proc.Body_t {
	return func(t *proc.TCB_t) int {
		tf := t.Ctx

		pathVA := growHeapAndWrite(k.Alloc, t, "greeting.txt")
		const ordwrCreate = 1<<1 | 1<<9
		fdnum := doSyscall(k, t, tf, sys.SysOpen, pathVA, ordwrCreate, 0, nil)
		if fdnum < 0 {
			log.Error("initproc: open failed", "ret", fdnum)
			return 1
		}
		log.Info("initproc: opened greeting.txt", "fd", fdnum)

		payloadVA := growHeapAndWrite(k.Alloc, t, "hello from ksim\n")
		n := doSyscall(k, t, tf, sys.SysWrite, int(fdnum), payloadVA, 16, nil)
		log.Info("initproc: wrote greeting", "bytes", n)
		doSyscall(k, t, tf, sys.SysClose, int(fdnum), 0, 0, nil)

		mutexID := doSyscall(k, t, tf, sys.SysMutexCreate, 0, 0, 0, nil)
		doSyscall(k, t, tf, sys.SysMutexLock, int(mutexID), 0, 0, nil)
		doSyscall(k, t, tf, sys.SysMutexUnlock, int(mutexID), 0, 0, nil)
		log.Info("initproc: mutex round trip complete", "mutex", mutexID)

		childDone := make(chan struct{})
		childPid := doSyscall(k, t, tf, sys.SysFork, 0, 0, 0, func(ct *proc.TCB_t) int {
			defer close(childDone)
			log.Info("child: running", "pid", ct.Proc().Pid)
			ct.Proc().Exit(0)
			return 0
		})
		log.Info("initproc: forked child", "pid", childPid)
		t.Suspend(func() { <-childDone })

		codeVA := growHeapAndWrite(k.Alloc, t, "")
		waitRet := doSyscall(k, t, tf, sys.SysWaitPid, int(childPid), codeVA, 0, nil)
		log.Info("initproc: reaped child", "ret", waitRet)

		t.Proc().Exit(0)
		return 0
	}
}

// doSyscall loads a7/a0/a1/a2 with id/a0/a1/a2 and runs the real
// Dispatch entry point, the same register convention spec.md §6 names.
func doSyscall(k *sys.Kernel_t, t *proc.TCB_t, tf *trap.Context_t, id, a0, a1, a2 int, childBody proc.Body_t) int64 {
	tf.X[17] = uint64(id)
	tf.X[10] = uint64(a0)
	tf.X[11] = uint64(a1)
	tf.X[12] = uint64(a2)
	ret, _ := sys.Dispatch(k, t, tf, childBody)
	return ret
}

// growHeapAndWrite grows t's heap by one page and writes s plus a NUL
// terminator at its start, returning that virtual address -- the same
// stand-in for a libc's argv/path layout the syscall package's own
// tests use, reused here since initBody drives syscalls directly
// rather than through compiled user code.
func growHeapAndWrite(alloc *mem.Allocator_t, t *proc.TCB_t, s string) int {
	as := t.Proc().AS
	va, err := as.ChangeProgramBrk(config.PageSize)
	if err != 0 {
		panic(err)
	}
	start := va - config.PageSize
	buf := append([]byte(s), 0)
	if werr := vm.TranslatedWriteBuffer(alloc, as.Token(), start, buf); werr != 0 {
		panic(werr)
	}
	return start
}

// stubELF builds the smallest valid little-endian ELF64 executable with
// one PT_LOAD segment and an empty body, entry==vaddr. initBody never
// actually runs the mapped code -- it drives syscalls directly through
// Dispatch -- so the segment exists only to give vm.AddressSpace_t.LoadELF
// a real address space to build, the same way internal/proc's own tests
// synthesize an ELF image rather than shipping a compiled one.
func stubELF(vaddr int) []byte {
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
	const etExec = 2
	const emRiscv = 243
	const ptLoad = 1
	const pfR = 4
	const pfX = 1

	put16(16, etExec)
	put16(18, emRiscv)
	put32(20, 1)
	put64(24, uint64(vaddr))
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
	put32ph(0, ptLoad)
	put32ph(4, pfR|pfX)
	put64ph(8, ehsize+phsize)
	put64ph(16, uint64(vaddr))
	put64ph(24, uint64(vaddr))
	put64ph(32, 0)
	put64ph(40, 0)
	return buf
}
