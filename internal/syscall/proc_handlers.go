package syscall

import (
	"rvkernel/internal/defs"
	"rvkernel/internal/proc"
	"rvkernel/internal/vm"
)

// sysExit marks the calling process a zombie and tells Dispatch's
// caller (the task's own Body_t) to return immediately afterward,
// exactly as spec.md §4.4's exit: "schedule away without saving the
// current task context" -- here, there is no context to save because
// the goroutine itself is about to end.
func sysExit(t *proc.TCB_t, code int) (int64, bool) {
	t.Proc().Exit(code)
	return int64(code), true
}

// sysYield gives up the hart cooperatively, resuming once the
// scheduler redispatches this task.
func sysYield(t *proc.TCB_t) (int64, bool) {
	t.Yield()
	return 0, false
}

func sysGetPid(t *proc.TCB_t) int {
	return t.Proc().Pid
}

// sysFork runs proc.PCB_t.Fork with the caller-supplied childBody: see
// Dispatch's doc comment for why a real instruction-pointer duplication
// is not possible in this hosted simulator.
func sysFork(t *proc.TCB_t, childBody proc.Body_t) int {
	child, err := t.Proc().Fork(childBody)
	if err != 0 {
		return defs.RetGenericFail
	}
	return child.Pid
}

// sysExec replaces the calling process's address space with a fresh
// ELF image read from the path string at a0, via k's frame allocator.
// The image is looked up by path in k.Programs (see LoadProgram), since
// this kernel has no executable loader of its own beyond
// vm.AddressSpace_t.LoadELF.
func sysExec(k *Kernel_t, t *proc.TCB_t, pathVA int) int {
	path, err := vm.TranslatedString(k.Alloc, t.Proc().AS.Token(), pathVA, maxPathLen)
	if err != 0 {
		return defs.RetGenericFail
	}
	image, ok := k.LoadProgram(path)
	if !ok {
		return defs.RetGenericFail
	}
	if execErr := t.Proc().Exec(k.Alloc, image, t.Tid); execErr != 0 {
		return defs.RetGenericFail
	}
	return 0
}

// sysSpawn is fork+exec in one step: a fresh process built directly
// from the named program's ELF image, per spec.md §6's "Combined
// fork+exec".
func sysSpawn(k *Kernel_t, t *proc.TCB_t, pathVA int, childBody proc.Body_t) int {
	path, err := vm.TranslatedString(k.Alloc, t.Proc().AS.Token(), pathVA, maxPathLen)
	if err != 0 {
		return defs.RetGenericFail
	}
	image, ok := k.LoadProgram(path)
	if !ok {
		return defs.RetGenericFail
	}
	child, spawnErr := proc.Spawn(k.Alloc, image, childBody)
	if spawnErr != 0 {
		return defs.RetGenericFail
	}
	child.Parent = t.Proc()
	parent := t.Proc()
	parent.Children = append(parent.Children, child)
	return child.Pid
}

// sysWaitPid reaps a zombie child, writing its exit code through
// codeVA in the caller's address space.
func sysWaitPid(k *Kernel_t, t *proc.TCB_t, pid, codeVA int) int {
	var code int
	result := t.Proc().WaitPid(pid, &code)
	if result < 0 {
		return result
	}
	buf := make([]byte, 4)
	buf[0] = byte(code)
	buf[1] = byte(code >> 8)
	buf[2] = byte(code >> 16)
	buf[3] = byte(code >> 24)
	if err := vm.TranslatedWriteBuffer(k.Alloc, t.Proc().AS.Token(), codeVA, buf); err != 0 {
		return defs.RetGenericFail
	}
	return result
}

// sysSetPriority requires prio >= 2 per spec.md §6.
func sysSetPriority(t *proc.TCB_t, prio int) int {
	if prio < 2 {
		return defs.RetGenericFail
	}
	t.SetPriority(prio)
	return prio
}

// timeval layout: two little-endian uint64 fields, {sec, usec}.
const timevalWireSize = 16

func sysGetTime(k *Kernel_t, t *proc.TCB_t, tvVA int) int {
	elapsed := t.ElapsedMillis()
	sec := uint64(elapsed / 1000)
	usec := uint64((elapsed % 1000) * 1000)
	buf := make([]byte, timevalWireSize)
	putUint64(buf[0:8], sec)
	putUint64(buf[8:16], usec)
	if err := vm.TranslatedWriteBuffer(k.Alloc, t.Proc().AS.Token(), tvVA, buf); err != 0 {
		return defs.RetGenericFail
	}
	return 0
}

func putUint64(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

// taskInfoWireSize is {status (4 bytes), syscall_times[syscallSlots]
// (4 bytes each), time (8 bytes)}, a host-side convenience layout
// since spec.md §6 leaves task_info's exact wire shape unspecified
// beyond "status, per-syscall counts, elapsed ms". syscallSlots is
// sized to the highest syscall id this package defines
// (SysEnableDeadlockDetect, 1012) plus one, mirroring the original's
// syscall_times indexed directly by id rather than by a dense
// small-integer remapping.
const syscallSlots = SysEnableDeadlockDetect + 1

func sysTaskInfo(k *Kernel_t, t *proc.TCB_t, tiVA int) int {
	buf := make([]byte, 4+syscallSlots*4+8)
	putUint32(buf[0:4], uint32(t.Status()))
	for i := 0; i < syscallSlots; i++ {
		off := 4 + i*4
		putUint32(buf[off:off+4], uint32(t.SyscallCount(i)))
	}
	putUint64(buf[4+syscallSlots*4:], uint64(t.ElapsedMillis()))
	if err := vm.TranslatedWriteBuffer(k.Alloc, t.Proc().AS.Token(), tiVA, buf); err != 0 {
		return defs.RetGenericFail
	}
	return 0
}

func putUint32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

// sysMmap maps a fresh framed region [start,start+len) with the
// permissions encoded in port's low 3 bits, which happen to share
// vm.Perm_t's RWX bit positions exactly (PermR=1, PermW=2, PermX=4), so
// no remapping table is needed beyond masking and adding PermU.
func sysMmap(t *proc.TCB_t, start, length, port int) int {
	if port&^0x7 != 0 || port&0x7 == 0 {
		return defs.RetGenericFail
	}
	perm := vm.Perm_t(port&0x7) | vm.PermU
	if err := t.Proc().AS.InsertFramedArea(start, start+length, perm); err != nil {
		return defs.RetGenericFail
	}
	return 0
}

// sysMunmap releases the framed segment starting exactly at start,
// per spec.md §6's "Page-aligned".
func sysMunmap(t *proc.TCB_t, start, length int) int {
	vpn := vm.VpnOf(start)
	if !t.Proc().AS.RemoveAreaWithStartVpn(vpn) {
		return defs.RetGenericFail
	}
	return 0
}

const maxPathLen = 256

// LoadProgram resolves a path string to an ELF image through
// k.Programs, since program storage is a host concern distinct from
// the kernel's own fs.FileSystem_t
// (which holds user data files, not the kernel's own loadable images).
func (k *Kernel_t) LoadProgram(path string) ([]byte, bool) {
	if k.Programs == nil {
		return nil, false
	}
	img, ok := k.Programs[path]
	return img, ok
}
