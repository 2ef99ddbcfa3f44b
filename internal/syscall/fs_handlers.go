package syscall

import (
	"rvkernel/internal/defs"
	"rvkernel/internal/fs"
	"rvkernel/internal/proc"
	"rvkernel/internal/stat"
	"rvkernel/internal/vm"
)

// sysOpen resolves the NUL-terminated path at pathVA against k.FS's
// root directory and installs the resulting fs.OpenFile_t into the
// calling process's descriptor table. This kernel has no nested
// directories (spec.md §6's flat-root Non-goal), so path is taken as a
// single root-relative name.
func sysOpen(k *Kernel_t, t *proc.TCB_t, pathVA, flags int) int {
	path, err := vm.TranslatedString(k.Alloc, t.Proc().AS.Token(), pathVA, maxPathLen)
	if err != 0 {
		return defs.RetGenericFail
	}
	f, openErr := fs.OpenFile(k.FS.RootInode(), path, fs.OpenFlag_t(flags))
	if openErr != 0 {
		return defs.RetGenericFail
	}
	return t.Proc().FDs.Install(f)
}

func sysClose(t *proc.TCB_t, fdnum int) int {
	if err := t.Proc().FDs.Close(fdnum); err != 0 {
		return defs.RetGenericFail
	}
	return 0
}

// sysRead copies up to len bytes from fd into the user buffer at
// bufVA, returning the count read or -1 on a bad descriptor.
func sysRead(k *Kernel_t, t *proc.TCB_t, fdnum, bufVA, length int) int {
	tmp := make([]byte, length)
	n, err := t.Proc().FDs.Read(fdnum, tmp)
	if err != 0 {
		return defs.RetGenericFail
	}
	if n > 0 {
		if werr := vm.TranslatedWriteBuffer(k.Alloc, t.Proc().AS.Token(), bufVA, tmp[:n]); werr != 0 {
			return defs.RetGenericFail
		}
	}
	return n
}

// sysWrite copies len bytes from the user buffer at bufVA into fd,
// returning the count written or -1 on a bad descriptor.
func sysWrite(k *Kernel_t, t *proc.TCB_t, fdnum, bufVA, length int) int {
	data, err := vm.TranslatedByteBuffer(k.Alloc, t.Proc().AS.Token(), bufVA, length)
	if err != 0 {
		return defs.RetGenericFail
	}
	n, writeErr := t.Proc().FDs.Write(fdnum, data)
	if writeErr != 0 {
		return defs.RetGenericFail
	}
	return n
}

// sysFstat fills statVA with {dev,ino,mode,nlink,pad[7]} describing
// fd's underlying inode, per spec.md §6's fstat row. dev is always 0:
// this kernel mounts exactly one file system. ino is always written as
// 0; the inode number is not reported.
func sysFstat(k *Kernel_t, t *proc.TCB_t, fdnum, statVA int) int {
	entry, ok := t.Proc().FDs.Get(fdnum)
	if !ok {
		return defs.RetGenericFail
	}
	of, ok := entry.File.(*fs.OpenFile_t)
	if !ok {
		return defs.RetGenericFail
	}
	inode := of.Inode()

	var st stat.Stat_t
	st.Wdev(0)
	st.Wino(0)
	if inode.IsDir() {
		st.Wmode(stat.ModeDir)
	} else {
		st.Wmode(stat.ModeFile)
	}
	st.Wnlink(uint32(inode.Nlink()))

	buf := make([]byte, stat.WireSize)
	st.Marshal(buf)
	if err := vm.TranslatedWriteBuffer(k.Alloc, t.Proc().AS.Token(), statVA, buf); err != 0 {
		return defs.RetGenericFail
	}
	return 0
}

// sysLinkat appends a new root-directory entry aliasing old's inode,
// per spec.md §4.8's link(old,new).
func sysLinkat(k *Kernel_t, t *proc.TCB_t, oldVA, newVA int) int {
	token := t.Proc().AS.Token()
	oldName, err := vm.TranslatedString(k.Alloc, token, oldVA, maxPathLen)
	if err != 0 {
		return defs.RetGenericFail
	}
	newName, err := vm.TranslatedString(k.Alloc, token, newVA, maxPathLen)
	if err != 0 {
		return defs.RetGenericFail
	}
	if !k.FS.RootInode().Link(oldName, newName) {
		return defs.RetGenericFail
	}
	return 0
}

// sysUnlinkat removes name from the root directory, clearing its data
// once its link count reaches zero (spec.md §6's unlinkat row).
func sysUnlinkat(k *Kernel_t, t *proc.TCB_t, nameVA int) int {
	name, err := vm.TranslatedString(k.Alloc, t.Proc().AS.Token(), nameVA, maxPathLen)
	if err != 0 {
		return defs.RetGenericFail
	}
	if !k.FS.RootInode().Unlink(name) {
		return defs.RetGenericFail
	}
	return 0
}
