package fs

import (
	"sync"

	"rvkernel/internal/defs"
)

// OpenFile_t wraps an Inode_t with the per-open-instance offset and
// read/write permissions a file descriptor needs, implementing
// fd.File_i. Grounded on os/src/fs/inode.rs's OSInode/OSInodeInner,
// which wraps easy-fs's Inode the same way.
type OpenFile_t struct {
	mu       sync.Mutex
	readable bool
	writable bool
	offset   int
	inode    *Inode_t
}

// OpenFlag_t mirrors the open() flag bits spec.md's external interface
// exposes, grounded on os/src/fs/inode.rs's OpenFlags.
type OpenFlag_t uint32

const (
	ORDONLY OpenFlag_t = 0
	OWRONLY OpenFlag_t = 1 << 0
	ORDWR   OpenFlag_t = 1 << 1
	OCREATE OpenFlag_t = 1 << 9
	OTRUNC  OpenFlag_t = 1 << 10
)

func (f OpenFlag_t) readWrite() (readable, writable bool) {
	switch {
	case f&ORDWR != 0:
		return true, true
	case f&OWRONLY != 0:
		return false, true
	default:
		return true, false
	}
}

// OpenFile resolves name under root by flags, creating or truncating it
// as requested. Grounded on os/src/fs/inode.rs's open_file.
func OpenFile(root *Inode_t, name string, flags OpenFlag_t) (*OpenFile_t, defs.Err_t) {
	readable, writable := flags.readWrite()
	inode, found := root.Find(name)
	if flags&OCREATE != 0 {
		if found {
			inode.Clear()
		} else {
			inode, found = root.Create(name)
			if !found {
				return nil, -defs.ENOSPC
			}
		}
		return &OpenFile_t{readable: readable, writable: writable, inode: inode}, 0
	}
	if !found {
		return nil, -defs.ENOENT
	}
	if flags&OTRUNC != 0 {
		inode.Clear()
	}
	return &OpenFile_t{readable: readable, writable: writable, inode: inode}, 0
}

func (f *OpenFile_t) Readable() bool { return f.readable }
func (f *OpenFile_t) Writable() bool { return f.writable }

// Inode exposes the underlying vfs inode, used by the fstat syscall
// handler to read size/type/nlink without adding a stat-shaped method
// to OpenFile_t itself.
func (f *OpenFile_t) Inode() *Inode_t { return f.inode }

// Read implements fd.File_i, reading at the file's current offset and
// advancing it by the amount read.
func (f *OpenFile_t) Read(buf []byte) (int, defs.Err_t) {
	if !f.readable {
		return 0, -defs.EBADF
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.inode.ReadAt(f.offset, buf)
	f.offset += n
	return n, 0
}

// Write implements fd.File_i, writing at the file's current offset and
// advancing it by the amount written.
func (f *OpenFile_t) Write(buf []byte) (int, defs.Err_t) {
	if !f.writable {
		return 0, -defs.EBADF
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.inode.WriteAt(f.offset, buf)
	f.offset += n
	return n, 0
}

// Close implements fd.File_i; regular files need no release step beyond
// what WriteAt already syncs.
func (f *OpenFile_t) Close() defs.Err_t { return 0 }
