// Package fd implements the per-process file-descriptor table:
// dynamic dispatch over any readable/writable object (a pipe end, a
// regular file) behind a small vtable-style interface. Grounded on
// biscuit's fd/fd.go (Fd_t wrapping an fdops.Fdops_i) and spec.md
// §9's "dynamic dispatch for files" note.
package fd

import (
	"rvkernel/internal/defs"
	"rvkernel/internal/util"
)

// File_i is the common interface every open file description
// implements: a regular inode-backed file, a pipe end, standard
// input/output. Grounded on spec.md §9's File{readable,writable,
// read(buf)->n,write(buf)->n}.
type File_i interface {
	Readable() bool
	Writable() bool
	Read(buf []byte) (int, defs.Err_t)
	Write(buf []byte) (int, defs.Err_t)
	Close() defs.Err_t
}

// Fd_t is one entry in a process's descriptor table.
type Fd_t struct {
	File File_i
}

// Table_t is a process's file-descriptor table: small integer handles
// over a SlotTable_t, reusing closed slots before extending, matching
// spec.md §4.6's vacated-slot-first allocation policy applied here to
// descriptors.
type Table_t struct {
	slots util.SlotTable_t[Fd_t]
}

// Install places f into the first free descriptor slot.
func (t *Table_t) Install(f File_i) int {
	return t.slots.Insert(Fd_t{File: f})
}

// Get returns the descriptor at fd and whether it is open.
func (t *Table_t) Get(fd int) (*Fd_t, bool) {
	entry, ok := t.slots.Get(fd)
	if !ok {
		return nil, false
	}
	return &entry, true
}

// Close closes and removes the descriptor at fd.
func (t *Table_t) Close(fd int) defs.Err_t {
	entry, ok := t.slots.Get(fd)
	if !ok {
		return -defs.EBADF
	}
	t.slots.Remove(fd)
	return entry.File.Close()
}

// Read dispatches to the descriptor's File_i.Read, refusing a
// non-readable or closed descriptor.
func (t *Table_t) Read(fdnum int, buf []byte) (int, defs.Err_t) {
	entry, ok := t.slots.Get(fdnum)
	if !ok {
		return 0, -defs.EBADF
	}
	if !entry.File.Readable() {
		return 0, -defs.EINVAL
	}
	return entry.File.Read(buf)
}

// Write dispatches to the descriptor's File_i.Write, refusing a
// non-writable or closed descriptor.
func (t *Table_t) Write(fdnum int, buf []byte) (int, defs.Err_t) {
	entry, ok := t.slots.Get(fdnum)
	if !ok {
		return 0, -defs.EBADF
	}
	if !entry.File.Writable() {
		return 0, -defs.EINVAL
	}
	return entry.File.Write(buf)
}

// Dup duplicates fd's entry (sharing the same File_i) into a fresh
// slot, the descriptor-table half of a dup-style syscall.
func (t *Table_t) Dup(fdnum int) (int, defs.Err_t) {
	entry, ok := t.slots.Get(fdnum)
	if !ok {
		return 0, -defs.EBADF
	}
	return t.slots.Insert(entry), 0
}

// CloseAll closes every open descriptor, used by exit per spec.md §4.4.
func (t *Table_t) CloseAll() {
	for i := 0; i < t.slots.Len(); i++ {
		if entry, ok := t.slots.Get(i); ok {
			entry.File.Close()
			t.slots.Remove(i)
		}
	}
}
