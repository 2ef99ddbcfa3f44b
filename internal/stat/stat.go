// Package stat mirrors the wire-compatible fstat record spec.md §6
// defines ({dev,ino,mode,nlink,pad[7]}), grounded on biscuit's
// stat/stat.go field-writer pattern (Wdev, Wino, Wmode, ...).
// Biscuit serializes via an unsafe.Pointer cast over its C-layout
// struct; this kernel has no foreign-ABI boundary to match byte-for-byte
// against (fstat's caller is this module's own syscall layer, not an
// external libc), so Marshal uses encoding/binary instead of unsafe,
// keeping the same setter-style API the pack's stat type shows.
package stat

import "encoding/binary"

// WireSize is the marshaled byte length of a Stat_t: four uint32 fields
// plus seven reserved uint32 pad words, matching spec.md §6.
const WireSize = 4*4 + 7*4

// Stat_t mirrors a file's stat information.
type Stat_t struct {
	dev   uint32
	ino   uint32
	mode  uint32
	nlink uint32
}

// File mode bits for the mode field, grounded on the same file-type
// distinction DiskInodeType_t carries in internal/fs.
const (
	ModeFile = 0
	ModeDir  = 1
)

// Wdev stores the device ID. This kernel has exactly one block device
// per mounted file system, so dev is always 0.
func (st *Stat_t) Wdev(v uint32) { st.dev = v }

// Wino stores the inode number.
func (st *Stat_t) Wino(v uint32) { st.ino = v }

// Wmode records the file mode (ModeFile or ModeDir).
func (st *Stat_t) Wmode(v uint32) { st.mode = v }

// Wnlink records the hard-link count.
func (st *Stat_t) Wnlink(v uint32) { st.nlink = v }

// Mode returns the stored mode value.
func (st *Stat_t) Mode() uint32 { return st.mode }

// Ino returns the stored inode number.
func (st *Stat_t) Ino() uint32 { return st.ino }

// Nlink returns the stored link count.
func (st *Stat_t) Nlink() uint32 { return st.nlink }

// Marshal writes the wire-compatible record into buf, which must be at
// least WireSize bytes.
func (st *Stat_t) Marshal(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], st.dev)
	binary.LittleEndian.PutUint32(buf[4:8], st.ino)
	binary.LittleEndian.PutUint32(buf[8:12], st.mode)
	binary.LittleEndian.PutUint32(buf[12:16], st.nlink)
	for i := 16; i < WireSize; i += 4 {
		binary.LittleEndian.PutUint32(buf[i:i+4], 0)
	}
}
