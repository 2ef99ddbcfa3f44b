package fs

import (
	"encoding/binary"

	"rvkernel/internal/config"
)

// nameBufSize is the on-disk name field width: config.NameLen bytes of
// name plus one NUL terminator, chosen (per config.go) so the whole
// DirEntry_t is a multiple of 4 bytes once the 4-byte inode id is added.
const nameBufSize = config.NameLen + 1

// DirEntrySize is the on-disk footprint of one directory entry.
const DirEntrySize = nameBufSize + 4

// DirEntry_t is one flat-root-directory record: a NUL-terminated name
// and the inode id it names. Grounded on spec.md §6's persisted-layout
// paragraph and easy-fs/vfs.rs's DirEntry usage (DIRENT_SZ, name(),
// inode_id()).
type DirEntry_t struct {
	Name    string
	InodeID uint32
}

func (d *DirEntry_t) marshal(buf []byte) {
	for i := range buf[:nameBufSize] {
		buf[i] = 0
	}
	copy(buf[:nameBufSize-1], d.Name)
	binary.LittleEndian.PutUint32(buf[nameBufSize:nameBufSize+4], d.InodeID)
}

func (d *DirEntry_t) unmarshal(buf []byte) {
	nul := nameBufSize - 1
	for i := 0; i < nameBufSize-1; i++ {
		if buf[i] == 0 {
			nul = i
			break
		}
	}
	d.Name = string(buf[:nul])
	d.InodeID = binary.LittleEndian.Uint32(buf[nameBufSize : nameBufSize+4])
}
