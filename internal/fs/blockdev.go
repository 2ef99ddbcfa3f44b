// Package fs implements the bundled block-oriented file system: a block
// cache, bitmap-based inode/data allocators, a direct/single-indirect/
// double-indirect on-disk inode layout, a flat root directory, and pipes.
// Grounded on _examples/original_source/easy-fs (block_cache.rs,
// bitmap.rs, vfs.rs) and os/src/fs (pipe.rs, inode.rs), with the
// container/list-based cache queue idiom taken from biscuit's
// fs/blk.go.
package fs

import (
	"os"
	"sync"

	"rvkernel/internal/config"
)

// BlockSize is the size, in bytes, of one on-disk block.
const BlockSize = config.BlockSize

// BlockDevice_i is the minimal interface the file system needs from
// whatever backs it -- an in-memory byte slice in this simulator, a raw
// disk image file for a real deployment. Grounded on
// easy-fs/block_dev.rs's BlockDevice trait.
type BlockDevice_i interface {
	ReadBlock(id int, buf []byte)
	WriteBlock(id int, buf []byte)
}

// MemDevice_t is a BlockDevice_i backed by a flat in-memory byte slice,
// standing in for the disk image a real deployment would mmap or read
// via a block driver.
type MemDevice_t struct {
	blocks [][BlockSize]byte
}

// NewMemDevice allocates a zeroed device of nblocks blocks.
func NewMemDevice(nblocks int) *MemDevice_t {
	return &MemDevice_t{blocks: make([][BlockSize]byte, nblocks)}
}

func (d *MemDevice_t) ReadBlock(id int, buf []byte) {
	copy(buf, d.blocks[id][:])
}

func (d *MemDevice_t) WriteBlock(id int, buf []byte) {
	copy(d.blocks[id][:], buf)
}

// NumBlocks reports the device's total block count.
func (d *MemDevice_t) NumBlocks() int { return len(d.blocks) }

// FileDevice_t is a BlockDevice_i backed by a host file, the real
// counterpart to MemDevice_t for cmd/mkfs and cmd/ksim: the disk image
// those tools format and boot is plain bytes on the host file system,
// not kernel RAM. Grounded on biscuit's ahci_disk_t
// (biscuit/src/ufs/driver.go), which seeks an *os.File to
// block*BlockSize before every read/write rather than mmapping it.
type FileDevice_t struct {
	mu sync.Mutex
	f  *os.File
}

// OpenFileDevice opens (creating if necessary) the image file at path
// for block-sized random access.
func OpenFileDevice(path string) (*FileDevice_t, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDevice_t{f: f}, nil
}

func (d *FileDevice_t) ReadBlock(id int, buf []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.Seek(int64(id*BlockSize), 0); err != nil {
		panic(err)
	}
	if _, err := d.f.Read(buf); err != nil {
		panic(err)
	}
}

func (d *FileDevice_t) WriteBlock(id int, buf []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.Seek(int64(id*BlockSize), 0); err != nil {
		panic(err)
	}
	if _, err := d.f.Write(buf); err != nil {
		panic(err)
	}
}

// Sync flushes the image file to stable storage, mirroring
// ahci_disk_t's BDEV_FLUSH handling of f.Sync().
func (d *FileDevice_t) Sync() error { return d.f.Sync() }

// Close releases the underlying file handle.
func (d *FileDevice_t) Close() error { return d.f.Close() }

// Grow extends the image file to hold at least nblocks blocks, zero
// filling any new space, so Format can lay out a superblock and bitmaps
// across the whole requested image size up front.
func (d *FileDevice_t) Grow(nblocks int) error {
	return d.f.Truncate(int64(nblocks) * BlockSize)
}
