package fs

import (
	"encoding/binary"
)

// SuperBlockMagic identifies a block 0 as belonging to this file system.
const SuperBlockMagic = 0x3b800001

// SuperBlock_t is the on-disk layout of block 0: the extents of every
// other region. Grounded on spec.md §6's persisted-layout description
// and modeled field-accessor-style after biscuit's fs/super.go
// Superblock_t, backed here by encoding/binary instead of hand-rolled
// byte shifts.
type SuperBlock_t struct {
	Magic           uint32
	TotalBlocks      uint32
	InodeBitmapBlocks uint32
	InodeAreaBlocks  uint32
	DataBitmapBlocks uint32
	DataAreaBlocks   uint32
}

const superBlockWireSize = 24

func (sb *SuperBlock_t) marshal(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], sb.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], sb.TotalBlocks)
	binary.LittleEndian.PutUint32(buf[8:12], sb.InodeBitmapBlocks)
	binary.LittleEndian.PutUint32(buf[12:16], sb.InodeAreaBlocks)
	binary.LittleEndian.PutUint32(buf[16:20], sb.DataBitmapBlocks)
	binary.LittleEndian.PutUint32(buf[20:24], sb.DataAreaBlocks)
}

func (sb *SuperBlock_t) unmarshal(buf []byte) {
	sb.Magic = binary.LittleEndian.Uint32(buf[0:4])
	sb.TotalBlocks = binary.LittleEndian.Uint32(buf[4:8])
	sb.InodeBitmapBlocks = binary.LittleEndian.Uint32(buf[8:12])
	sb.InodeAreaBlocks = binary.LittleEndian.Uint32(buf[12:16])
	sb.DataBitmapBlocks = binary.LittleEndian.Uint32(buf[16:20])
	sb.DataAreaBlocks = binary.LittleEndian.Uint32(buf[20:24])
}

// DiskInodeType_t distinguishes a file from a directory.
type DiskInodeType_t uint8

const (
	TypeFile DiskInodeType_t = iota
	TypeDir
)

// Index-tree geometry: direct entries, then one single-indirect block,
// then one double-indirect block, each holding BlockSize/4 uint32
// block-number entries. Spec.md §6 leaves the exact shape a file-system
// internal detail; this mirrors the well-known easy-fs bound structure
// (direct+indirect1+indirect2) the rest of the pack's bitmap/block_cache
// code was written to sit underneath, since layout.rs itself was not
// present in the retrieval pack.
const (
	entriesPerIndexBlock = BlockSize / 4
	directCount          = 28
	indirect1Bound       = directCount + entriesPerIndexBlock
	indirect2Bound       = indirect1Bound + entriesPerIndexBlock*entriesPerIndexBlock
)

// DiskInode_t is the on-disk inode: size, type, and the index tree
// locating its data blocks. Grounded on easy-fs's DiskInode (referenced
// throughout vfs.rs's read_at/write_at/increase_size/clear_size, whose
// exact field layout this reconstructs from that usage).
type DiskInode_t struct {
	Size      uint32
	Type      DiskInodeType_t
	Nlink     uint32
	Direct    [directCount]uint32
	Indirect1 uint32
	Indirect2 uint32
}

// DiskInodeWireSize is the on-disk byte footprint of one DiskInode_t.
const DiskInodeWireSize = 4 + 1 + 4 + directCount*4 + 4 + 4

// InodesPerBlock is how many DiskInode_t slots fit in one block.
const InodesPerBlock = BlockSize / DiskInodeWireSize

func (di *DiskInode_t) marshal(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], di.Size)
	buf[4] = byte(di.Type)
	binary.LittleEndian.PutUint32(buf[5:9], di.Nlink)
	off := 9
	for _, d := range di.Direct {
		binary.LittleEndian.PutUint32(buf[off:off+4], d)
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], di.Indirect1)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], di.Indirect2)
}

func (di *DiskInode_t) unmarshal(buf []byte) {
	di.Size = binary.LittleEndian.Uint32(buf[0:4])
	di.Type = DiskInodeType_t(buf[4])
	di.Nlink = binary.LittleEndian.Uint32(buf[5:9])
	off := 9
	for i := range di.Direct {
		di.Direct[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	di.Indirect1 = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	di.Indirect2 = binary.LittleEndian.Uint32(buf[off : off+4])
}

// IsDir reports whether this inode is a directory.
func (di *DiskInode_t) IsDir() bool { return di.Type == TypeDir }

// Initialize resets an inode to an empty file or directory of kind t
// with a single hard link, grounded on spec.md §6's linkat/unlinkat
// pair needing a link count to decide when unlinking should free data.
func (di *DiskInode_t) Initialize(t DiskInodeType_t) {
	*di = DiskInode_t{Type: t, Nlink: 1}
}

func blocksNeeded(size uint32) int {
	return (int(size) + BlockSize - 1) / BlockSize
}

// BlocksNumNeeded reports how many blocks (data blocks plus the index
// blocks that address them) a file of newSize bytes requires beyond
// what it currently has, grounded on DiskInode::blocks_num_needed.
func (di *DiskInode_t) BlocksNumNeeded(newSize uint32) int {
	return totalBlocksWithIndex(blocksNeeded(newSize)) - totalBlocksWithIndex(blocksNeeded(di.Size))
}

// TotalDataBlocks reports the number of data blocks (not counting index
// blocks) a file of the given size occupies.
func TotalDataBlocks(size uint32) int { return blocksNeeded(size) }

// totalBlocksWithIndex additionally counts the index blocks (indirect1
// once the direct entries are used up, indirect2 plus its referenced
// indirect1 blocks) needed to
// address that many data blocks, grounded on DiskInode::total_blocks.
func totalBlocksWithIndex(dataBlocks int) int {
	total := dataBlocks
	if dataBlocks > directCount {
		total++ // indirect1 block itself
	}
	if dataBlocks > indirect1Bound {
		extra := dataBlocks - indirect1Bound
		total += 1 + (extra+entriesPerIndexBlock-1)/entriesPerIndexBlock
	}
	return total
}

// blockIDAt resolves the idx-th data block number of this inode,
// walking the index tree via the cache, grounded on
// DiskInode::get_block_id.
func (di *DiskInode_t) blockIDAt(idx int, cache *CacheManager_t) uint32 {
	switch {
	case idx < directCount:
		return di.Direct[idx]
	case idx < indirect1Bound:
		var id uint32
		cache.Get(int(di.Indirect1)).Read(0, BlockSize, func(buf []byte) {
			id = binary.LittleEndian.Uint32(buf[(idx-directCount)*4:])
		})
		return id
	default:
		idx -= indirect1Bound
		var level1 uint32
		cache.Get(int(di.Indirect2)).Read(0, BlockSize, func(buf []byte) {
			level1 = binary.LittleEndian.Uint32(buf[(idx/entriesPerIndexBlock)*4:])
		})
		var id uint32
		cache.Get(int(level1)).Read(0, BlockSize, func(buf []byte) {
			id = binary.LittleEndian.Uint32(buf[(idx%entriesPerIndexBlock)*4:])
		})
		return id
	}
}

// ReadAt copies up to len(buf) bytes starting at offset into buf,
// returning the number of bytes actually copied (0 past EOF). Grounded
// on DiskInode::read_at.
func (di *DiskInode_t) ReadAt(offset int, buf []byte, cache *CacheManager_t) int {
	if offset >= int(di.Size) {
		return 0
	}
	end := offset + len(buf)
	if end > int(di.Size) {
		end = int(di.Size)
	}
	read := 0
	for offset < end {
		blockIdx := offset / BlockSize
		blockOff := offset % BlockSize
		chunk := end - offset
		if chunk > BlockSize-blockOff {
			chunk = BlockSize - blockOff
		}
		id := di.blockIDAt(blockIdx, cache)
		cache.Get(int(id)).Read(blockOff, chunk, func(src []byte) {
			copy(buf[read:read+chunk], src)
		})
		read += chunk
		offset += chunk
	}
	return read
}

// WriteAt writes data at offset, which must already be covered by a
// prior IncreaseSize call, returning the number of bytes written.
// Grounded on DiskInode::write_at.
func (di *DiskInode_t) WriteAt(offset int, data []byte, cache *CacheManager_t) int {
	end := offset + len(data)
	if end > int(di.Size) {
		end = int(di.Size)
	}
	written := 0
	for offset < end {
		blockIdx := offset / BlockSize
		blockOff := offset % BlockSize
		chunk := end - offset
		if chunk > BlockSize-blockOff {
			chunk = BlockSize - blockOff
		}
		id := di.blockIDAt(blockIdx, cache)
		cache.Get(int(id)).Modify(blockOff, chunk, func(dst []byte) {
			copy(dst, data[written:written+chunk])
		})
		written += chunk
		offset += chunk
	}
	return written
}
