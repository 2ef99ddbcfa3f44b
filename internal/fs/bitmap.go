package fs

// blockBits is the number of bits tracked by one bitmap block.
const blockBits = BlockSize * 8

// Bitmap_t manages a contiguous run of bitmap blocks, allocating and
// freeing individual bit positions (inode or data-block numbers).
// Grounded on easy-fs/bitmap.rs's Bitmap, with the u64-word scan
// replaced by a byte scan since Go has no convenient fixed-size
// [64]uint64 block type to overlay on a cache page.
type Bitmap_t struct {
	startBlock int
	blocks     int
	cache      *CacheManager_t
}

// NewBitmap returns a bitmap covering blocks [startBlock, startBlock+blocks).
func NewBitmap(cache *CacheManager_t, startBlock, blocks int) *Bitmap_t {
	return &Bitmap_t{startBlock: startBlock, blocks: blocks, cache: cache}
}

func decomposeBit(bit int) (blockPos, bytePos, bitPos int) {
	blockPos = bit / blockBits
	bit %= blockBits
	return blockPos, bit / 8, bit % 8
}

// Alloc finds and marks the first unset bit, returning its position, or
// -1 if the bitmap is exhausted.
func (b *Bitmap_t) Alloc() int {
	for blockPos := 0; blockPos < b.blocks; blockPos++ {
		bc := b.cache.Get(b.startBlock + blockPos)
		found := -1
		bc.Modify(0, BlockSize, func(buf []byte) {
			for bytePos, by := range buf {
				if by == 0xFF {
					continue
				}
				for bitPos := 0; bitPos < 8; bitPos++ {
					if by&(1<<bitPos) == 0 {
						buf[bytePos] = by | (1 << bitPos)
						found = blockPos*blockBits + bytePos*8 + bitPos
						return
					}
				}
			}
		})
		if found >= 0 {
			return found
		}
	}
	return -1
}

// Dealloc clears the bit at position bit. It panics if the bit was not
// set, mirroring the original's assert.
func (b *Bitmap_t) Dealloc(bit int) {
	blockPos, bytePos, bitPos := decomposeBit(bit)
	bc := b.cache.Get(b.startBlock + blockPos)
	bc.Modify(0, BlockSize, func(buf []byte) {
		if buf[bytePos]&(1<<bitPos) == 0 {
			panic("fs: dealloc of unallocated bit")
		}
		buf[bytePos] &^= 1 << bitPos
	})
}

// Maximum returns the total number of bits this bitmap can allocate.
func (b *Bitmap_t) Maximum() int { return b.blocks * blockBits }
