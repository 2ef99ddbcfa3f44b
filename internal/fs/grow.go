package fs

import "encoding/binary"

// IncreaseSize grows the inode to newSize, wiring newly allocated data
// block numbers (supplied in order by the caller, one per block the
// growth requires) into the direct/indirect1/indirect2 index tree as
// needed. Grounded on easy-fs's DiskInode::increase_size.
func (di *DiskInode_t) IncreaseSize(newSize uint32, newBlocks []uint32, cache *CacheManager_t) {
	current := blocksNeeded(di.Size)
	total := blocksNeeded(newSize)
	di.Size = newSize

	for current < total && current < directCount {
		di.Direct[current] = newBlocks[0]
		newBlocks = newBlocks[1:]
		current++
	}
	if current >= total {
		return
	}

	if current == directCount {
		di.Indirect1 = newBlocks[0]
		newBlocks = newBlocks[1:]
	}
	for current < total && current < indirect1Bound {
		cache.Get(int(di.Indirect1)).Modify(0, BlockSize, func(buf []byte) {
			binary.LittleEndian.PutUint32(buf[(current-directCount)*4:], newBlocks[0])
		})
		newBlocks = newBlocks[1:]
		current++
	}
	if current >= total {
		return
	}

	if current == indirect1Bound {
		di.Indirect2 = newBlocks[0]
		newBlocks = newBlocks[1:]
	}
	for current < total {
		idx := current - indirect1Bound
		level1Pos := idx / entriesPerIndexBlock
		level0Pos := idx % entriesPerIndexBlock

		var level1 uint32
		cache.Get(int(di.Indirect2)).Read(0, BlockSize, func(buf []byte) {
			level1 = binary.LittleEndian.Uint32(buf[level1Pos*4:])
		})
		if level0Pos == 0 {
			level1 = newBlocks[0]
			newBlocks = newBlocks[1:]
			cache.Get(int(di.Indirect2)).Modify(0, BlockSize, func(buf []byte) {
				binary.LittleEndian.PutUint32(buf[level1Pos*4:], level1)
			})
		}
		cache.Get(int(level1)).Modify(0, BlockSize, func(buf []byte) {
			binary.LittleEndian.PutUint32(buf[level0Pos*4:], newBlocks[0])
		})
		newBlocks = newBlocks[1:]
		current++
	}
}

// ClearSize frees every data and index block this inode references and
// zeros its size, returning the freed data-block numbers so the caller
// can return them to the data bitmap. Grounded on
// easy-fs's DiskInode::clear_size.
func (di *DiskInode_t) ClearSize(cache *CacheManager_t) []uint32 {
	var freed []uint32
	dataBlocks := blocksNeeded(di.Size)
	current := 0

	for current < dataBlocks && current < directCount {
		freed = append(freed, di.Direct[current])
		di.Direct[current] = 0
		current++
	}

	if dataBlocks > directCount {
		for i := 0; current < dataBlocks && current < indirect1Bound; i++ {
			var id uint32
			cache.Get(int(di.Indirect1)).Read(0, BlockSize, func(buf []byte) {
				id = binary.LittleEndian.Uint32(buf[i*4:])
			})
			freed = append(freed, id)
			current++
		}
		freed = append(freed, di.Indirect1)
		di.Indirect1 = 0
	}

	if dataBlocks > indirect1Bound {
		remaining := dataBlocks - indirect1Bound
		level1Count := (remaining + entriesPerIndexBlock - 1) / entriesPerIndexBlock
		for l1 := 0; l1 < level1Count; l1++ {
			var level1 uint32
			cache.Get(int(di.Indirect2)).Read(0, BlockSize, func(buf []byte) {
				level1 = binary.LittleEndian.Uint32(buf[l1*4:])
			})
			inThisBlock := entriesPerIndexBlock
			if l1 == level1Count-1 && remaining%entriesPerIndexBlock != 0 {
				inThisBlock = remaining % entriesPerIndexBlock
			}
			for l0 := 0; l0 < inThisBlock; l0++ {
				var id uint32
				cache.Get(int(level1)).Read(0, BlockSize, func(buf []byte) {
					id = binary.LittleEndian.Uint32(buf[l0*4:])
				})
				freed = append(freed, id)
			}
			freed = append(freed, level1)
		}
		freed = append(freed, di.Indirect2)
		di.Indirect2 = 0
	}

	di.Size = 0
	return freed
}
