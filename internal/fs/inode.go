package fs

// Inode_t is the in-memory handle to an on-disk inode: its block
// location plus the owning file system. All directories in this file
// system are flat (spec.md §6: "Inode indexing uses direct,
// single-indirect, and double-indirect block references... the exact
// index-tree shape is a file-system internal detail" -- there is no
// nested directory lookup to implement). Grounded on
// easy-fs/vfs.rs's Inode.
type Inode_t struct {
	blockID     int
	blockOffset int
	fs          *FileSystem_t
}

func newInode(blockID, blockOffset int, fs *FileSystem_t) *Inode_t {
	return &Inode_t{blockID: blockID, blockOffset: blockOffset, fs: fs}
}

func (in *Inode_t) readDisk(f func(di *DiskInode_t)) {
	in.fs.cache.Get(in.blockID).Read(in.blockOffset, DiskInodeWireSize, func(buf []byte) {
		var di DiskInode_t
		di.unmarshal(buf)
		f(&di)
	})
}

func (in *Inode_t) modifyDisk(f func(di *DiskInode_t)) {
	in.fs.cache.Get(in.blockID).Modify(in.blockOffset, DiskInodeWireSize, func(buf []byte) {
		var di DiskInode_t
		di.unmarshal(buf)
		f(&di)
		di.marshal(buf)
	})
}

func (in *Inode_t) findInodeID(name string, di *DiskInode_t) (uint32, bool) {
	count := int(di.Size) / DirEntrySize
	buf := make([]byte, DirEntrySize)
	for i := 0; i < count; i++ {
		di.ReadAt(i*DirEntrySize, buf, in.fs.cache)
		var de DirEntry_t
		de.unmarshal(buf)
		if de.Name == name {
			return de.InodeID, true
		}
	}
	return 0, false
}

// Find looks up name in this (necessarily directory) inode, returning
// its vfs handle. Grounded on Inode::find.
func (in *Inode_t) Find(name string) (*Inode_t, bool) {
	var found *Inode_t
	in.readDisk(func(di *DiskInode_t) {
		if id, ok := in.findInodeID(name, di); ok {
			blockID, blockOffset := in.fs.GetDiskInodePos(int(id))
			found = newInode(blockID, blockOffset, in.fs)
		}
	})
	return found, found != nil
}

func (in *Inode_t) increaseSize(newSize uint32, di *DiskInode_t) {
	if newSize < di.Size {
		return
	}
	need := di.BlocksNumNeeded(newSize)
	blocks := make([]uint32, need)
	for i := range blocks {
		blocks[i] = in.fs.AllocData()
	}
	di.IncreaseSize(newSize, blocks, in.fs.cache)
}

// Create makes a new empty file named name under this directory inode,
// returning nil if name already exists. Grounded on Inode::create.
func (in *Inode_t) Create(name string) (*Inode_t, bool) {
	exists := false
	in.readDisk(func(di *DiskInode_t) {
		_, exists = in.findInodeID(name, di)
	})
	if exists {
		return nil, false
	}

	newID := in.fs.AllocInode()
	newBlockID, newBlockOffset := in.fs.GetDiskInodePos(newID)
	in.fs.cache.Get(newBlockID).Modify(newBlockOffset, DiskInodeWireSize, func(buf []byte) {
		var di DiskInode_t
		di.Initialize(TypeFile)
		di.marshal(buf)
	})

	in.modifyDisk(func(di *DiskInode_t) {
		count := int(di.Size) / DirEntrySize
		newSize := uint32((count + 1) * DirEntrySize)
		in.increaseSize(newSize, di)
		de := DirEntry_t{Name: name, InodeID: uint32(newID)}
		buf := make([]byte, DirEntrySize)
		de.marshal(buf)
		di.WriteAt(count*DirEntrySize, buf, in.fs.cache)
	})
	in.fs.cache.SyncAll()
	return newInode(newBlockID, newBlockOffset, in.fs), true
}

// Link appends a directory entry named newName pointing at the same
// inode oldName already resolves to, and bumps that inode's link count.
// Grounded on spec.md §4.8's "link(old,new) appends a DirEntry(new,
// inode_of(old))".
func (in *Inode_t) Link(oldName, newName string) bool {
	var targetID uint32
	found := false
	in.readDisk(func(di *DiskInode_t) {
		targetID, found = in.findInodeID(oldName, di)
	})
	if !found {
		return false
	}
	if _, exists := in.Find(newName); exists {
		return false
	}

	in.modifyDisk(func(di *DiskInode_t) {
		count := int(di.Size) / DirEntrySize
		newSize := uint32((count + 1) * DirEntrySize)
		in.increaseSize(newSize, di)
		de := DirEntry_t{Name: newName, InodeID: targetID}
		buf := make([]byte, DirEntrySize)
		de.marshal(buf)
		di.WriteAt(count*DirEntrySize, buf, in.fs.cache)
	})

	targetBlockID, targetBlockOffset := in.fs.GetDiskInodePos(int(targetID))
	target := newInode(targetBlockID, targetBlockOffset, in.fs)
	target.modifyDisk(func(di *DiskInode_t) { di.Nlink++ })

	in.fs.cache.SyncAll()
	return true
}

// Unlink removes the directory entry named name by swapping the last
// entry into its slot and shrinking the directory by one entry --
// spec.md §4.8: "this is a move, not a stable erase." Decrements the
// target inode's link count, clearing its data once the count reaches
// zero. Reports whether name was found.
func (in *Inode_t) Unlink(name string) bool {
	var targetID uint32
	var slot, count int
	found := false
	in.readDisk(func(di *DiskInode_t) {
		count = int(di.Size) / DirEntrySize
		buf := make([]byte, DirEntrySize)
		for i := 0; i < count; i++ {
			di.ReadAt(i*DirEntrySize, buf, in.fs.cache)
			var de DirEntry_t
			de.unmarshal(buf)
			if de.Name == name {
				targetID = de.InodeID
				slot = i
				found = true
				break
			}
		}
	})
	if !found {
		return false
	}

	in.modifyDisk(func(di *DiskInode_t) {
		last := count - 1
		if slot != last {
			buf := make([]byte, DirEntrySize)
			di.ReadAt(last*DirEntrySize, buf, in.fs.cache)
			di.WriteAt(slot*DirEntrySize, buf, in.fs.cache)
		}
		di.Size = uint32(last * DirEntrySize)
	})

	targetBlockID, targetBlockOffset := in.fs.GetDiskInodePos(int(targetID))
	target := newInode(targetBlockID, targetBlockOffset, in.fs)
	var nlinkAfter uint32
	target.modifyDisk(func(di *DiskInode_t) {
		di.Nlink--
		nlinkAfter = di.Nlink
	})
	if nlinkAfter == 0 {
		target.Clear()
		in.fs.inodeBitmap.Dealloc(int(targetID))
	}

	in.fs.cache.SyncAll()
	return true
}

// Nlink reports this inode's current hard-link count.
func (in *Inode_t) Nlink() int {
	var n uint32
	in.readDisk(func(di *DiskInode_t) { n = di.Nlink })
	return int(n)
}

// Ls lists every entry name in this directory inode. Grounded on
// Inode::ls.
func (in *Inode_t) Ls() []string {
	var names []string
	in.readDisk(func(di *DiskInode_t) {
		count := int(di.Size) / DirEntrySize
		buf := make([]byte, DirEntrySize)
		for i := 0; i < count; i++ {
			di.ReadAt(i*DirEntrySize, buf, in.fs.cache)
			var de DirEntry_t
			de.unmarshal(buf)
			names = append(names, de.Name)
		}
	})
	return names
}

// ReadAt reads up to len(buf) bytes from this file starting at offset,
// returning the number of bytes read. Grounded on Inode::read_at.
func (in *Inode_t) ReadAt(offset int, buf []byte) int {
	n := 0
	in.readDisk(func(di *DiskInode_t) {
		n = di.ReadAt(offset, buf, in.fs.cache)
	})
	return n
}

// WriteAt writes data to this file at offset, growing it if necessary.
// Grounded on Inode::write_at.
func (in *Inode_t) WriteAt(offset int, data []byte) int {
	n := 0
	in.modifyDisk(func(di *DiskInode_t) {
		in.increaseSize(uint32(offset+len(data)), di)
		n = di.WriteAt(offset, data, in.fs.cache)
	})
	in.fs.cache.SyncAll()
	return n
}

// Clear truncates this file to zero length, releasing every data block
// it held. Grounded on Inode::clear.
func (in *Inode_t) Clear() {
	in.modifyDisk(func(di *DiskInode_t) {
		freed := di.ClearSize(in.fs.cache)
		for _, b := range freed {
			in.fs.DeallocData(b)
		}
	})
	in.fs.cache.SyncAll()
}

// Size reports the current byte length of this file.
func (in *Inode_t) Size() int {
	var size int
	in.readDisk(func(di *DiskInode_t) { size = int(di.Size) })
	return size
}

// IsDir reports whether this inode is a directory.
func (in *Inode_t) IsDir() bool {
	var dir bool
	in.readDisk(func(di *DiskInode_t) { dir = di.IsDir() })
	return dir
}
