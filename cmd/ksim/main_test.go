package main

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rvkernel/internal/fs"
)

func TestRunBootsInitprocAndPersistsGreeting(t *testing.T) {
	image := filepath.Join(t.TempDir(), "boot.img")
	require.NoError(t, run(image, 1536, 4096, true))

	dev, err := fs.OpenFileDevice(image)
	require.NoError(t, err)
	defer dev.Close()
	filesystem := fs.Open(dev)

	inode, ok := filesystem.RootInode().Find("greeting.txt")
	require.True(t, ok)
	buf := make([]byte, 16)
	require.Equal(t, 16, inode.ReadAt(0, buf))
	require.Equal(t, "hello from ksim\n", string(buf))
}

func TestStubELFHasOnePTLoadSegmentAtEntry(t *testing.T) {
	image := stubELF(0x1000)
	require.Equal(t, byte(0x7f), image[0])
	require.Equal(t, []byte("ELF"), image[1:4])
	require.Equal(t, uint64(0x1000), binary.LittleEndian.Uint64(image[24:32])) // e_entry
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(image[56:58]))      // e_phnum
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(image[64:68]))      // p_type == PT_LOAD
	require.Equal(t, uint64(0x1000), binary.LittleEndian.Uint64(image[80:88])) // p_vaddr
}
