package fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatCreatesEmptyRootDirectory(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()
	require.True(t, root.IsDir())
	require.Empty(t, root.Ls())
}

func TestCreateFindAndLsRoundTrip(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	_, ok := root.Create("foo.txt")
	require.True(t, ok)
	_, ok = root.Create("bar.txt")
	require.True(t, ok)

	names := root.Ls()
	require.ElementsMatch(t, []string{"foo.txt", "bar.txt"}, names)

	found, ok := root.Find("foo.txt")
	require.True(t, ok)
	require.False(t, found.IsDir())
	require.Equal(t, 0, found.Size())
}

func TestCreateDuplicateNameFails(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	_, ok := root.Create("dup.txt")
	require.True(t, ok)
	_, ok = root.Create("dup.txt")
	require.False(t, ok)
}

func TestInodeWriteAtGrowsFileAndPersists(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	file, _ := root.Create("data.bin")
	payload := []byte("the quick brown fox jumps over the lazy dog")
	n := file.WriteAt(0, payload)
	require.Equal(t, len(payload), n)
	require.Equal(t, len(payload), file.Size())

	buf := make([]byte, len(payload))
	n = file.ReadAt(0, buf)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestInodeClearReleasesDataBlocks(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	file, _ := root.Create("big.bin")
	file.WriteAt(0, make([]byte, 3*BlockSize))
	require.Equal(t, 3*BlockSize, file.Size())

	file.Clear()
	require.Equal(t, 0, file.Size())

	// the freed blocks must be reusable by a subsequent allocation.
	other, _ := root.Create("other.bin")
	other.WriteAt(0, make([]byte, BlockSize))
	require.Equal(t, BlockSize, other.Size())
}

func TestFormatThenOpenRoundTrip(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()
	root.Create("persisted.txt")

	reopened := Open(dev)
	root2 := reopened.RootInode()
	require.Contains(t, root2.Ls(), "persisted.txt")
}
