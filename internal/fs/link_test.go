package fs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFileStartsWithSingleLink(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	file, ok := root.Create("solo.txt")
	require.True(t, ok)
	require.Equal(t, 1, file.Nlink())
}

func TestLinkAddsEntryAndBumpsNlink(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	file, _ := root.Create("orig.txt")
	file.WriteAt(0, []byte("hello"))

	ok := root.Link("orig.txt", "alias.txt")
	require.True(t, ok)
	require.ElementsMatch(t, []string{"orig.txt", "alias.txt"}, root.Ls())

	alias, found := root.Find("alias.txt")
	require.True(t, found)
	buf := make([]byte, 5)
	alias.ReadAt(0, buf)
	require.Equal(t, "hello", string(buf))
	require.Equal(t, 2, alias.Nlink())

	again, _ := root.Find("orig.txt")
	require.Equal(t, 2, again.Nlink())
}

func TestLinkFailsOnMissingSourceOrExistingTarget(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	root.Create("a.txt")
	root.Create("b.txt")

	require.False(t, root.Link("missing.txt", "c.txt"))
	require.False(t, root.Link("a.txt", "b.txt"))
}

func TestUnlinkSwapsLastEntryIntoDeletedSlot(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	root.Create("first.txt")
	root.Create("second.txt")
	root.Create("third.txt")

	ok := root.Unlink("first.txt")
	require.True(t, ok)

	names := root.Ls()
	require.Len(t, names, 2)
	require.ElementsMatch(t, []string{"second.txt", "third.txt"}, names)
}

func TestUnlinkLastLinkClearsData(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	file, _ := root.Create("owned.bin")
	file.WriteAt(0, make([]byte, 2*BlockSize))

	ok := root.Unlink("owned.bin")
	require.True(t, ok)
	require.Empty(t, root.Ls())

	// the freed blocks and inode slot must be reusable afterward.
	other, ok := root.Create("owned.bin")
	require.True(t, ok)
	require.Equal(t, 0, other.Size())
	other.WriteAt(0, make([]byte, 2*BlockSize))
	require.Equal(t, 2*BlockSize, other.Size())
}

func TestUnlinkSharedLinkKeepsDataUntilLastLinkGoes(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	file, _ := root.Create("shared.txt")
	file.WriteAt(0, []byte("kept"))
	root.Link("shared.txt", "shared2.txt")

	require.True(t, root.Unlink("shared.txt"))

	still, found := root.Find("shared2.txt")
	require.True(t, found)
	require.Equal(t, 1, still.Nlink())
	buf := make([]byte, 4)
	still.ReadAt(0, buf)
	require.Equal(t, "kept", string(buf))
}

func TestUnlinkMissingNameFails(t *testing.T) {
	dev := NewMemDevice(1536)
	filesys := Format(dev, 1536)
	root := filesys.RootInode()

	require.False(t, root.Unlink("nope.txt"))
}
