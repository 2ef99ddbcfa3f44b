package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rvkernel/internal/fs"
)

func TestRunFormatsImageAndSeedsFlatFiles(t *testing.T) {
	dir := t.TempDir()
	skel := filepath.Join(dir, "skel")
	require.NoError(t, os.Mkdir(skel, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(skel, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(skel, "b.txt"), []byte("beta"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(skel, "sub"), 0755)) // skipped: flat root only

	image := filepath.Join(dir, "out.img")
	require.NoError(t, run(image, 1536, skel))

	dev, err := fs.OpenFileDevice(image)
	require.NoError(t, err)
	defer dev.Close()
	filesystem := fs.Open(dev)

	require.ElementsMatch(t, []string{"a.txt", "b.txt"}, filesystem.RootInode().Ls())

	inode, ok := filesystem.RootInode().Find("a.txt")
	require.True(t, ok)
	buf := make([]byte, 5)
	require.Equal(t, 5, inode.ReadAt(0, buf))
	require.Equal(t, "alpha", string(buf))
}

func TestRunWithoutSkelJustFormats(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "empty.img")
	require.NoError(t, run(image, 1536, ""))

	dev, err := fs.OpenFileDevice(image)
	require.NoError(t, err)
	defer dev.Close()
	filesystem := fs.Open(dev)
	require.Empty(t, filesystem.RootInode().Ls())
}
