// mkfs formats a flat disk image with the block-cache/bitmap-allocator
// file system internal/fs implements, then optionally seeds it with the
// contents of a host "skeleton" directory, the same host-side role
// biscuit's own cmd/mkfs plays for its disk images (biscuit's version
// additionally splices in a bootloader and kernel binary, which this
// kernel's hosted simulator has no analogue for -- booting is cmd/ksim's
// job instead of something baked into the image).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rvkernel/internal/fs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		imagePath string
		blocks    int
		skelDir   string
	)

	cmd := &cobra.Command{
		Use:   "mkfs",
		Short: "format a disk image for the simulated kernel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(imagePath, blocks, skelDir)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "ksim.img", "path to the disk image file to create")
	cmd.Flags().IntVar(&blocks, "blocks", 4096, "total blocks to format the image with")
	cmd.Flags().StringVar(&skelDir, "skel", "", "optional host directory of flat files to seed the image with")

	return cmd
}

func run(imagePath string, blocks int, skelDir string) error {
	dev, err := fs.OpenFileDevice(imagePath)
	if err != nil {
		return fmt.Errorf("mkfs: open image: %w", err)
	}
	defer dev.Close()

	if err := dev.Grow(blocks); err != nil {
		return fmt.Errorf("mkfs: grow image: %w", err)
	}

	filesystem := fs.Format(dev, blocks)
	fmt.Printf("formatted %s: %d blocks\n", imagePath, blocks)

	if skelDir != "" {
		if err := addFiles(filesystem, skelDir); err != nil {
			return err
		}
	}

	filesystem.Cache().SyncAll()
	return dev.Sync()
}

// addFiles copies every regular file directly inside skelDir into the
// image's flat root directory. Per spec.md's Non-goal of "directories
// beyond flat root", subdirectories in skelDir are skipped rather than
// recreated -- there is nowhere in the image to put them.
func addFiles(filesystem *fs.FileSystem_t, skelDir string) error {
	entries, err := os.ReadDir(skelDir)
	if err != nil {
		return fmt.Errorf("mkfs: read skel dir: %w", err)
	}

	root := filesystem.RootInode()
	for _, ent := range entries {
		if ent.IsDir() {
			fmt.Printf("skipping subdirectory %s: flat root only\n", ent.Name())
			continue
		}
		if err := copyFile(root, filepath.Join(skelDir, ent.Name()), ent.Name()); err != nil {
			return err
		}
		fmt.Printf("added %s\n", ent.Name())
	}
	return nil
}

// copyFile creates dstName in root and streams srcPath's contents into
// it one block at a time, mirroring biscuit's cmd/mkfs copydata (which
// chunks a host file through fs.BSIZE buffers rather than reading it
// whole).
func copyFile(root *fs.Inode_t, srcPath, dstName string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("mkfs: open %s: %w", srcPath, err)
	}
	defer src.Close()

	inode, ok := root.Create(dstName)
	if !ok {
		return fmt.Errorf("mkfs: create %s: name exists or directory full", dstName)
	}

	buf := make([]byte, fs.BlockSize)
	offset := 0
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			inode.WriteAt(offset, buf[:n])
			offset += n
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("mkfs: read %s: %w", srcPath, readErr)
		}
	}
	return nil
}
