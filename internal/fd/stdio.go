package fd

import (
	"os"

	"rvkernel/internal/defs"
)

// Stdin_t and Stdout_t are the console-backed File_i implementations
// installed at fd 0 and fd 1 of every freshly created process, grounded
// on original_source/os/src/fs/stdio.rs's Stdin/Stdout (readable xor
// writable, panicking -- here, erroring -- on the wrong direction).
// Host os.Stdin/os.Stdout stand in for the original's SBI console.
type Stdin_t struct{}
type Stdout_t struct{}

func (Stdin_t) Readable() bool { return true }
func (Stdin_t) Writable() bool { return false }

func (Stdin_t) Read(buf []byte) (int, defs.Err_t) {
	n, err := os.Stdin.Read(buf)
	if err != nil && n == 0 {
		return 0, -defs.EINVAL
	}
	return n, 0
}

func (Stdin_t) Write([]byte) (int, defs.Err_t) { return 0, -defs.EINVAL }
func (Stdin_t) Close() defs.Err_t              { return 0 }

func (Stdout_t) Readable() bool { return false }
func (Stdout_t) Writable() bool { return true }

func (Stdout_t) Read([]byte) (int, defs.Err_t) { return 0, -defs.EINVAL }

func (Stdout_t) Write(buf []byte) (int, defs.Err_t) {
	n, err := os.Stdout.Write(buf)
	if err != nil {
		return n, -defs.EINVAL
	}
	return n, 0
}

func (Stdout_t) Close() defs.Err_t { return 0 }

// InstallStdio places Stdin_t and Stdout_t at fd 0 and fd 1 of a fresh
// table, mirroring original_source's per-process fd_table initial
// value of `[Some(Stdin), Some(Stdout), Some(Stdout)]` (fd 2 aliases
// stdout here too, since this kernel draws no stdout/stderr
// distinction).
func (t *Table_t) InstallStdio() {
	t.Install(Stdin_t{})
	t.Install(Stdout_t{})
	t.Install(Stdout_t{})
}
