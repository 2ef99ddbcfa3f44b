package trap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppContextPinsFields(t *testing.T) {
	c := NewAppContext(0x1000, 0x7ffff000, 0xdead, 0xbeef, 0xc0ffee)
	require.Equal(t, uint64(0x1000), c.Sepc)
	require.Equal(t, uint64(0x7ffff000), c.X[2])
	require.Equal(t, uint64(0xdead), c.KernelSatp)
	require.Equal(t, uint64(0xbeef), c.KernelSp)
	require.Equal(t, uint64(0xc0ffee), c.TrapHandler)
	require.Zero(t, c.Sstatus&sstatusSPP)
}

func TestSetSPOnlyTouchesX2(t *testing.T) {
	var c Context_t
	c.X[3] = 0x55
	c.SetSP(0x9000)
	require.Equal(t, uint64(0x9000), c.X[2])
	require.Equal(t, uint64(0x55), c.X[3])
}
