package kalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	a := NewArena(64)
	h1 := a.Alloc(16)
	h2 := a.Alloc(16)
	require.Equal(t, 32, a.Available())

	b := h1.Bytes(a)
	for i := range b {
		b[i] = 0xAB
	}
	a.Free(h1)
	require.Equal(t, 48, a.Available())

	h3 := a.Alloc(16)
	require.Equal(t, 32, a.Available())
	_ = h2
	_ = h3
}

func TestAllocExhaustionPanics(t *testing.T) {
	a := NewArena(8)
	a.Alloc(8)
	require.Panics(t, func() { a.Alloc(1) })
}

func TestFreeCoalesces(t *testing.T) {
	a := NewArena(32)
	h1 := a.Alloc(8)
	h2 := a.Alloc(8)
	h3 := a.Alloc(8)
	a.Free(h1)
	a.Free(h2)
	a.Free(h3)
	require.Equal(t, 32, a.Available())
	// a single 24-byte allocation should now succeed from the coalesced run
	a.Alloc(24)
}
