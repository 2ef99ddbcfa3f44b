package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rvkernel/internal/mem"
)

func newTestAlloc() *mem.Allocator_t {
	return mem.NewAllocator(0, 4096)
}

func TestMapTranslateRoundTrip(t *testing.T) {
	alloc := newTestAlloc()
	pt, err := NewPageTable(alloc)
	require.Zero(t, err)

	f, err := alloc.Alloc()
	require.Zero(t, err)

	vpn := VpnOf(0x1000)
	require.Zero(t, pt.Map(vpn, f.Pfn(), PteR|PteW))

	pte, ok := pt.Translate(vpn)
	require.True(t, ok)
	require.Equal(t, f.Pfn(), pte.Ppn())
	require.True(t, pte.Valid())
}

func TestTranslateUnmappedMiss(t *testing.T) {
	alloc := newTestAlloc()
	pt, err := NewPageTable(alloc)
	require.Zero(t, err)

	_, ok := pt.Translate(VpnOf(0x77000))
	require.False(t, ok)
}

func TestRemapPanics(t *testing.T) {
	alloc := newTestAlloc()
	pt, _ := NewPageTable(alloc)
	f, _ := alloc.Alloc()
	vpn := VpnOf(0x2000)
	require.Zero(t, pt.Map(vpn, f.Pfn(), PteR))

	require.Panics(t, func() {
		f2, _ := alloc.Alloc()
		pt.Map(vpn, f2.Pfn(), PteR)
	})
}

func TestUnmapUnmappedPanics(t *testing.T) {
	alloc := newTestAlloc()
	pt, _ := NewPageTable(alloc)
	require.Panics(t, func() { pt.Unmap(VpnOf(0x3000)) })
}

func TestUnmapThenRemapSucceeds(t *testing.T) {
	alloc := newTestAlloc()
	pt, _ := NewPageTable(alloc)
	f1, _ := alloc.Alloc()
	vpn := VpnOf(0x4000)
	require.Zero(t, pt.Map(vpn, f1.Pfn(), PteR|PteW))
	pt.Unmap(vpn)
	_, ok := pt.Translate(vpn)
	require.False(t, ok)

	f2, _ := alloc.Alloc()
	require.Zero(t, pt.Map(vpn, f2.Pfn(), PteR))
	pte, ok := pt.Translate(vpn)
	require.True(t, ok)
	require.Equal(t, f2.Pfn(), pte.Ppn())
}

func TestForeignTableReadOnlyTranslate(t *testing.T) {
	alloc := newTestAlloc()
	pt, _ := NewPageTable(alloc)
	f, _ := alloc.Alloc()
	vpn := VpnOf(0x5000)
	require.Zero(t, pt.Map(vpn, f.Pfn(), PteR|PteW|PteU))

	ft := FromToken(alloc, pt.Token())
	pte, ok := ft.Translate(vpn)
	require.True(t, ok)
	require.Equal(t, f.Pfn(), pte.Ppn())

	_, ok = ft.Translate(VpnOf(0x6000))
	require.False(t, ok)
}

func TestMultiplePagesAcrossLevel1Boundary(t *testing.T) {
	alloc := newTestAlloc()
	pt, _ := NewPageTable(alloc)

	// step by 2MiB (one level-1 PTE's worth of level-0 span) so successive
	// vpns land under different second-level tables.
	for i := 0; i < 4; i++ {
		vpn := VpnOf(i * 0x200000)
		f, err := alloc.Alloc()
		require.Zero(t, err)
		require.Zero(t, pt.Map(vpn, f.Pfn(), PteR))
	}
	for i := 0; i < 4; i++ {
		vpn := VpnOf(i * 0x200000)
		_, ok := pt.Translate(vpn)
		require.True(t, ok)
	}
}
