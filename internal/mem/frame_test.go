package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocExhaustion(t *testing.T) {
	a := NewAllocator(0, 2)
	f1, err := a.Alloc()
	require.Zero(t, err)
	f2, err := a.Alloc()
	require.Zero(t, err)
	_, err = a.Alloc()
	require.NotZero(t, err, "allocator should report ENOMEM once exhausted")

	f1.Drop()
	f3, err := a.Alloc()
	require.Zero(t, err)
	require.Equal(t, f1.Pfn(), f3.Pfn(), "freed frame should be recycled")
	f2.Drop()
	f3.Drop()
}

func TestAllocHandleCapacityInvariant(t *testing.T) {
	const n = 16
	a := NewAllocator(100, n)
	var frames []*Frame_t
	for i := 0; i < n; i++ {
		f, err := a.Alloc()
		require.Zero(t, err)
		frames = append(frames, f)
	}
	inuse, free, cap := a.Stats()
	require.Equal(t, n, inuse)
	require.Equal(t, 0, free)
	require.Equal(t, n, cap)
	require.Equal(t, cap, inuse+free)

	for _, f := range frames[:n/2] {
		f.Drop()
	}
	inuse, free, cap = a.Stats()
	require.Equal(t, cap, inuse+free, "live handles + recycled == capacity")

	for _, f := range frames[n/2:] {
		f.Drop()
	}
}

func TestDoubleFreePanics(t *testing.T) {
	a := NewAllocator(0, 4)
	f, _ := a.Alloc()
	f.Drop()
	require.Panics(t, func() { a.dealloc(f.Pfn()) })
}

func TestAllocZeroesPage(t *testing.T) {
	a := NewAllocator(0, 2)
	f, err := a.Alloc()
	require.Zero(t, err)
	pg := f.Page()
	pg[0] = 0xff
	f.Drop()

	f2, err := a.Alloc()
	require.Zero(t, err)
	require.Equal(t, f.Pfn(), f2.Pfn())
	require.Equal(t, byte(0), f2.Page()[0], "a newly allocated frame must be zeroed")
}
