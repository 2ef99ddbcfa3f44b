package vm

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/require"

	"rvkernel/internal/config"
)

const trampolineTestVA = config.Trampoline

func TestTrampolineSharedAcrossSpaces(t *testing.T) {
	alloc := newTestAlloc()
	a, err := NewAddressSpace(alloc)
	require.Zero(t, err)
	b, err := NewAddressSpace(alloc)
	require.Zero(t, err)

	pa, okA := a.pt.Translate(VpnOf(trampolineTestVA))
	pb, okB := b.pt.Translate(VpnOf(trampolineTestVA))
	require.True(t, okA)
	require.True(t, okB)
	require.Equal(t, pa.Ppn(), pb.Ppn())
}

func TestInsertFramedAreaRejectsOverlap(t *testing.T) {
	alloc := newTestAlloc()
	as, _ := NewAddressSpace(alloc)
	require.NoError(t, as.InsertFramedArea(0x1000, 0x3000, PermR|PermW))
	require.Error(t, as.InsertFramedArea(0x2000, 0x4000, PermR|PermW))
}

func TestChangeProgramBrkGrowAndShrink(t *testing.T) {
	alloc := newTestAlloc()
	as, _ := NewAddressSpace(alloc)
	require.NoError(t, as.InitHeap(0x10000, PermR|PermW|PermU))

	brk, err := as.ChangeProgramBrk(100)
	require.Zero(t, err)
	require.Equal(t, 0x10000+100, brk)

	_, ok := as.pt.Translate(VpnOf(0x10000))
	require.True(t, ok)

	brk, err = as.ChangeProgramBrk(-100)
	require.Zero(t, err)
	require.Equal(t, 0x10000, brk)
	_, ok = as.pt.Translate(VpnOf(0x10000))
	require.False(t, ok)
}

func TestChangeProgramBrkRefusesShrinkingPastStart(t *testing.T) {
	alloc := newTestAlloc()
	as, _ := NewAddressSpace(alloc)
	require.NoError(t, as.InitHeap(0x10000, PermR|PermW|PermU))
	_, err := as.ChangeProgramBrk(-1)
	require.NotZero(t, err)
}

func TestRecycleDataPagesFreesFramesKeepsTable(t *testing.T) {
	alloc := newTestAlloc()
	as, _ := NewAddressSpace(alloc)
	require.NoError(t, as.InsertFramedArea(0x1000, 0x2000, PermR|PermW))

	as.RecycleDataPages()
	_, ok := as.pt.Translate(VpnOf(0x1000))
	require.False(t, ok)

	pte, ok := as.pt.Translate(VpnOf(trampolineTestVA))
	require.True(t, ok)
	_ = pte
}

func TestForkCopiesSegmentsIndependently(t *testing.T) {
	alloc := newTestAlloc()
	parent, _ := NewAddressSpace(alloc)
	require.NoError(t, parent.InsertFramedArea(0x1000, 0x2000, PermR|PermW))

	seg := parent.segmentContaining(VpnOf(0x1000))
	seg.frames[VpnOf(0x1000)].Page()[0] = 0x42

	child, err := parent.Fork()
	require.Zero(t, err)

	cpte, ok := child.pt.Translate(VpnOf(0x1000))
	require.True(t, ok)
	ppte, _ := parent.pt.Translate(VpnOf(0x1000))
	require.NotEqual(t, ppte.Ppn(), cpte.Ppn(), "fork must copy into a distinct frame")

	cpg := alloc.PageAt(cpte.Ppn())
	require.Equal(t, byte(0x42), cpg[0])

	// mutate child, parent must be unaffected
	cpg[0] = 0x99
	ppg := alloc.PageAt(ppte.Ppn())
	require.Equal(t, byte(0x42), ppg[0])
}

// minimalELF builds the smallest valid ELF64 image with a single
// PT_LOAD segment so LoadELF can be exercised without a real toolchain
// artifact on disk.
func minimalELF(t *testing.T, vaddr uint64, data []byte) []byte {
	t.Helper()
	const ehsize = 64
	const phsize = 56
	buf := make([]byte, ehsize+phsize+len(data))

	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT
	le := littleEndian{}
	le.PutUint16(buf[16:], uint16(elf.ET_EXEC))
	le.PutUint16(buf[18:], uint16(elf.EM_RISCV))
	le.PutUint32(buf[20:], 1)
	le.PutUint64(buf[24:], vaddr) // e_entry
	le.PutUint64(buf[32:], ehsize) // e_phoff
	le.PutUint16(buf[52:], ehsize)
	le.PutUint16(buf[54:], phsize)
	le.PutUint16(buf[56:], 1) // e_phnum

	ph := buf[ehsize:]
	le.PutUint32(ph[0:], uint32(elf.PT_LOAD))
	le.PutUint32(ph[4:], uint32(elf.PF_R|elf.PF_X))
	le.PutUint64(ph[8:], ehsize+phsize)     // p_offset
	le.PutUint64(ph[16:], vaddr)            // p_vaddr
	le.PutUint64(ph[24:], vaddr)            // p_paddr
	le.PutUint64(ph[32:], uint64(len(data))) // p_filesz
	le.PutUint64(ph[40:], uint64(len(data))) // p_memsz

	copy(buf[ehsize+phsize:], data)
	return buf
}

type littleEndian struct{}

func (littleEndian) PutUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
func (littleEndian) PutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func (littleEndian) PutUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestLoadELFMapsAndCopiesData(t *testing.T) {
	alloc := newTestAlloc()
	as, _ := NewAddressSpace(alloc)

	const vaddr = 0x20000
	payload := []byte{1, 2, 3, 4, 5}
	image := minimalELF(t, vaddr, payload)

	entry, heapStart, err := as.LoadELF(image)
	require.NoError(t, err)
	require.Equal(t, vaddr, entry)
	require.Greater(t, heapStart, vaddr)

	pte, ok := as.pt.Translate(VpnOf(vaddr))
	require.True(t, ok)
	pg := alloc.PageAt(pte.Ppn())
	require.Equal(t, payload, pg[:len(payload)])
}
