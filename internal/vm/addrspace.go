package vm

import (
	"bytes"
	"debug/elf"
	"fmt"
	"sort"
	"sync"

	"rvkernel/internal/config"
	"rvkernel/internal/defs"
	"rvkernel/internal/mem"
)

var (
	trampolineOnce  sync.Once
	trampolineFrame *mem.Frame_t
)

// trampoline returns the single physical frame that every address
// space in the system maps read-execute at config.Trampoline (the
// page-table entry is set directly, not through a Segment_t) -- there is exactly one trampoline page system-wide, grounded
// on os/src/mm/memory_set.rs's TRAMPOLINE handling.
func trampoline(alloc *mem.Allocator_t) *mem.Frame_t {
	trampolineOnce.Do(func() {
		f, err := alloc.Alloc()
		if err != 0 {
			panic("vm: cannot allocate the trampoline frame")
		}
		trampolineFrame = f
	})
	return trampolineFrame
}

// AddressSpace_t is one process's address space: a page table plus the
// ordered, disjoint logical segments mapped under it. Grounded on
// biscuit's Vm_t (vm/as.go) and os/src/mm/memory_set.rs's MemorySet,
// retargeted to SV39 and to spec.md §4.3's segment model.
type AddressSpace_t struct {
	mu    sync.Mutex
	alloc *mem.Allocator_t
	pt    *PageTable_t
	segs  []*Segment_t

	heap *Segment_t // the brk-managed data segment, nil until ELF load
	brk  int         // current program break, a byte virtual address
}

// NewAddressSpace allocates an empty address space with the trampoline
// already mapped.
func NewAddressSpace(alloc *mem.Allocator_t) (*AddressSpace_t, defs.Err_t) {
	pt, err := NewPageTable(alloc)
	if err != 0 {
		return nil, err
	}
	tf := trampoline(alloc)
	if e := pt.Map(VpnOf(config.Trampoline), tf.Pfn(), PteR|PteX); e != 0 {
		return nil, e
	}
	return &AddressSpace_t{alloc: alloc, pt: pt}, 0
}

// Token returns the satp-equivalent token for this address space's table.
func (as *AddressSpace_t) Token() uint64 { return as.pt.Token() }

// insert adds seg to the segment list, refusing overlap with an
// existing framed or identity segment (spec.md §4.3's pairwise-disjoint
// invariant).
func (as *AddressSpace_t) insert(seg *Segment_t) error {
	for _, other := range as.segs {
		if overlap(seg, other) {
			return fmt.Errorf("vm: segment [%#x,%#x) overlaps existing [%#x,%#x)",
				seg.Start, seg.End, other.Start, other.End)
		}
	}
	as.segs = append(as.segs, seg)
	sort.Slice(as.segs, func(i, j int) bool { return as.segs[i].Start < as.segs[j].Start })
	return nil
}

// InsertFramedArea allocates and maps a fresh framed segment covering
// [startVa,endVa), rounded out to page boundaries.
func (as *AddressSpace_t) InsertFramedArea(startVa, endVa int, perm Perm_t) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	start, end := roundSegment(startVa, endVa)
	seg, err := newFramedSegment(as.alloc, as.pt, start, end, perm)
	if err != nil {
		return err
	}
	if err := as.insert(seg); err != nil {
		seg.unmapAndFree(as.pt)
		return err
	}
	return nil
}

// RemoveAreaWithStartVpn unmaps and frees the framed segment beginning
// at vpn, per os/src/mm/memory_set.rs's remove_area_with_start_vpn
// (used to tear down a dynamically `mmap`-ed region or a thread's user
// stack).
func (as *AddressSpace_t) RemoveAreaWithStartVpn(vpn Vpn_t) bool {
	as.mu.Lock()
	defer as.mu.Unlock()
	for i, seg := range as.segs {
		if seg.Start == vpn {
			seg.unmapAndFree(as.pt)
			as.segs = append(as.segs[:i], as.segs[i+1:]...)
			return true
		}
	}
	return false
}

// RecycleDataPages frees every framed segment's frames (but keeps the
// page-table frames themselves), used when a task exits early and its
// parent has not yet reaped it: user data is released immediately while
// the TCB/PCB lingers as a zombie (spec.md §4.4).
func (as *AddressSpace_t) RecycleDataPages() {
	as.mu.Lock()
	defer as.mu.Unlock()
	for _, seg := range as.segs {
		if seg.Strategy == Framed {
			seg.unmapAndFree(as.pt)
		}
	}
	as.segs = as.segs[:0]
	as.heap = nil
}

// ChangeProgramBrk grows or shrinks the heap segment by deltaBytes,
// refusing to shrink below the segment's start. Returns the new break.
func (as *AddressSpace_t) ChangeProgramBrk(deltaBytes int) (int, defs.Err_t) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.heap == nil {
		return 0, -defs.EINVAL
	}
	newBrk := as.brk + deltaBytes
	if newBrk < as.heap.Start.VaOf() {
		return 0, -defs.EINVAL
	}
	oldVpn := VpnOf(roundUp(as.brk))
	newVpn := VpnOf(roundUp(newBrk))
	if deltaBytes > 0 {
		for vpn := oldVpn; vpn < newVpn; vpn++ {
			f, err := as.alloc.Alloc()
			if err != 0 {
				return 0, err
			}
			if e := as.pt.Map(vpn, f.Pfn(), as.heap.Perm.pteFlags()); e != 0 {
				f.Drop()
				return 0, e
			}
			as.heap.frames[vpn] = f
		}
		as.heap.End = newVpn
	} else if deltaBytes < 0 {
		for vpn := newVpn; vpn < oldVpn; vpn++ {
			if f, ok := as.heap.frames[vpn]; ok {
				as.pt.Unmap(vpn)
				f.Drop()
				delete(as.heap.frames, vpn)
			}
		}
		as.heap.End = newVpn
	}
	as.brk = newBrk
	return as.brk, 0
}

func roundUp(va int) int {
	return ((va + config.PageSize - 1) / config.PageSize) * config.PageSize
}

// InitHeap establishes the brk-managed data segment starting at startVa
// with no pages mapped yet (brk == startVa).
func (as *AddressSpace_t) InitHeap(startVa int, perm Perm_t) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	vpn := VpnOf(startVa)
	seg := &Segment_t{Start: vpn, End: vpn, Perm: perm, Strategy: Framed, frames: make(map[Vpn_t]*mem.Frame_t)}
	if err := as.insert(seg); err != nil {
		return err
	}
	as.heap = seg
	as.brk = startVa
	return nil
}

// LoadELF parses an ELF image, maps one framed segment per loadable
// program header at its specified virtual address and permissions, and
// returns the entry point and the byte address just past the highest
// mapped page (the initial heap start). Grounded on biscuit's use of
// debug/elf in kernel/chentry.go.
func (as *AddressSpace_t) LoadELF(image []byte) (entry int, heapStart int, err error) {
	f, e := elf.NewFile(bytes.NewReader(image))
	if e != nil {
		return 0, 0, fmt.Errorf("vm: malformed ELF image: %w", e)
	}
	var maxEnd int
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		perm := progPerm(prog.Flags)
		startVa := int(prog.Vaddr)
		endVa := startVa + int(prog.Memsz)
		if err := as.InsertFramedArea(startVa, endVa, perm|PermU); err != nil {
			return 0, 0, err
		}
		if err := as.writeAt(startVa, readSegmentData(image, prog)); err != nil {
			return 0, 0, err
		}
		if endVa > maxEnd {
			maxEnd = endVa
		}
	}
	return int(f.Entry), roundUp(maxEnd), nil
}

func progPerm(flags elf.ProgFlag) Perm_t {
	var p Perm_t
	if flags&elf.PF_R != 0 {
		p |= PermR
	}
	if flags&elf.PF_W != 0 {
		p |= PermW
	}
	if flags&elf.PF_X != 0 {
		p |= PermX
	}
	return p
}

func readSegmentData(image []byte, prog *elf.Prog) []byte {
	buf := make([]byte, prog.Filesz)
	r := prog.Open()
	_, _ = r.Read(buf)
	return buf
}

// writeAt copies data into the framed pages starting at va, which must
// already be mapped (InsertFramedArea having just run).
func (as *AddressSpace_t) writeAt(va int, data []byte) error {
	off := va % config.PageSize
	vpn := VpnOf(va - off)
	for len(data) > 0 {
		as.mu.Lock()
		seg := as.segmentContaining(vpn)
		if seg == nil {
			as.mu.Unlock()
			return fmt.Errorf("vm: writeAt: vpn %#x not mapped", vpn)
		}
		f := seg.frames[vpn]
		as.mu.Unlock()
		n := copy(f.Page()[off:], data)
		data = data[n:]
		off = 0
		vpn++
	}
	return nil
}

func (as *AddressSpace_t) segmentContaining(vpn Vpn_t) *Segment_t {
	for _, seg := range as.segs {
		if seg.contains(vpn) {
			return seg
		}
	}
	return nil
}

// Fork produces a child address space with the trampoline shared and
// every other segment eagerly byte-copied into freshly allocated
// frames, per spec.md §4.3's explicit "eager copy, COW optional" rule.
func (as *AddressSpace_t) Fork() (*AddressSpace_t, defs.Err_t) {
	as.mu.Lock()
	defer as.mu.Unlock()

	child, err := NewAddressSpace(as.alloc)
	if err != 0 {
		return nil, err
	}
	for _, seg := range as.segs {
		cseg, cerr := seg.copyInto(as.alloc, child.pt)
		if cerr != nil {
			return nil, -defs.ENOMEM
		}
		child.segs = append(child.segs, cseg)
		if seg == as.heap {
			child.heap = cseg
		}
	}
	child.brk = as.brk
	return child, 0
}

// MapTrapContext maps a dedicated trap-context page for tid, returning
// its virtual address.
func (as *AddressSpace_t) MapTrapContext(tid int) (int, defs.Err_t) {
	as.mu.Lock()
	defer as.mu.Unlock()
	va := config.TrapContextVA(tid)
	vpn := VpnOf(va)
	f, err := as.alloc.Alloc()
	if err != 0 {
		return 0, err
	}
	if e := as.pt.Map(vpn, f.Pfn(), PteR|PteW); e != 0 {
		f.Drop()
		return 0, e
	}
	as.segs = append(as.segs, &Segment_t{Start: vpn, End: vpn + 1, Perm: PermR | PermW, Strategy: Framed,
		frames: map[Vpn_t]*mem.Frame_t{vpn: f}})
	return va, 0
}
