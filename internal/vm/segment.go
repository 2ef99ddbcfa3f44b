package vm

import (
	"fmt"

	"rvkernel/internal/config"
	"rvkernel/internal/mem"
)

// Strategy_t distinguishes how a logical segment is backed.
type Strategy_t int

const (
	// Identity segments map vpn == ppn and own no frames (kernel regions).
	Identity Strategy_t = iota
	// Framed segments back each vpn with a freshly allocated frame that
	// the segment owns.
	Framed
)

// Segment_t is a half-open virtual-page range within one address space,
// carrying a permission set and a backing strategy. Framed segments own
// every frame backing them; within one address space, framed segments
// are pairwise disjoint (spec.md §3).
type Segment_t struct {
	Start, End Vpn_t
	Perm       Perm_t
	Strategy   Strategy_t
	frames     map[Vpn_t]*mem.Frame_t
}

func (s *Segment_t) contains(vpn Vpn_t) bool { return vpn >= s.Start && vpn < s.End }

func overlap(a, b *Segment_t) bool {
	return a.Start < b.End && b.Start < a.End
}

// newFramedSegment allocates one frame per vpn in [start,end) and maps
// them into pt with perm, appending each owned frame's vpn entry.
func newFramedSegment(alloc *mem.Allocator_t, pt *PageTable_t, start, end Vpn_t, perm Perm_t) (*Segment_t, error) {
	seg := &Segment_t{Start: start, End: end, Perm: perm, Strategy: Framed, frames: make(map[Vpn_t]*mem.Frame_t)}
	for vpn := start; vpn < end; vpn++ {
		f, err := alloc.Alloc()
		if err != 0 {
			seg.unmapAndFree(pt)
			return nil, fmt.Errorf("vm: out of memory mapping segment")
		}
		if err := pt.Map(vpn, f.Pfn(), perm.pteFlags()); err != 0 {
			f.Drop()
			seg.unmapAndFree(pt)
			return nil, fmt.Errorf("vm: map failed for vpn %#x", vpn)
		}
		seg.frames[vpn] = f
	}
	return seg, nil
}

func (s *Segment_t) unmapAndFree(pt *PageTable_t) {
	for vpn, f := range s.frames {
		pt.Unmap(vpn)
		f.Drop()
		delete(s.frames, vpn)
	}
}

// copyInto duplicates this segment's contents into an identically
// shaped, freshly allocated segment of dst, implementing the eager
// whole-segment fork copy spec.md §4.3 requires (COW is explicitly
// optional and not implemented here).
func (s *Segment_t) copyInto(alloc *mem.Allocator_t, dstPT *PageTable_t) (*Segment_t, error) {
	dst, err := newFramedSegment(alloc, dstPT, s.Start, s.End, s.Perm)
	if err != nil {
		return nil, err
	}
	for vpn, f := range s.frames {
		*dst.frames[vpn].Page() = *f.Page()
	}
	return dst, nil
}

func pageVaSpan(start, end Vpn_t) (int, int) {
	return start.VaOf(), end.VaOf()
}

// roundSegment rounds a [startVa,endVa) byte range out to page boundaries.
func roundSegment(startVa, endVa int) (Vpn_t, Vpn_t) {
	lo := (startVa / config.PageSize) * config.PageSize
	hi := ((endVa + config.PageSize - 1) / config.PageSize) * config.PageSize
	return VpnOf(lo), VpnOf(hi)
}
