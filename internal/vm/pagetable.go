package vm

import (
	"unsafe"

	"rvkernel/internal/config"
	"rvkernel/internal/defs"
	"rvkernel/internal/mem"
)

const ptesPerPage = config.PageSize / 8

// pageAsEntries views a physical page as an array of page-table entries.
func pageAsEntries(alloc *mem.Allocator_t, pfn mem.Pfn_t) *[ptesPerPage]Pte_t {
	pg := alloc.PageAt(pfn)
	return (*[ptesPerPage]Pte_t)(unsafe.Pointer(pg))
}

// PageTable_t is an address space's SV39 page table: a root frame plus
// every interior table frame allocated under it, grounded on biscuit's
// Pagemap_t (root + owned-frame list) shape.
type PageTable_t struct {
	alloc  *mem.Allocator_t
	root   *mem.Frame_t
	owned  []*mem.Frame_t // interior + root frames this table owns
}

// NewPageTable allocates a fresh, empty root table.
func NewPageTable(alloc *mem.Allocator_t) (*PageTable_t, defs.Err_t) {
	root, err := alloc.Alloc()
	if err != 0 {
		return nil, err
	}
	return &PageTable_t{alloc: alloc, root: root, owned: []*mem.Frame_t{root}}, 0
}

// RootPfn returns the physical page number of the root table.
func (pt *PageTable_t) RootPfn() mem.Pfn_t { return pt.root.Pfn() }

// walk locates the leaf PTE for vpn, allocating missing interior tables
// along the way when create is true. It returns nil if the leaf does not
// exist and create is false.
func (pt *PageTable_t) walk(vpn Vpn_t, create bool) (*Pte_t, defs.Err_t) {
	idx := vpn.Indices()
	pfn := pt.root.Pfn()
	for level := 0; level < 2; level++ {
		ents := pageAsEntries(pt.alloc, pfn)
		pte := &ents[idx[level]]
		if !pte.Valid() {
			if !create {
				return nil, 0
			}
			nf, err := pt.alloc.Alloc()
			if err != 0 {
				return nil, err
			}
			pt.owned = append(pt.owned, nf)
			*pte = MkPte(nf.Pfn(), 0) // interior node: V only
		} else if pte.Leaf() {
			panic("vm: interior walk hit a leaf entry")
		}
		pfn = pte.Ppn()
	}
	ents := pageAsEntries(pt.alloc, pfn)
	return &ents[idx[2]], 0
}

// Map installs a leaf mapping vpn -> ppn with the given flags. It is an
// internal invariant violation (fatal, per spec.md §7 kind 4) to map an
// already-valid leaf.
func (pt *PageTable_t) Map(vpn Vpn_t, ppn mem.Pfn_t, flags Pte_t) defs.Err_t {
	pte, err := pt.walk(vpn, true)
	if err != 0 {
		return err
	}
	if pte.Valid() {
		panic("vm: remapping an already-mapped vpn")
	}
	*pte = MkPte(ppn, flags)
	return 0
}

// Unmap clears the leaf mapping for vpn. It is a fatal invariant
// violation to unmap a vpn with no valid leaf.
func (pt *PageTable_t) Unmap(vpn Vpn_t) {
	pte, _ := pt.walk(vpn, false)
	if pte == nil || !pte.Valid() {
		panic("vm: unmapping an unmapped vpn")
	}
	*pte = 0
}

// Translate returns the leaf PTE for vpn and whether it is valid.
func (pt *PageTable_t) Translate(vpn Vpn_t) (Pte_t, bool) {
	pte, _ := pt.walk(vpn, false)
	if pte == nil || !pte.Valid() {
		return 0, false
	}
	return *pte, true
}

// Token encodes this table's root page number as an opaque handle
// suitable for crossing into a foreign address space (satp, in RISC-V
// terms). Mode bits are folded in for parity with the real SV39 satp
// format even though this simulator never writes to a CSR.
func (pt *PageTable_t) Token() uint64 {
	const modeSV39 = 8
	return uint64(modeSV39)<<60 | uint64(pt.root.Pfn())
}

// ForeignTable_t is a non-owning view constructed from a token: it can
// walk and translate, but must never Map/Unmap -- it owns no frames and
// a second address space's table must not be mutated through it.
type ForeignTable_t struct {
	alloc *mem.Allocator_t
	root  mem.Pfn_t
}

// FromToken builds a read-only view over the address space token
// identifies.
func FromToken(alloc *mem.Allocator_t, token uint64) *ForeignTable_t {
	return &ForeignTable_t{alloc: alloc, root: mem.Pfn_t(token & (1<<44 - 1))}
}

// Translate walks the foreign table and returns the leaf PTE if valid.
func (ft *ForeignTable_t) Translate(vpn Vpn_t) (Pte_t, bool) {
	idx := vpn.Indices()
	pfn := ft.root
	for level := 0; level < 2; level++ {
		ents := pageAsEntries(ft.alloc, pfn)
		pte := ents[idx[level]]
		if !pte.Valid() {
			return 0, false
		}
		pfn = pte.Ppn()
	}
	ents := pageAsEntries(ft.alloc, pfn)
	pte := ents[idx[2]]
	if !pte.Valid() {
		return 0, false
	}
	return pte, true
}
