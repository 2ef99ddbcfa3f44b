// Package vm implements SV39 page tables and per-process address spaces:
// a three-level table walker, logical segments (identity or framed), ELF
// loading, fork-copy, and the cross-address-space byte-copy primitives
// every syscall pointer argument must go through. Grounded on biscuit's
// vm package (Vm_t's Lock_pmap/Userdmap8_inner/Page_insert shape) but
// retargeted from biscuit's native 4-level x86 PML4 format to the
// 3-level, 9-bit-index SV39 format spec.md §3-§4.2 specifies.
package vm

import (
	"rvkernel/internal/config"
	"rvkernel/internal/klog"
	"rvkernel/internal/mem"
)

var log = klog.For("vm")

// Vpn_t is a virtual page number.
type Vpn_t uint64

// VpnOf truncates a virtual address to its page number.
func VpnOf(va int) Vpn_t { return Vpn_t(va >> config.PageShift) }

// VaOf expands a virtual page number back to the address of its first byte.
func (v Vpn_t) VaOf() int { return int(v) << config.PageShift }

// Indices splits a virtual page number into its three 9-bit SV39 level
// indices, level 2 (the root) first.
func (v Vpn_t) Indices() [3]uint64 {
	x := uint64(v)
	return [3]uint64{(x >> 18) & 0x1ff, (x >> 9) & 0x1ff, x & 0x1ff}
}

// Pte_t is one SV39 page-table entry: a 44-bit physical page number in
// bits 10-53 plus the flag bits V,R,W,X,U,G,A,D in bits 0-7.
type Pte_t uint64

// Flag bits of a page-table entry.
const (
	PteV Pte_t = 1 << 0 // valid
	PteR Pte_t = 1 << 1 // readable
	PteW Pte_t = 1 << 2 // writable
	PteX Pte_t = 1 << 3 // executable
	PteU Pte_t = 1 << 4 // user-accessible
	PteG Pte_t = 1 << 5 // global
	PteA Pte_t = 1 << 6 // accessed
	PteD Pte_t = 1 << 7 // dirty
)

const pteFlagMask = Pte_t(1<<10 - 1)

// MkPte builds a leaf PTE pointing at pfn with the given flags.
func MkPte(pfn mem.Pfn_t, flags Pte_t) Pte_t {
	return Pte_t(pfn)<<10 | (flags & pteFlagMask) | PteV
}

// Ppn returns the physical page number a valid PTE refers to.
func (p Pte_t) Ppn() mem.Pfn_t { return mem.Pfn_t(p >> 10) }

// Valid reports whether the V bit is set.
func (p Pte_t) Valid() bool { return p&PteV != 0 }

// Leaf reports whether the entry has any of R/W/X set -- an interior
// table-pointer PTE carries only V.
func (p Pte_t) Leaf() bool { return p&(PteR|PteW|PteX) != 0 }

// Perm describes the permission bits of a logical segment or PTE: some
// subset of read, write, execute, user.
type Perm_t uint8

const (
	PermR Perm_t = 1 << 0
	PermW Perm_t = 1 << 1
	PermX Perm_t = 1 << 2
	PermU Perm_t = 1 << 3
)

func (p Perm_t) pteFlags() Pte_t {
	var f Pte_t
	if p&PermR != 0 {
		f |= PteR
	}
	if p&PermW != 0 {
		f |= PteW
	}
	if p&PermX != 0 {
		f |= PteX
	}
	if p&PermU != 0 {
		f |= PteU
	}
	return f
}
