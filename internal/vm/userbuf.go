package vm

import (
	"rvkernel/internal/config"
	"rvkernel/internal/defs"
	"rvkernel/internal/mem"
)

// TranslatedByteBuffer copies byteLen bytes starting at user virtual
// address va in the address space identified by token into a single
// contiguous host-side []byte, stitching together however many pages
// the range spans. Every syscall argument pointer is dereferenced
// through this path rather than directly, per spec.md §4.2's
// no-raw-pointer-dereference rule. Grounded on biscuit's
// Userdmap8_inner (vm/as.go) and os/src/mm/page_table.rs's
// translated_byte_buffer.
func TranslatedByteBuffer(alloc *mem.Allocator_t, token uint64, va int, byteLen int) ([]byte, defs.Err_t) {
	ft := FromToken(alloc, token)
	out := make([]byte, 0, byteLen)
	for byteLen > 0 {
		vpn := VpnOf(va)
		pte, ok := ft.Translate(vpn)
		if !ok {
			return nil, -defs.EFAULT
		}
		off := va % config.PageSize
		pg := alloc.PageAt(pte.Ppn())
		n := config.PageSize - off
		if n > byteLen {
			n = byteLen
		}
		out = append(out, pg[off:off+n]...)
		va += n
		byteLen -= n
	}
	return out, 0
}

// TranslatedWriteBuffer copies data into the user address range starting
// at va within the address space identified by token.
func TranslatedWriteBuffer(alloc *mem.Allocator_t, token uint64, va int, data []byte) defs.Err_t {
	ft := FromToken(alloc, token)
	for len(data) > 0 {
		vpn := VpnOf(va)
		pte, ok := ft.Translate(vpn)
		if !ok {
			return -defs.EFAULT
		}
		off := va % config.PageSize
		pg := alloc.PageAt(pte.Ppn())
		n := copy(pg[off:], data)
		data = data[n:]
		va += n
	}
	return 0
}

// TranslatedString reads a NUL-terminated string starting at va,
// refusing to run past maxLen bytes (a crude stand-in for a real
// kernel's page-fault-driven unbounded scan, grounded on
// os/src/mm/page_table.rs's translated_str).
func TranslatedString(alloc *mem.Allocator_t, token uint64, va int, maxLen int) (string, defs.Err_t) {
	ft := FromToken(alloc, token)
	var out []byte
	for len(out) < maxLen {
		vpn := VpnOf(va)
		pte, ok := ft.Translate(vpn)
		if !ok {
			return "", -defs.EFAULT
		}
		off := va % config.PageSize
		pg := alloc.PageAt(pte.Ppn())
		b := pg[off]
		if b == 0 {
			return string(out), 0
		}
		out = append(out, b)
		va++
	}
	return "", -defs.ENAMETOOLONG
}

// TranslatedRef returns a pointer to a single value of fixed size sz at
// va, refusing any access that would straddle a page boundary --
// callers passing structs across the user/kernel boundary must keep
// them page-aligned-safe sized (<=4096 and naturally aligned), matching
// biscuit's UserType refusal to handle cross-page structs.
func TranslatedRef(alloc *mem.Allocator_t, token uint64, va int, sz int) ([]byte, defs.Err_t) {
	off := va % config.PageSize
	if off+sz > config.PageSize {
		return nil, -defs.EFAULT
	}
	ft := FromToken(alloc, token)
	pte, ok := ft.Translate(VpnOf(va))
	if !ok {
		return nil, -defs.EFAULT
	}
	pg := alloc.PageAt(pte.Ppn())
	return pg[off : off+sz], 0
}
