// Package util contains small generic helpers shared across the kernel,
// grounded on biscuit's own util package.
package util

import (
	"sync"
	"unsafe"
)

// Int is satisfied by all built-in integer types.
type Int interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Min returns the smaller of a and b.
func Min[T Int](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T Int](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Rounddown aligns v down to the nearest multiple of b.
func Rounddown[T Int](v, b T) T {
	return v - (v % b)
}

// Roundup aligns v up to the nearest multiple of b.
func Roundup[T Int](v, b T) T {
	return Rounddown(v+b-1, b)
}

// Readn reads n bytes from a starting at off and returns the value as an
// int. It panics if the requested region is out of bounds or the size is
// unsupported.
func Readn(a []uint8, n int, off int) int {
	if off < 0 || off+n > len(a) {
		panic("Readn out of bounds")
	}
	p := unsafe.Pointer(&a[off])
	var ret int
	switch n {
	case 8:
		ret = int(*(*int64)(p))
	case 4:
		ret = int(*(*uint32)(p))
	case 2:
		ret = int(*(*uint16)(p))
	case 1:
		ret = int(*(*uint8)(p))
	default:
		panic("unsupported size")
	}
	return ret
}

// Writen writes val using sz bytes into a starting at off. It panics if
// the destination is out of bounds or the size is unsupported.
func Writen(a []uint8, sz int, off int, val int) {
	if off < 0 || off+sz > len(a) {
		panic("Writen out of bounds")
	}
	p := unsafe.Pointer(&a[off])
	switch sz {
	case 8:
		*(*int64)(p) = int64(val)
	case 4:
		*(*uint32)(p) = uint32(val)
	case 2:
		*(*uint16)(p) = uint16(val)
	case 1:
		*(*uint8)(p) = uint8(val)
	default:
		panic("unsupported size")
	}
}

// SlotTable_t is a slice of optional values indexed by small integer
// handles, reusing the first vacated slot before extending -- the
// "find the first None, else push" allocation policy spec.md §4.6 and
// §4.4 both specify for primitive and file-descriptor tables.
// Grounded on original_source/os/src/syscall/sync.rs's mutex_list /
// semaphore_list / condvar_list slot-reuse loop, generalized here into
// one generic type so fd.Table_t and every primitive list share it.
type SlotTable_t[T any] struct {
	mu    sync.Mutex
	slots []*T
}

// Insert places value into the first empty slot, extending the table
// if none is free, and returns the slot index.
func (s *SlotTable_t[T]) Insert(value T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, slot := range s.slots {
		if slot == nil {
			s.slots[i] = &value
			return i
		}
	}
	s.slots = append(s.slots, &value)
	return len(s.slots) - 1
}

// Get returns the value at id and whether that slot is occupied.
func (s *SlotTable_t[T]) Get(id int) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if id < 0 || id >= len(s.slots) || s.slots[id] == nil {
		return zero, false
	}
	return *s.slots[id], true
}

// Remove empties the slot at id, making it available for reuse.
func (s *SlotTable_t[T]) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id >= 0 && id < len(s.slots) {
		s.slots[id] = nil
	}
}

// Len returns the table's current slot count (including empty slots).
func (s *SlotTable_t[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
