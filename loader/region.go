package loader

import (
	"errors"
	"unsafe"
)

// Region is an executable memory region holding one application's code.
type Region interface {
	// Base is the address of the first code byte
	Base() uintptr

	// Len is the number of code bytes
	Len() int

	// Bytes returns a read-only view of the mapped code
	Bytes() []byte
}

// Allocator maps code into executable regions.
type Allocator interface {
	// Map allocates a region of len(code) bytes, copies code into it and makes
	// it ready for execution.
	Map(code []byte) (Region, error)

	// Release frees a region returned by Map.
	Release(r Region) error
}

var errForeignRegion = errors.New("region was not allocated by this allocator")

// HeapAllocator places code in aligned Go heap memory. It is portable and
// suited to executors that interpret or inspect code rather than jump to it.
type HeapAllocator struct {
	alignment int
}

// NewHeapAllocator returns a HeapAllocator with the given alignment, which
// must be a power of two. Zero selects the default of 4.
func NewHeapAllocator(alignment int) *HeapAllocator {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		alignment = 4
	}
	return &HeapAllocator{alignment: alignment}
}

// Map implements Allocator.
func (a *HeapAllocator) Map(code []byte) (Region, error) {
	align := a.alignment
	if align == 0 {
		align = 4
	}

	buf := make([]byte, len(code)+align-1)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	off := int((uintptr(align) - addr%uintptr(align)) % uintptr(align))

	mem := buf[off : off+len(code) : off+len(code)]
	copy(mem, code)

	return &heapRegion{mem: mem, base: addr + uintptr(off)}, nil
}

// Release implements Allocator.
func (a *HeapAllocator) Release(r Region) error {
	hr, ok := r.(*heapRegion)
	if !ok {
		return errForeignRegion
	}
	if hr.mem == nil {
		return errors.New("region already released")
	}
	hr.mem = nil
	return nil
}

type heapRegion struct {
	mem  []byte
	base uintptr
}

func (r *heapRegion) Base() uintptr { return r.base }
func (r *heapRegion) Len() int      { return len(r.mem) }
func (r *heapRegion) Bytes() []byte { return r.mem }
