//go:build linux || darwin || freebsd

package loader

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapAllocator maps code into anonymous page-aligned memory and seals it
// read+execute once the copy is complete.
type MmapAllocator struct {
	pageSize int
}

// NewMmapAllocator returns an allocator backed by mmap.
func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{pageSize: unix.Getpagesize()}
}

// Map implements Allocator.
func (a *MmapAllocator) Map(code []byte) (Region, error) {
	if len(code) == 0 {
		return nil, errors.New("cannot map empty code")
	}

	size := (len(code) + a.pageSize - 1) &^ (a.pageSize - 1)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("seal region: %w", err)
	}

	return &mmapRegion{mem: mem, size: len(code)}, nil
}

// Release implements Allocator.
func (a *MmapAllocator) Release(r Region) error {
	mr, ok := r.(*mmapRegion)
	if !ok {
		return errForeignRegion
	}
	if mr.mem == nil {
		return errors.New("region already released")
	}
	err := unix.Munmap(mr.mem)
	mr.mem = nil
	return err
}

// DefaultAllocator returns the executable-memory allocator for this platform.
func DefaultAllocator() Allocator {
	return NewMmapAllocator()
}

type mmapRegion struct {
	mem  []byte
	size int
}

func (r *mmapRegion) Base() uintptr {
	if r.mem == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.mem)))
}

func (r *mmapRegion) Len() int { return r.size }

func (r *mmapRegion) Bytes() []byte {
	if r.mem == nil {
		return nil
	}
	return r.mem[:r.size:r.size]
}
