//go:build !(linux || darwin || freebsd)

package loader

// DefaultAllocator returns the executable-memory allocator for this platform.
// Without mmap support code is placed in aligned heap memory.
func DefaultAllocator() Allocator {
	return NewHeapAllocator(4)
}
