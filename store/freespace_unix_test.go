//go:build linux || darwin || freebsd

package store

import "testing"

func TestFreeSpace(t *testing.T) {
	s := openTestStore(t)

	free, err := s.FreeSpace()
	if err != nil {
		t.Fatalf("FreeSpace() error = %v", err)
	}
	if free == 0 {
		t.Error("FreeSpace() = 0 on a writable temp dir")
	}
}
