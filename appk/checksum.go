package appk

import (
	"fmt"
	"hash/crc32"
)

// ChecksumAlgorithm identifies the integrity algorithm recorded in the header.
// The id lives in the first reserved byte so that the current algorithm (id 0)
// keeps the reserved region zero-filled.
type ChecksumAlgorithm byte

const (
	// ChecksumCRC32 is CRC-32/IEEE (reflected polynomial 0xEDB88320, as zlib.crc32).
	// It is the only algorithm produced by the builder and accepted by the loader.
	ChecksumCRC32 ChecksumAlgorithm = 0x00
)

// String returns the algorithm name.
func (a ChecksumAlgorithm) String() string {
	switch a {
	case ChecksumCRC32:
		return "crc32-ieee"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(a))
	}
}

// Known reports whether a is an algorithm this library can compute.
func (a ChecksumAlgorithm) Known() bool {
	return a == ChecksumCRC32
}

// Sum computes the checksum of data with algorithm a.
func (a ChecksumAlgorithm) Sum(data []byte) (uint32, error) {
	switch a {
	case ChecksumCRC32:
		return crc32.ChecksumIEEE(data), nil
	default:
		return 0, &FormatError{
			Field:  "checksum algorithm",
			Reason: fmt.Sprintf("unsupported algorithm id 0x%02X", byte(a)),
		}
	}
}

// CalculateChecksum computes the package checksum of a code blob using the
// pinned algorithm. Build tooling and the verifier must both call this.
func CalculateChecksum(code []byte) uint32 {
	return crc32.ChecksumIEEE(code)
}
