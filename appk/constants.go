package appk

// FormatVersion is the package format revision implemented by this library.
const FormatVersion = "1.0"

// Header layout constants. All multi-byte integers are little-endian.
const (
	// Magic identifies an APPK package ("KPPA" on disk, "APPK" as a uint32)
	Magic = 0x4150504B

	// HeaderSize is the fixed size of the package header in bytes
	HeaderSize = 128

	// NameSize is the size of the name field including its terminator
	NameSize = 32

	// VersionSize is the size of the version field including its terminator
	VersionSize = 16

	// AuthorSize is the size of the author field including its terminator
	AuthorSize = 32
)

// Field offsets within the header.
const (
	OffsetMagic       = 0
	OffsetName        = 4
	OffsetVersion     = 36
	OffsetAuthor      = 52
	OffsetSize        = 84
	OffsetEntry       = 88
	OffsetChecksum    = 92
	OffsetReserved    = 96
	OffsetChecksumAlg = OffsetReserved // first reserved byte carries the checksum algorithm id
)

// ReservedSize is the number of reserved bytes at the end of the header.
const ReservedSize = HeaderSize - OffsetReserved

// DefaultMaxCodeSize bounds the code blob accepted by ParseReader (1 MiB).
const DefaultMaxCodeSize = 1024 * 1024
