package appk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Header is the fixed 128-byte record that prefixes every package.
type Header struct {
	// Name is the application name (at most NameSize-1 bytes are stored)
	Name string

	// Version is the application version string (at most VersionSize-1 bytes)
	Version string

	// Author is the application author (at most AuthorSize-1 bytes)
	Author string

	// Size is the length of the code blob in bytes
	Size uint32

	// EntryOffset is the byte offset into the code blob where execution begins
	EntryOffset uint32

	// Checksum is the integrity value of the code blob
	Checksum uint32

	// ChecksumAlgorithm records which algorithm produced Checksum
	ChecksumAlgorithm ChecksumAlgorithm
}

// EncodeHeader serializes h into a HeaderSize record.
//
// String fields longer than their field are silently truncated and the
// remainder zero-padded; metadata is cosmetic, so truncation is not an error.
//
// Example:
//
//	raw := appk.EncodeHeader(&appk.Header{
//	    Name:     "hello",
//	    Version:  "1.0.0",
//	    Author:   "Kraken Team",
//	    Size:     uint32(len(code)),
//	    Checksum: appk.CalculateChecksum(code),
//	})
func EncodeHeader(h *Header) []byte {
	buf := make([]byte, HeaderSize)

	binary.LittleEndian.PutUint32(buf[OffsetMagic:], Magic)
	putString(buf[OffsetName:OffsetName+NameSize], h.Name)
	putString(buf[OffsetVersion:OffsetVersion+VersionSize], h.Version)
	putString(buf[OffsetAuthor:OffsetAuthor+AuthorSize], h.Author)
	binary.LittleEndian.PutUint32(buf[OffsetSize:], h.Size)
	binary.LittleEndian.PutUint32(buf[OffsetEntry:], h.EntryOffset)
	binary.LittleEndian.PutUint32(buf[OffsetChecksum:], h.Checksum)
	buf[OffsetChecksumAlg] = byte(h.ChecksumAlgorithm)

	return buf
}

// DecodeHeader parses the first HeaderSize bytes of data.
//
// It fails with a FormatError if data is shorter than HeaderSize or the magic
// does not match. No other field is validated here; see Package.Verify.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, &FormatError{
			Field:  "header",
			Reason: fmt.Sprintf("truncated: got %d bytes, need %d", len(data), HeaderSize),
		}
	}

	magic := binary.LittleEndian.Uint32(data[OffsetMagic:])
	if magic != Magic {
		return nil, &FormatError{
			Field:  "magic",
			Reason: fmt.Sprintf("got 0x%08X, expected 0x%08X", magic, Magic),
		}
	}

	return &Header{
		Name:              getString(data[OffsetName : OffsetName+NameSize]),
		Version:           getString(data[OffsetVersion : OffsetVersion+VersionSize]),
		Author:            getString(data[OffsetAuthor : OffsetAuthor+AuthorSize]),
		Size:              binary.LittleEndian.Uint32(data[OffsetSize:]),
		EntryOffset:       binary.LittleEndian.Uint32(data[OffsetEntry:]),
		Checksum:          binary.LittleEndian.Uint32(data[OffsetChecksum:]),
		ChecksumAlgorithm: ChecksumAlgorithm(data[OffsetChecksumAlg]),
	}, nil
}

// Normalize returns a copy of h with string fields truncated the way
// EncodeHeader stores them. DecodeHeader(EncodeHeader(h)) equals h.Normalize().
func (h Header) Normalize() Header {
	h.Name = truncate(h.Name, NameSize-1)
	h.Version = truncate(h.Version, VersionSize-1)
	h.Author = truncate(h.Author, AuthorSize-1)
	return h
}

// Validate checks the header invariants that do not need the code blob.
func (h *Header) Validate() error {
	if !h.ChecksumAlgorithm.Known() {
		return &FormatError{
			Field:  "checksum algorithm",
			Reason: fmt.Sprintf("unsupported algorithm id 0x%02X", byte(h.ChecksumAlgorithm)),
		}
	}
	if h.Size == 0 {
		return &FormatError{Field: "size", Reason: "code blob is empty"}
	}
	if h.EntryOffset >= h.Size {
		return &FormatError{
			Field:  "entry offset",
			Reason: fmt.Sprintf("offset %d is outside code blob of %d bytes", h.EntryOffset, h.Size),
		}
	}
	if h.Name == "" {
		return &FormatError{Field: "name", Reason: "empty"}
	}
	return nil
}

// putString copies s into field, leaving at least one terminating zero byte.
func putString(field []byte, s string) {
	copy(field, truncate(s, len(field)-1))
}

// getString reads a NUL-terminated string from a fixed-width field.
func getString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}

// truncate cuts s at the first NUL and then to at most limit bytes.
func truncate(s string, limit int) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
