package appk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Package is a header-prefixed code blob. Packages are immutable once built;
// callers must not modify Code after construction.
type Package struct {
	// Header is the decoded package header
	Header Header

	// Code is the position-independent code blob
	Code []byte
}

// Bytes returns the on-disk representation: the encoded header followed by Code.
func (p *Package) Bytes() []byte {
	out := make([]byte, 0, HeaderSize+len(p.Code))
	out = append(out, EncodeHeader(&p.Header)...)
	out = append(out, p.Code...)
	return out
}

// WriteTo writes the package to w.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}

// Size returns the total package size in bytes.
func (p *Package) Size() int {
	return HeaderSize + len(p.Code)
}

// Verify checks every load-time invariant of the package:
//   - the checksum algorithm is known
//   - header.Size matches len(Code) and is non-zero
//   - the entry offset lies inside the code blob
//   - the name is not empty
//   - the checksum matches
//
// Format problems are reported as *FormatError, checksum mismatches as *IntegrityError.
func (p *Package) Verify() error {
	if err := p.Header.Validate(); err != nil {
		return err
	}

	if uint64(p.Header.Size) != uint64(len(p.Code)) {
		return &FormatError{
			Field:  "size",
			Reason: fmt.Sprintf("header declares %d bytes, code blob has %d", p.Header.Size, len(p.Code)),
		}
	}

	sum, err := p.Header.ChecksumAlgorithm.Sum(p.Code)
	if err != nil {
		return err
	}
	if sum != p.Header.Checksum {
		return &IntegrityError{Expected: p.Header.Checksum, Actual: sum}
	}

	return nil
}

// Parse reads a package file from disk.
// The package is decoded but not verified; call Verify before trusting it.
//
// Example:
//
//	pkg, err := appk.Parse("build/apps/hello.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := pkg.Verify(); err != nil {
//	    log.Fatal(err)
//	}
func Parse(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseBytes decodes a package held in memory.
func ParseBytes(data []byte) (*Package, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader decodes a package from r using DefaultMaxCodeSize as the limit.
// Exactly HeaderSize+header.Size bytes are consumed; anything after that is left
// unread, so a package can be read from the start of a larger flash partition.
func ParseReader(r io.Reader) (*Package, error) {
	return ParseReaderLimit(r, DefaultMaxCodeSize)
}

// ParseReaderLimit is ParseReader with an explicit code size limit.
func ParseReaderLimit(r io.Reader, maxCode uint32) (*Package, error) {
	raw := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, raw)
	if err != nil && !isShortRead(err) {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header, err := DecodeHeader(raw[:n])
	if err != nil {
		return nil, err
	}

	if header.Size > maxCode {
		return nil, &FormatError{
			Field:  "size",
			Reason: fmt.Sprintf("code blob of %d bytes exceeds limit of %d", header.Size, maxCode),
		}
	}

	code := make([]byte, header.Size)
	n, err = io.ReadFull(r, code)
	if err != nil {
		if isShortRead(err) {
			return nil, &FormatError{
				Field:  "code",
				Reason: fmt.Sprintf("truncated: got %d bytes, header declares %d", n, header.Size),
			}
		}
		return nil, fmt.Errorf("failed to read code: %w", err)
	}

	return &Package{Header: *header, Code: code}, nil
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
