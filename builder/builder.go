package builder

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/moffa90/go-appk/appk"
	"github.com/moffa90/go-appk/manifest"
)

// PackageExt is the file extension of built packages.
const PackageExt = ".bin"

// Stats is the byte-size accounting of one built package.
type Stats struct {
	HeaderSize int
	CodeSize   int
	TotalSize  int
	Checksum   uint32
}

// Result is a built package plus its accounting.
type Result struct {
	Package *appk.Package
	Stats   Stats
}

// Build assembles a package from metadata and a code blob.
//
// The checksum is computed with appk.CalculateChecksum, the same function the
// loader verifies with. Building twice from identical inputs yields
// byte-identical output. The code slice is copied.
//
// Example:
//
//	res, err := builder.Build(manifest.Defaults("hello"), code, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("hello.bin", res.Package.Bytes(), 0o644)
func Build(meta manifest.Metadata, code []byte, entryOffset uint32) (*Result, error) {
	if len(code) == 0 {
		return nil, &appk.FormatError{Field: "code", Reason: "code blob is empty"}
	}
	if uint64(len(code)) > math.MaxUint32 {
		return nil, &appk.FormatError{
			Field:  "size",
			Reason: fmt.Sprintf("code blob of %d bytes does not fit the size field", len(code)),
		}
	}
	if uint64(entryOffset) >= uint64(len(code)) {
		return nil, &appk.FormatError{
			Field:  "entry offset",
			Reason: fmt.Sprintf("offset %d is outside code blob of %d bytes", entryOffset, len(code)),
		}
	}

	blob := make([]byte, len(code))
	copy(blob, code)

	pkg := &appk.Package{
		Header: appk.Header{
			Name:              meta.Name,
			Version:           meta.Version,
			Author:            meta.Author,
			Size:              uint32(len(blob)),
			EntryOffset:       entryOffset,
			Checksum:          appk.CalculateChecksum(blob),
			ChecksumAlgorithm: appk.ChecksumCRC32,
		}.Normalize(),
		Code: blob,
	}
	if err := pkg.Header.Validate(); err != nil {
		return nil, err
	}

	return &Result{
		Package: pkg,
		Stats: Stats{
			HeaderSize: appk.HeaderSize,
			CodeSize:   len(blob),
			TotalSize:  pkg.Size(),
			Checksum:   pkg.Header.Checksum,
		},
	}, nil
}

// WritePackage writes pkg to <dir>/<name>.bin, creating dir if needed.
// The file is written to a temporary name and renamed into place so a reader
// never observes a partial package.
func WritePackage(dir, name string, pkg *appk.Package) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, name+PackageExt)

	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := pkg.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write package: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write package: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("failed to set package permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move package into place: %w", err)
	}

	return path, nil
}
