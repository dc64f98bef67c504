// Package appk implements the APPK application package format.
//
// An APPK package carries one position-independent application code blob that a
// resident app manager can verify, copy into an executable region and call
// without relinking the firmware.
//
// # Package Format
//
// A package is a fixed 128-byte header immediately followed by the code blob:
//
//	Offset  Size  Field
//	0       4     magic         0x4150504B, little-endian
//	4       32    name          NUL-terminated, truncated to 31 bytes
//	36      16    version       NUL-terminated, truncated to 15 bytes
//	52      32    author        NUL-terminated, truncated to 31 bytes
//	84      4     size          length of the code blob
//	88      4     entry_offset  byte offset of the entry function in the blob
//	92      4     checksum      CRC-32/IEEE of the code blob
//	96      32    reserved      byte 96 = checksum algorithm id (0), rest zero
//
// # Checksum
//
// The checksum algorithm is pinned to CRC-32/IEEE and recorded as id 0 in the
// first reserved byte. Build tools and loaders must both use CalculateChecksum;
// a package declaring any other algorithm id is rejected with a FormatError.
//
// # Usage
//
// Decode and verify a package from disk:
//
//	pkg, err := appk.Parse("hello.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := pkg.Verify(); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s v%s by %s (%d bytes)\n",
//	    pkg.Header.Name, pkg.Header.Version, pkg.Header.Author, pkg.Header.Size)
//
// # Error Handling
//
//   - FormatError: truncated input, bad magic, size mismatch, entry offset out of range
//   - IntegrityError: checksum mismatch
//
// Use IsFormatError and IsIntegrityError to classify wrapped errors.
package appk
