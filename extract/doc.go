// Package extract turns compiled application objects into flat code blobs.
//
// # Blob Contract
//
// A blob contains loadable code, read-only data and initialized data; symbols,
// relocations and debug information are stripped. The loader copies it to an arbitrary
// address and never relocates it, so application code must reach system
// functions through the service-call table passed to its entry point and must
// not hold absolute references to them. Undefined symbols in the object are a
// sign of direct calls: they are logged, or rejected with WithStrictIndirect.
//
// # Strategies
//
//  1. When WithObjcopy is set, the command runs first in an embedded POSIX
//     shell with $OBJ and $OUT set, so the same command line works on every host.
//  2. ExtractELF flattens the SHF_ALLOC PROGBITS sections in-process and
//     resolves the *_app_entry symbol. Its image is used when no tool is
//     configured or the tool fails.
//
// The entry offset never depends on which strategy produced the image: an
// objcopy image keeps the in-process offset when both images are identical or
// the entry is at offset 0, and fails with *EntryLayoutError otherwise.
//
// # Fallback
//
// If the object does not exist yet, Extract returns a FallbackSize blob that
// begins with the target's "return immediately" encoding:
//
//	xtensa     0D F0          ret.n
//	riscv32    67 80 00 00    ret
//	arm-thumb  70 47          bx lr
//	aarch64    C0 03 5F D6    ret
//
// Targets without a known encoding fail with *UnsupportedTargetError rather
// than emitting a guess.
package extract
