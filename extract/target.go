package extract

import (
	"debug/elf"
	"sort"
	"strings"
)

// FallbackSize is the size of the placeholder blob emitted when no compiled
// object is available.
const FallbackSize = 1024

// Target describes an instruction set the extractor can produce blobs for.
type Target struct {
	// Name is the canonical target name
	Name string

	// Machine is the ELF machine type objects for this target must carry
	Machine elf.Machine

	// Return is the encoding of "return to caller immediately"
	Return []byte
}

// Built-in targets.
var (
	// Xtensa covers ESP32, ESP32-S2 and ESP32-S3 (ret.n)
	Xtensa = Target{Name: "xtensa", Machine: elf.EM_XTENSA, Return: []byte{0x0D, 0xF0}}

	// RISCV32 covers ESP32-C3/C6/H2 (jalr x0, 0(x1))
	RISCV32 = Target{Name: "riscv32", Machine: elf.EM_RISCV, Return: []byte{0x67, 0x80, 0x00, 0x00}}

	// ARMThumb covers Cortex-M parts (bx lr)
	ARMThumb = Target{Name: "arm-thumb", Machine: elf.EM_ARM, Return: []byte{0x70, 0x47}}

	// AArch64 is the 64-bit ARM target (ret)
	AArch64 = Target{Name: "aarch64", Machine: elf.EM_AARCH64, Return: []byte{0xC0, 0x03, 0x5F, 0xD6}}
)

var targets = map[string]Target{
	"xtensa":    Xtensa,
	"esp32":     Xtensa,
	"esp32s2":   Xtensa,
	"esp32s3":   Xtensa,
	"riscv32":   RISCV32,
	"esp32c3":   RISCV32,
	"esp32c6":   RISCV32,
	"esp32h2":   RISCV32,
	"arm-thumb": ARMThumb,
	"cortex-m":  ARMThumb,
	"aarch64":   AArch64,
	"arm64":     AArch64,
}

// LookupTarget resolves a target by name or chip alias (case-insensitive).
// Unknown names fail with *UnsupportedTargetError.
func LookupTarget(name string) (Target, error) {
	t, ok := targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Target{}, &UnsupportedTargetError{Target: name}
	}
	return t, nil
}

// TargetNames returns every accepted target name and alias, sorted.
func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FallbackCode returns a FallbackSize blob that starts with the target's
// return sequence and is zero-filled afterwards.
func FallbackCode(t Target) ([]byte, error) {
	if len(t.Return) == 0 {
		return nil, &UnsupportedTargetError{Target: t.Name}
	}
	code := make([]byte, FallbackSize)
	copy(code, t.Return)
	return code, nil
}
