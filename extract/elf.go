package extract

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// EntrySuffix marks the application entry function in an object's symbol table.
const EntrySuffix = "_app_entry"

// Section describes one ELF section copied into a blob.
type Section struct {
	Name   string
	Offset uint32
	Size   uint32
}

// ExtractELF flattens the loadable sections of an ELF object into a blob.
//
// Every SHF_ALLOC section of type SHT_PROGBITS (.text, .literal, .rodata,
// .data and their -ffunction-sections variants) is appended in section-header
// order, padded to its alignment. NOBITS, debug, symbol and relocation sections
// are dropped. The entry offset comes from a *_app_entry function symbol, then
// from e_entry, and defaults to 0.
func ExtractELF(r io.ReaderAt, target Target) (*Blob, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Machine != target.Machine {
		return nil, &MachineMismatchError{
			Expected: target.Machine.String(),
			Actual:   f.Machine.String(),
		}
	}

	blob := &Blob{Method: MethodELF}
	offsets := make(map[int]uint32)

	for i, s := range f.Sections {
		// Writable .data stays in: the loader maps one flat image and has no
		// separate data segment to initialize it from.
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_ALLOC == 0 || s.Size == 0 {
			continue
		}

		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("failed to read section %s: %w", s.Name, err)
		}

		if align := s.Addralign; align > 1 {
			for uint64(len(blob.Code))%align != 0 {
				blob.Code = append(blob.Code, 0)
			}
		}

		offsets[i] = uint32(len(blob.Code))
		blob.Sections = append(blob.Sections, Section{
			Name:   s.Name,
			Offset: uint32(len(blob.Code)),
			Size:   uint32(len(data)),
		})
		blob.Code = append(blob.Code, data...)
	}

	if len(blob.Code) == 0 {
		return nil, fmt.Errorf("no loadable sections in object")
	}

	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}

	entryFound := false
	undefined := make(map[string]struct{})
	for _, sym := range syms {
		if sym.Section == elf.SHN_UNDEF {
			if sym.Name != "" {
				undefined[sym.Name] = struct{}{}
			}
			continue
		}

		if entryFound || elf.ST_TYPE(sym.Info) != elf.STT_FUNC || !strings.HasSuffix(sym.Name, EntrySuffix) {
			continue
		}

		idx := int(sym.Section)
		base, ok := offsets[idx]
		if !ok {
			continue
		}
		value := sym.Value
		if f.Machine == elf.EM_ARM {
			value &^= 1 // Thumb bit
		}
		blob.EntryOffset = base + uint32(value-f.Sections[idx].Addr)
		blob.EntrySymbol = sym.Name
		entryFound = true
	}

	if !entryFound && f.Entry != 0 {
		for idx, base := range offsets {
			s := f.Sections[idx]
			if f.Entry >= s.Addr && f.Entry < s.Addr+s.Size {
				blob.EntryOffset = base + uint32(f.Entry-s.Addr)
				entryFound = true
				break
			}
		}
	}

	for name := range undefined {
		blob.Undefined = append(blob.Undefined, name)
	}
	sort.Strings(blob.Undefined)

	return blob, nil
}
