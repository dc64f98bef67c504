package extract

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// testSection describes a section for buildELF32.
type testSection struct {
	name  string
	typ   elf.SectionType
	flags elf.SectionFlag
	addr  uint32
	align uint32
	data  []byte
	size  uint32 // NOBITS only
}

// testSymbol describes a symbol for buildELF32. section is an index into the
// final section table: user sections start at 1, 0 means undefined.
type testSymbol struct {
	name    string
	value   uint32
	section uint16
	typ     elf.SymType
	bind    elf.SymBind
}

// buildELF32 assembles a little-endian ELF32 file with the given sections,
// followed by .symtab, .strtab and .shstrtab.
func buildELF32(machine elf.Machine, typ elf.Type, entry uint32, secs []testSection, syms []testSymbol) []byte {
	le := binary.LittleEndian

	addName := func(buf *bytes.Buffer, name string) uint32 {
		off := uint32(buf.Len())
		buf.WriteString(name)
		buf.WriteByte(0)
		return off
	}

	var shstr, strtab, symtab bytes.Buffer
	shstr.WriteByte(0)
	strtab.WriteByte(0)
	symtab.Write(make([]byte, 16))

	for _, s := range syms {
		var rec [16]byte
		le.PutUint32(rec[0:], addName(&strtab, s.name))
		le.PutUint32(rec[4:], s.value)
		rec[12] = elf.ST_INFO(s.bind, s.typ)
		le.PutUint16(rec[14:], s.section)
		symtab.Write(rec[:])
	}

	type shdr struct {
		name, typ, flags, addr, off, size, link, info, align, entsize uint32
	}

	body := make([]byte, 52)
	place := func(data []byte, align uint32) uint32 {
		for align > 1 && uint32(len(body))%align != 0 {
			body = append(body, 0)
		}
		off := uint32(len(body))
		body = append(body, data...)
		return off
	}

	headers := []shdr{{}}
	for _, s := range secs {
		h := shdr{
			name:  addName(&shstr, s.name),
			typ:   uint32(s.typ),
			flags: uint32(s.flags),
			addr:  s.addr,
			align: s.align,
		}
		if s.typ == elf.SHT_NOBITS {
			h.off = uint32(len(body))
			h.size = s.size
		} else {
			h.off = place(s.data, s.align)
			h.size = uint32(len(s.data))
		}
		headers = append(headers, h)
	}

	strIdx := uint32(len(headers) + 1)
	headers = append(headers, shdr{
		name: addName(&shstr, ".symtab"), typ: uint32(elf.SHT_SYMTAB),
		off: place(symtab.Bytes(), 4), size: uint32(symtab.Len()),
		link: strIdx, info: 1, align: 4, entsize: 16,
	})
	headers = append(headers, shdr{
		name: addName(&shstr, ".strtab"), typ: uint32(elf.SHT_STRTAB),
		off: place(strtab.Bytes(), 1), size: uint32(strtab.Len()), align: 1,
	})
	shstrName := addName(&shstr, ".shstrtab")
	headers = append(headers, shdr{
		name: shstrName, typ: uint32(elf.SHT_STRTAB),
		off: place(shstr.Bytes(), 1), size: uint32(shstr.Len()), align: 1,
	})

	for len(body)%4 != 0 {
		body = append(body, 0)
	}
	shoff := uint32(len(body))
	for _, h := range headers {
		var rec [40]byte
		for i, v := range []uint32{h.name, h.typ, h.flags, h.addr, h.off, h.size, h.link, h.info, h.align, h.entsize} {
			le.PutUint32(rec[i*4:], v)
		}
		body = append(body, rec[:]...)
	}

	copy(body[0:4], elf.ELFMAG)
	body[4] = byte(elf.ELFCLASS32)
	body[5] = byte(elf.ELFDATA2LSB)
	body[6] = byte(elf.EV_CURRENT)
	le.PutUint16(body[16:], uint16(typ))
	le.PutUint16(body[18:], uint16(machine))
	le.PutUint32(body[20:], uint32(elf.EV_CURRENT))
	le.PutUint32(body[24:], entry)
	le.PutUint32(body[32:], shoff)
	le.PutUint16(body[40:], 52)
	le.PutUint16(body[46:], 40)
	le.PutUint16(body[48:], uint16(len(headers)))
	le.PutUint16(body[50:], uint16(len(headers)-1))

	return body
}

// helloObject returns an Xtensa relocatable object with .text, .rodata, .bss
// and .debug_info, a hello_app_entry function at .text+2 and one undefined
// reference to esp_log_write.
func helloObject(machine elf.Machine) []byte {
	return buildELF32(machine, elf.ET_REL, 0,
		[]testSection{
			{name: ".text", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, align: 4,
				data: []byte{0x36, 0x41, 0x00, 0x0D, 0xF0, 0x00}},
			{name: ".rodata", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC, align: 8,
				data: []byte("hi\x00")},
			{name: ".bss", typ: elf.SHT_NOBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE, align: 4, size: 64},
			{name: ".debug_info", typ: elf.SHT_PROGBITS, align: 1, data: []byte{1, 2, 3, 4, 5}},
		},
		[]testSymbol{
			{name: "hello_app_entry", value: 2, section: 1, typ: elf.STT_FUNC, bind: elf.STB_GLOBAL},
			{name: "esp_log_write", section: uint16(elf.SHN_UNDEF), typ: elf.STT_NOTYPE, bind: elf.STB_GLOBAL},
		},
	)
}
