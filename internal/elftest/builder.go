// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

// Package elftest builds small ELF files for tests.
package elftest

import (
	"debug/elf"
	"encoding/binary"
)

// TextSection is the index of the .text section symbols are defined in.
const TextSection = 1

// Symbol is a symbol table entry.
type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
	Type  elf.SymType
	Bind  elf.SymBind
	Other uint8
	// Section is the st_shndx value. Zero means undefined.
	Section uint16
}

// Func returns a defined global function symbol.
func Func(name string, value uint64) Symbol {
	return Symbol{Name: name, Value: value, Size: 16, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: TextSection}
}

// Section is an extra section added to the file.
type Section struct {
	Name string
	Type elf.SectionType
	Data []byte
}

// Builder describes the file to build. The zero value is a 64-bit little
// endian shared object for x86-64 without symbol tables.
type Builder struct {
	Class   elf.Class
	Data    elf.Data
	Machine elf.Machine
	Type    elf.Type
	// Symtab and Dynsym are written as .symtab and .dynsym when not nil.
	Symtab []Symbol
	Dynsym []Symbol
	Extra  []Section
	// ExtendedNumbering stores the section count and the section name
	// table index in section 0.
	ExtendedNumbering bool
}

type section struct {
	name    string
	typ     elf.SectionType
	data    []byte
	link    uint32
	info    uint32
	entsize uint64
	offset  uint64
}

// Bytes returns the encoded file.
func (b Builder) Bytes() []byte {
	class, data := b.Class, b.Data
	if class == elf.ELFCLASSNONE {
		class = elf.ELFCLASS64
	}
	if data == elf.ELFDATANONE {
		data = elf.ELFDATA2LSB
	}
	machine, typ := b.Machine, b.Type
	if machine == elf.EM_NONE {
		machine = elf.EM_X86_64
	}
	if typ == elf.ET_NONE {
		typ = elf.ET_DYN
	}
	var order binary.ByteOrder = binary.LittleEndian
	if data == elf.ELFDATA2MSB {
		order = binary.BigEndian
	}
	is64 := class == elf.ELFCLASS64

	sections := []*section{
		{},
		{name: ".text", typ: elf.SHT_PROGBITS, data: make([]byte, 64)},
	}
	addTable := func(name, strName string, typ elf.SectionType, syms []Symbol) {
		strtab := []byte{0}
		tab := encodeSymbol(nil, is64, order, Symbol{}, 0)
		for _, s := range syms {
			tab = encodeSymbol(tab, is64, order, s, uint32(len(strtab)))
			strtab = append(append(strtab, s.Name...), 0)
		}
		entsize := uint64(16)
		if is64 {
			entsize = 24
		}
		sections = append(sections,
			&section{name: name, typ: typ, data: tab, link: uint32(len(sections) + 1), info: 1, entsize: entsize},
			&section{name: strName, typ: elf.SHT_STRTAB, data: strtab},
		)
	}
	if b.Symtab != nil {
		addTable(".symtab", ".strtab", elf.SHT_SYMTAB, b.Symtab)
	}
	if b.Dynsym != nil {
		addTable(".dynsym", ".dynstr", elf.SHT_DYNSYM, b.Dynsym)
	}
	for _, s := range b.Extra {
		sections = append(sections, &section{name: s.Name, typ: s.Type, data: s.Data})
	}

	shstrtab := &section{name: ".shstrtab", typ: elf.SHT_STRTAB}
	sections = append(sections, shstrtab)
	names := []byte{0}
	nameIdx := make([]uint32, len(sections))
	for i, s := range sections[1:] {
		nameIdx[i+1] = uint32(len(names))
		names = append(append(names, s.name...), 0)
	}
	shstrtab.data = names

	ehsize, shentsize := 52, 40
	if is64 {
		ehsize, shentsize = 64, 64
	}
	out := make([]byte, ehsize)
	for _, s := range sections[1:] {
		for len(out)%8 != 0 {
			out = append(out, 0)
		}
		s.offset = uint64(len(out))
		out = append(out, s.data...)
	}
	for len(out)%8 != 0 {
		out = append(out, 0)
	}
	shoff := uint64(len(out))

	shnum, shstrndx := uint16(len(sections)), uint16(len(sections)-1)
	if b.ExtendedNumbering {
		sections[0].data = make([]byte, len(sections))
		sections[0].link = uint32(len(sections) - 1)
		shnum, shstrndx = 0, uint16(elf.SHN_XINDEX)
	}
	for i, s := range sections {
		size := uint64(len(s.data))
		if i == 0 && !b.ExtendedNumbering {
			size = 0
		}
		out = append(out, encodeSection(is64, order, nameIdx[i], s, size)...)
	}

	copy(out, []byte{0x7f, 'E', 'L', 'F', byte(class), byte(data), byte(elf.EV_CURRENT)})
	order.PutUint16(out[16:], uint16(typ))
	order.PutUint16(out[18:], uint16(machine))
	order.PutUint32(out[20:], uint32(elf.EV_CURRENT))
	if is64 {
		order.PutUint64(out[40:], shoff)
		order.PutUint16(out[52:], uint16(ehsize))
		order.PutUint16(out[58:], uint16(shentsize))
		order.PutUint16(out[60:], shnum)
		order.PutUint16(out[62:], shstrndx)
	} else {
		order.PutUint32(out[32:], uint32(shoff))
		order.PutUint16(out[40:], uint16(ehsize))
		order.PutUint16(out[46:], uint16(shentsize))
		order.PutUint16(out[48:], shnum)
		order.PutUint16(out[50:], shstrndx)
	}
	return out
}

func encodeSymbol(buf []byte, is64 bool, order binary.ByteOrder, s Symbol, name uint32) []byte {
	info := byte(s.Bind)<<4 | byte(s.Type)&0xf
	if is64 {
		b := make([]byte, 24)
		order.PutUint32(b[0:], name)
		b[4], b[5] = info, s.Other
		order.PutUint16(b[6:], s.Section)
		order.PutUint64(b[8:], s.Value)
		order.PutUint64(b[16:], s.Size)
		return append(buf, b...)
	}
	b := make([]byte, 16)
	order.PutUint32(b[0:], name)
	order.PutUint32(b[4:], uint32(s.Value))
	order.PutUint32(b[8:], uint32(s.Size))
	b[12], b[13] = info, s.Other
	order.PutUint16(b[14:], s.Section)
	return append(buf, b...)
}

func encodeSection(is64 bool, order binary.ByteOrder, name uint32, s *section, size uint64) []byte {
	if is64 {
		b := make([]byte, 64)
		order.PutUint32(b[0:], name)
		order.PutUint32(b[4:], uint32(s.typ))
		order.PutUint64(b[24:], s.offset)
		order.PutUint64(b[32:], size)
		order.PutUint32(b[40:], s.link)
		order.PutUint32(b[44:], s.info)
		order.PutUint64(b[48:], 1)
		order.PutUint64(b[56:], s.entsize)
		return b
	}
	b := make([]byte, 40)
	order.PutUint32(b[0:], name)
	order.PutUint32(b[4:], uint32(s.typ))
	order.PutUint32(b[16:], uint32(s.offset))
	order.PutUint32(b[20:], uint32(size))
	order.PutUint32(b[24:], s.link)
	order.PutUint32(b[28:], s.info)
	order.PutUint32(b[32:], 1)
	order.PutUint32(b[36:], uint32(s.entsize))
	return b
}

// BuildIDNote returns the content of a .note.gnu.build-id section.
func BuildIDNote(order binary.ByteOrder, id []byte) []byte {
	b := make([]byte, 16, 16+len(id))
	order.PutUint32(b[0:], 4)
	order.PutUint32(b[4:], uint32(len(id)))
	order.PutUint32(b[8:], 3)
	copy(b[12:], "GNU\x00")
	return append(b, id...)
}
