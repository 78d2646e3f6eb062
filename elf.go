// This file is part of cxxsym.
//
// Copyright (C) 2019-2026 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cxxsym

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	section32Size = 40
	section64Size = 64
	header32Size  = 52
	header64Size  = 64

	// Number of symbol records decoded per read.
	symbolChunk = 1024
)

// sectionHeader is the class independent form of an ELF section header.
type sectionHeader struct {
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlag
	Addr    uint64
	Offset  uint64
	Size    uint64
	Link    uint32
	Info    uint32
	Entsize uint64

	nameIdx uint32
}

type elfFile struct {
	reader   io.ReaderAt
	size     int64 // -1 when unknown
	class    elf.Class
	order    binary.ByteOrder
	typ      elf.Type
	machine  elf.Machine
	sections []sectionHeader
}

type sizer interface {
	Size() int64
}

type lener interface {
	Len() int
}

func readerSize(r io.ReaderAt) int64 {
	switch v := r.(type) {
	case sizer:
		return v.Size()
	case lener:
		return int64(v.Len())
	}
	return -1
}

func parseELF(r io.ReaderAt) (*elfFile, error) {
	e := &elfFile{reader: r, size: readerSize(r)}

	var ident [elf.EI_NIDENT]byte
	if err := e.readAt(ident[:], 0); err != nil {
		return nil, err
	}
	if !fileMagicMatch(ident[:], elfMagic) {
		return nil, formatError("bad magic number %x", ident[:4])
	}

	switch e.class = elf.Class(ident[elf.EI_CLASS]); e.class {
	case elf.ELFCLASS32, elf.ELFCLASS64:
	default:
		return nil, ErrUnsupportedClass
	}

	switch elf.Data(ident[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		e.order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		e.order = binary.BigEndian
	default:
		return nil, ErrUnsupportedEncoding
	}

	if v := elf.Version(ident[elf.EI_VERSION]); v != elf.EV_CURRENT {
		return nil, formatError("unknown ELF version %d", v)
	}

	var (
		shoff     uint64
		shentsize uint16
		shnum     uint16
		shstrndx  uint16
	)
	if e.class == elf.ELFCLASS64 {
		hdr := new(elf.Header64)
		if err := e.decode(0, header64Size, hdr); err != nil {
			return nil, err
		}
		e.typ, e.machine = elf.Type(hdr.Type), elf.Machine(hdr.Machine)
		shoff, shentsize, shnum, shstrndx = hdr.Shoff, hdr.Shentsize, hdr.Shnum, hdr.Shstrndx
	} else {
		hdr := new(elf.Header32)
		if err := e.decode(0, header32Size, hdr); err != nil {
			return nil, err
		}
		e.typ, e.machine = elf.Type(hdr.Type), elf.Machine(hdr.Machine)
		shoff, shentsize, shnum, shstrndx = uint64(hdr.Shoff), hdr.Shentsize, hdr.Shnum, hdr.Shstrndx
	}

	// No section header table, e.g. a sstripped object.
	if shoff == 0 {
		return e, nil
	}

	if shentsize != e.sectionEntsize() {
		return nil, formatError("invalid section header entry size %d", shentsize)
	}

	// Section 0 holds the real values when they overflow the header fields.
	first, err := e.readSection(shoff)
	if err != nil {
		return nil, err
	}
	count := uint64(shnum)
	if count == 0 {
		count = first.Size
	}
	strndx := uint64(shstrndx)
	if shstrndx == uint16(elf.SHN_XINDEX) {
		strndx = uint64(first.Link)
	}
	if count == 0 {
		return e, nil
	}
	if e.size >= 0 && (count > uint64(e.size)/uint64(shentsize) || shoff+count*uint64(shentsize) > uint64(e.size)) {
		return nil, formatError("section header table out of bounds")
	}
	if strndx >= count {
		return nil, formatError("invalid section name table index %d", strndx)
	}

	e.sections = make([]sectionHeader, count)
	e.sections[0] = first
	for i := uint64(1); i < count; i++ {
		if e.sections[i], err = e.readSection(shoff + i*uint64(shentsize)); err != nil {
			return nil, err
		}
	}

	names, err := e.sectionData(&e.sections[strndx])
	if err != nil {
		return nil, fmt.Errorf("error when reading the section name table: %w", err)
	}
	for i := range e.sections {
		if e.sections[i].Name, err = cstring(names, e.sections[i].nameIdx); err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
	}
	return e, nil
}

func (e *elfFile) sectionEntsize() uint16 {
	if e.class == elf.ELFCLASS64 {
		return section64Size
	}
	return section32Size
}

func (e *elfFile) symbolEntsize() uint64 {
	if e.class == elf.ELFCLASS64 {
		return elf.Sym64Size
	}
	return elf.Sym32Size
}

// readAt fills buf from off. A short read means the file is truncated.
func (e *elfFile) readAt(buf []byte, off uint64) error {
	if e.size >= 0 && (off > uint64(e.size) || uint64(len(buf)) > uint64(e.size)-off) {
		return ErrNotEnoughBytesRead
	}
	n, err := e.reader.ReadAt(buf, int64(off))
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrNotEnoughBytesRead
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

func (e *elfFile) decode(off uint64, size int, v any) error {
	buf := make([]byte, size)
	if err := e.readAt(buf, off); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), e.order, v)
}

func (e *elfFile) readSection(off uint64) (sectionHeader, error) {
	if e.class == elf.ELFCLASS64 {
		s := new(elf.Section64)
		if err := e.decode(off, section64Size, s); err != nil {
			return sectionHeader{}, err
		}
		return sectionHeader{
			Type:    elf.SectionType(s.Type),
			Flags:   elf.SectionFlag(s.Flags),
			Addr:    s.Addr,
			Offset:  s.Off,
			Size:    s.Size,
			Link:    s.Link,
			Info:    s.Info,
			Entsize: s.Entsize,
			nameIdx: s.Name,
		}, nil
	}
	s := new(elf.Section32)
	if err := e.decode(off, section32Size, s); err != nil {
		return sectionHeader{}, err
	}
	return sectionHeader{
		Type:    elf.SectionType(s.Type),
		Flags:   elf.SectionFlag(s.Flags),
		Addr:    uint64(s.Addr),
		Offset:  uint64(s.Off),
		Size:    uint64(s.Size),
		Link:    s.Link,
		Info:    s.Info,
		Entsize: uint64(s.Entsize),
		nameIdx: s.Name,
	}, nil
}

func (e *elfFile) section(name string) *sectionHeader {
	for i := range e.sections {
		if e.sections[i].Name == name {
			return &e.sections[i]
		}
	}
	return nil
}

func (e *elfFile) sectionData(s *sectionHeader) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, formatError("section %q has no data in the file", s.Name)
	}
	if e.size >= 0 && s.Size > uint64(e.size) {
		return nil, formatError("section %q size %d exceeds the file size", s.Name, s.Size)
	}
	data := make([]byte, s.Size)
	if err := e.readAt(data, s.Offset); err != nil {
		return nil, err
	}
	return data, nil
}

func (e *elfFile) sectionDataByName(name string) ([]byte, error) {
	s := e.section(name)
	if s == nil {
		return nil, ErrSectionDoesNotExist
	}
	return e.sectionData(s)
}

// symbolTable is a symbol table section with its resolved string table.
type symbolTable struct {
	header *sectionHeader
	strtab []byte
	// shndx holds extended section indices, nil if the table has none.
	shndx []uint32
}

func (e *elfFile) openSymbolTable(typ elf.SectionType) (*symbolTable, error) {
	idx := -1
	for i := range e.sections {
		if e.sections[i].Type == typ {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrSectionDoesNotExist
	}
	sec := &e.sections[idx]

	if sec.Entsize != e.symbolEntsize() {
		return nil, formatError("symbol table %q has entry size %d", sec.Name, sec.Entsize)
	}
	if sec.Size%sec.Entsize != 0 {
		return nil, formatError("symbol table %q size %d is not a multiple of the entry size", sec.Name, sec.Size)
	}
	if int(sec.Link) >= len(e.sections) || sec.Link == 0 {
		return nil, formatError("symbol table %q links to invalid section %d", sec.Name, sec.Link)
	}
	strsec := &e.sections[sec.Link]
	if strsec.Type != elf.SHT_STRTAB {
		return nil, formatError("symbol table %q links to %q which is not a string table", sec.Name, strsec.Name)
	}
	strtab, err := e.sectionData(strsec)
	if err != nil {
		return nil, fmt.Errorf("error when reading the string table: %w", err)
	}

	tab := &symbolTable{header: sec, strtab: strtab}
	for i := range e.sections {
		s := &e.sections[i]
		if s.Type != elf.SHT_SYMTAB_SHNDX || int(s.Link) != idx {
			continue
		}
		data, err := e.sectionData(s)
		if err != nil {
			return nil, fmt.Errorf("error when reading the extended section indices: %w", err)
		}
		tab.shndx = make([]uint32, len(data)/4)
		for j := range tab.shndx {
			tab.shndx[j] = e.order.Uint32(data[j*4:])
		}
		break
	}
	return tab, nil
}

// forEachSymbol decodes the table in fixed size chunks and calls fn for every
// named entry. Entry 0 is the reserved null symbol and is skipped.
func (e *elfFile) forEachSymbol(tab *symbolTable, fn func(RawSymbol) error) error {
	entsize := tab.header.Entsize
	total := tab.header.Size / entsize
	buf := make([]byte, symbolChunk*entsize)

	for start := uint64(0); start < total; start += symbolChunk {
		n := total - start
		if n > symbolChunk {
			n = symbolChunk
		}
		chunk := buf[:n*entsize]
		if err := e.readAt(chunk, tab.header.Offset+start*entsize); err != nil {
			return fmt.Errorf("error when reading symbols from %s: %w", tab.header.Name, err)
		}
		for i := uint64(0); i < n; i++ {
			idx := start + i
			if idx == 0 {
				continue
			}
			sym, nameIdx, shndx := e.decodeSymbol(chunk[i*entsize : (i+1)*entsize])
			if shndx == elf.SHN_XINDEX && idx < uint64(len(tab.shndx)) {
				sym.SectionIndex = tab.shndx[idx]
			}
			name, err := cstring(tab.strtab, nameIdx)
			if err != nil {
				return fmt.Errorf("symbol %d in %s: %w", idx, tab.header.Name, err)
			}
			if name == "" {
				continue
			}
			sym.Name = name
			if err := fn(sym); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *elfFile) decodeSymbol(b []byte) (RawSymbol, uint32, elf.SectionIndex) {
	var (
		sym          RawSymbol
		nameIdx      uint32
		info, other  uint8
		sectionIndex uint16
	)
	if e.class == elf.ELFCLASS64 {
		nameIdx = e.order.Uint32(b[0:4])
		info, other = b[4], b[5]
		sectionIndex = e.order.Uint16(b[6:8])
		sym.Value = e.order.Uint64(b[8:16])
		sym.Size = e.order.Uint64(b[16:24])
	} else {
		nameIdx = e.order.Uint32(b[0:4])
		sym.Value = uint64(e.order.Uint32(b[4:8]))
		sym.Size = uint64(e.order.Uint32(b[8:12]))
		info, other = b[12], b[13]
		sectionIndex = e.order.Uint16(b[14:16])
	}
	sym.Kind = symbolKind(elf.ST_TYPE(info))
	sym.Binding = symbolBinding(elf.ST_BIND(info))
	sym.Visibility = SymbolVisibility(elf.ST_VISIBILITY(other))
	sym.SectionIndex = uint32(sectionIndex)
	return sym, nameIdx, elf.SectionIndex(sectionIndex)
}

// cstring returns the NUL terminated string starting at off.
func cstring(tab []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(tab)) {
		if off == 0 {
			return "", nil
		}
		return "", formatError("string table index %d out of range", off)
	}
	end := bytes.IndexByte(tab[off:], 0)
	if end < 0 {
		return "", formatError("unterminated string at index %d", off)
	}
	return string(tab[off : int(off)+end]), nil
}
