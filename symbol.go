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

import "debug/elf"

// SymbolKind is the coarse type of a symbol table entry.
type SymbolKind uint8

const (
	KindOther SymbolKind = iota
	KindFunction
	KindObject
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "FUNC"
	case KindObject:
		return "OBJECT"
	default:
		return "OTHER"
	}
}

// SymbolBinding is the linkage of a symbol table entry.
type SymbolBinding uint8

const (
	BindLocal SymbolBinding = iota
	BindGlobal
	BindWeak
)

func (b SymbolBinding) String() string {
	switch b {
	case BindGlobal:
		return "GLOBAL"
	case BindWeak:
		return "WEAK"
	default:
		return "LOCAL"
	}
}

// SymbolVisibility is the st_other visibility of a symbol.
type SymbolVisibility uint8

const (
	VisDefault   = SymbolVisibility(elf.STV_DEFAULT)
	VisInternal  = SymbolVisibility(elf.STV_INTERNAL)
	VisHidden    = SymbolVisibility(elf.STV_HIDDEN)
	VisProtected = SymbolVisibility(elf.STV_PROTECTED)
)

// RawSymbol is one entry of an ELF symbol table with its name resolved.
type RawSymbol struct {
	// Name is the symbol name as stored in the string table.
	Name string
	// Value is the symbol value, usually its virtual address.
	Value uint64
	// Size is the size of the object or function.
	Size uint64
	// Kind is derived from the type nibble of st_info.
	Kind SymbolKind
	// Binding is derived from the binding nibble of st_info.
	Binding SymbolBinding
	// Visibility is the low two bits of st_other.
	Visibility SymbolVisibility
	// SectionIndex is the index of the section the symbol is defined in.
	SectionIndex uint32
}

// Undefined reports whether the symbol is defined in another object.
func (s RawSymbol) Undefined() bool {
	return s.SectionIndex == uint32(elf.SHN_UNDEF)
}

// sttGNUIFunc is STT_GNU_IFUNC, which shares its value with STT_LOOS.
const sttGNUIFunc = elf.STT_LOOS

func symbolKind(typ elf.SymType) SymbolKind {
	switch typ {
	case elf.STT_FUNC, sttGNUIFunc:
		return KindFunction
	case elf.STT_OBJECT, elf.STT_TLS:
		return KindObject
	default:
		return KindOther
	}
}

func symbolBinding(bind elf.SymBind) SymbolBinding {
	switch bind {
	case elf.STB_LOCAL:
		return BindLocal
	case elf.STB_WEAK:
		return BindWeak
	}
	// STB_GLOBAL, STB_GNU_UNIQUE and the processor specific bindings.
	return BindGlobal
}
