// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/mmap"
)

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

// Option configures how a File is read.
type Option func(*options)

type options struct {
	miniDebugInfo bool
}

// WithMiniDebugInfo enables reading the xz compressed symbol table embedded in
// the .gnu_debugdata section when the file has no .symtab.
func WithMiniDebugInfo(enable bool) Option {
	return func(o *options) {
		o.miniDebugInfo = enable
	}
}

// Open maps a file into memory and returns a handler to it. The caller must
// call Close on the returned File.
func Open(filePath string, opts ...Option) (*File, error) {
	r, err := mmap.Open(filePath)
	if err != nil {
		return nil, ioError(filePath, err)
	}
	if r.Len() < elf.EI_NIDENT {
		r.Close()
		return nil, ErrNotEnoughBytesRead
	}
	f, err := NewFile(r, opts...)
	if err != nil {
		r.Close()
		return nil, err
	}
	f.Path = filePath
	return f, nil
}

// NewFile parses the ELF headers from r. If r implements io.Closer, Close
// on the File closes it.
func NewFile(r io.ReaderAt, opts ...Option) (*File, error) {
	f := &File{reader: r}
	for _, o := range opts {
		o(&f.opts)
	}

	e, err := parseELF(r)
	if err != nil {
		return nil, err
	}
	f.elf = e
	f.getMiniDebugInfo = sync.OnceValues(f.elf.openMiniDebugInfo)
	f.FileInfo = f.fileInfo()

	// A missing or broken build ID note doesn't prevent reading symbols.
	if id, err := f.elf.gnuBuildID(); err == nil {
		f.FileInfo.BuildID = id
	}
	return f, nil
}

// File is an opened ELF object.
type File struct {
	// Path is the file path, empty if created by NewFile.
	Path string
	// FileInfo holds information about the file.
	FileInfo *FileInfo

	reader           io.ReaderAt
	elf              *elfFile
	opts             options
	getMiniDebugInfo func() (*elfFile, error)
}

// Close releases the file handler.
func (f *File) Close() error {
	return tryClose(f.reader)
}

// ForEachSymbol streams the symbol table to fn. The full .symtab is used when
// present, otherwise the dynamic symbol table. Decoding stops at the first
// error returned by fn.
func (f *File) ForEachSymbol(fn func(RawSymbol) error) error {
	tab, err := f.elf.openSymbolTable(elf.SHT_SYMTAB)
	if err == nil {
		return f.elf.forEachSymbol(tab, fn)
	}
	if !errors.Is(err, ErrSectionDoesNotExist) {
		return err
	}

	found := false
	tab, err = f.elf.openSymbolTable(elf.SHT_DYNSYM)
	switch {
	case err == nil:
		found = true
		if err := f.elf.forEachSymbol(tab, fn); err != nil {
			return err
		}
	case !errors.Is(err, ErrSectionDoesNotExist):
		return err
	}

	if f.opts.miniDebugInfo {
		mini, err := f.getMiniDebugInfo()
		if err != nil && !errors.Is(err, ErrSectionDoesNotExist) {
			return fmt.Errorf("error when reading the mini debug info: %w", err)
		}
		if mini != nil {
			tab, err := mini.openSymbolTable(elf.SHT_SYMTAB)
			switch {
			case err == nil:
				found = true
				if err := mini.forEachSymbol(tab, fn); err != nil {
					return err
				}
			case !errors.Is(err, ErrSectionDoesNotExist):
				return fmt.Errorf("error when reading the mini debug info: %w", err)
			}
		}
	}

	if !found {
		return ErrNoSymbols
	}
	return nil
}

// Symbols returns all named entries of the symbol table.
func (f *File) Symbols() ([]RawSymbol, error) {
	var syms []RawSymbol
	err := f.ForEachSymbol(func(s RawSymbol) error {
		syms = append(syms, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return syms, nil
}

// ReadSymbols opens the file at path and returns its symbols.
func ReadSymbols(path string, opts ...Option) ([]RawSymbol, error) {
	f, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Symbols()
}

func (f *File) fileInfo() *FileInfo {
	var wordSize int
	switch f.elf.class {
	case elf.ELFCLASS32:
		wordSize = intSize32
	case elf.ELFCLASS64:
		wordSize = intSize64
	}

	var arch string
	switch f.elf.machine {
	case elf.EM_386:
		arch = Arch386
	case elf.EM_X86_64:
		arch = ArchAMD64
	case elf.EM_ARM:
		arch = ArchARM
	case elf.EM_AARCH64:
		arch = ArchARM64
	case elf.EM_MIPS:
		arch = ArchMIPS
	case elf.EM_PPC64:
		arch = ArchPPC64
	case elf.EM_RISCV:
		arch = ArchRISCV
	case elf.EM_S390:
		arch = ArchS390X
	}

	return &FileInfo{
		ByteOrder: f.elf.order,
		Machine:   f.elf.machine,
		Type:      f.elf.typ,
		WordSize:  wordSize,
		Arch:      arch,
	}
}

func fileMagicMatch(buf, magic []byte) bool {
	return bytes.HasPrefix(buf, magic)
}

// FileInfo holds information about the file.
type FileInfo struct {
	// Arch is the architecture the binary is compiled for.
	Arch string
	// Machine is the raw e_machine value.
	Machine elf.Machine
	// Type is the object file type (executable, shared object, ...).
	Type elf.Type
	// ByteOrder is the byte order.
	ByteOrder binary.ByteOrder
	// WordSize is the natural integer size used by the file.
	WordSize int
	// BuildID is the hex encoded GNU build ID, empty if the file has none.
	BuildID string
}

const (
	intSize32 = 4
	intSize64 = 8
)

const (
	ArchAMD64 = "amd64"
	ArchARM   = "arm"
	ArchARM64 = "arm64"
	Arch386   = "i386"
	ArchMIPS  = "mips"
	ArchPPC64 = "ppc64"
	ArchRISCV = "riscv"
	ArchS390X = "s390x"
)
