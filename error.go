// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is returned when the file can't be opened or read.
	ErrIO = errors.New("i/o error")
	// ErrFormat is returned if the file is not a well-formed ELF object.
	ErrFormat = errors.New("invalid ELF format")
	// ErrUnsupportedClass is returned for an ELF class other than 32 or 64-bit.
	ErrUnsupportedClass = fmt.Errorf("%w: unsupported word size", ErrFormat)
	// ErrUnsupportedEncoding is returned for an ELF data encoding other than
	// little or big endian.
	ErrUnsupportedEncoding = fmt.Errorf("%w: unsupported byte order", ErrFormat)
	// ErrNotEnoughBytesRead is returned if read call returned less bytes than what is needed.
	ErrNotEnoughBytesRead = fmt.Errorf("%w: not enough bytes read", ErrFormat)
	// ErrSectionDoesNotExist is returned when accessing a section that does not exist.
	ErrSectionDoesNotExist = errors.New("section does not exist")
	// ErrNoSymbols is returned when the file has no symbol table or no
	// symbol survived classification.
	ErrNoSymbols = errors.New("no symbols found")
	// ErrNotMangled is returned by the demangler for names without the _Z prefix.
	ErrNotMangled = errors.New("not a mangled C++ name")
	// ErrMalformedMangling is returned when a mangled name can't be decoded.
	ErrMalformedMangling = errors.New("malformed mangled name")
	// ErrInvalidReport is returned when a JSON report can't be loaded.
	ErrInvalidReport = errors.New("invalid report")
)

// MangleError describes where and why a mangled name failed to decode.
type MangleError struct {
	// Name is the input that was being decoded.
	Name string
	// Offset is the byte position in Name where decoding stopped.
	Offset int
	// Reason is a short description of the failure.
	Reason string
}

func (e *MangleError) Error() string {
	return fmt.Sprintf("malformed mangled name %q at offset %d: %s", e.Name, e.Offset, e.Reason)
}

// Unwrap makes errors.Is(err, ErrMalformedMangling) true.
func (e *MangleError) Unwrap() error {
	return ErrMalformedMangling
}

func ioError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
}

func formatError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}
