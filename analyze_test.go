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
	"context"
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goretk/cxxsym/internal/elftest"
)

func TestAnalyze(t *testing.T) {
	assert := assert.New(t)
	path := writeTempFile(t, "libtest.so", elftest.Builder{Symtab: testSymbols}.Bytes())

	r, err := (&Analyzer{}).Analyze(path)
	require.NoError(t, err)
	assert.Equal("libtest.so", r.LibraryName)
	assert.Equal(1, r.ClassCount)
	assert.Equal(2, r.MethodCount)
	assert.Equal([]string{
		"MyNamespace::MyClass::doSomething(int, bool)",
		"MyNamespace::MyClass::~MyClass()",
	}, r.Signatures())
	require.NotNil(t, r.FileInfo)
	assert.Equal(ArchAMD64, r.FileInfo.Arch)
	assert.Equal(1, r.Stats.Undefined)
	assert.Equal(1, r.Stats.Objects)
	assert.Equal(1, r.Stats.FreeFunctions)
}

func TestAnalyzeGlobalOnly(t *testing.T) {
	path := writeTempFile(t, "libtest.so", elftest.Builder{Symtab: append([]elftest.Symbol{
		{Name: "_ZN3Foo6hiddenEv", Value: 0x10, Type: elf.STT_FUNC, Bind: elf.STB_LOCAL, Section: elftest.TextSection},
	}, testSymbols...)}.Bytes())

	r, err := (&Analyzer{GlobalOnly: true}).Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, 2, r.MethodCount)

	r, err = (&Analyzer{}).Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, 3, r.MethodCount)
}

func TestAnalyzeNoMethods(t *testing.T) {
	path := writeTempFile(t, "libc.so", elftest.Builder{Dynsym: []elftest.Symbol{elftest.Func("printf", 0x10)}}.Bytes())

	r, err := (&Analyzer{}).Analyze(path)
	assert.ErrorIs(t, err, ErrNoSymbols)
	require.NotNil(t, r)
	assert.Empty(t, r.Classes)
	assert.Equal(t, 1, r.Stats.NotMangled)

	path = writeTempFile(t, "stripped.so", elftest.Builder{}.Bytes())
	r, err = (&Analyzer{}).Analyze(path)
	assert.ErrorIs(t, err, ErrNoSymbols)
	require.NotNil(t, r)
	assert.Zero(t, r.Stats.Symbols)
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := (&Analyzer{}).Analyze(filepath.Join(t.TempDir(), "missing.so"))
	assert.ErrorIs(t, err, ErrIO)

	_, err = (&Analyzer{}).Analyze(writeTempFile(t, "bad.so", bytes.Repeat([]byte{0}, 128)))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoadJSONReport(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testReport()))
	path := writeTempFile(t, "old.JSON", buf.Bytes())

	r, err := (&Analyzer{}).Load(path)
	require.NoError(t, err)
	assert.Equal("libtest.so", r.LibraryName)
	assert.Equal(testReport().Signatures(), r.Signatures())

	_, err = (&Analyzer{}).Load(writeTempFile(t, "bad.json", []byte("{")))
	assert.ErrorIs(err, ErrInvalidReport)

	_, err = (&Analyzer{}).Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(err, ErrIO)
}

func TestAnalyzePair(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	oldPath := filepath.Join(dir, "libtest.so.1")
	require.NoError(t, os.WriteFile(oldPath, elftest.Builder{Symtab: testSymbols}.Bytes(), 0o644))
	newPath := filepath.Join(dir, "libtest.so.2")
	require.NoError(t, os.WriteFile(newPath, elftest.Builder{Symtab: []elftest.Symbol{
		elftest.Func("_ZN11MyNamespace7MyClass11doSomethingEib", 0x2000),
		elftest.Func("_ZN11MyNamespace7MyClass5resetEv", 0x2100),
	}}.Bytes(), 0o644))

	d, err := NewDemangler(DefaultDemangleCacheSize)
	require.NoError(t, err)
	a := &Analyzer{Demangler: d}

	oldReport, newReport, err := a.AnalyzePair(context.Background(), oldPath, newPath)
	require.NoError(t, err)
	assert.Equal("libtest.so.1", oldReport.LibraryName)
	assert.Equal("libtest.so.2", newReport.LibraryName)

	diff := Diff(oldReport, newReport)
	assert.Equal([]string{"MyNamespace::MyClass::reset()"}, diff.Added)
	assert.Equal([]string{"MyNamespace::MyClass::~MyClass()"}, diff.Removed)
}

func TestAnalyzePairEmptyOperand(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full.so")
	require.NoError(t, os.WriteFile(full, elftest.Builder{Symtab: testSymbols}.Bytes(), 0o644))
	empty := filepath.Join(dir, "empty.so")
	require.NoError(t, os.WriteFile(empty, elftest.Builder{}.Bytes(), 0o644))

	oldReport, newReport, err := (&Analyzer{}).AnalyzePair(context.Background(), empty, full)
	require.NoError(t, err)
	assert.Empty(t, oldReport.Classes)
	assert.Len(t, Diff(oldReport, newReport).Added, 2)

	_, _, err = (&Analyzer{}).AnalyzePair(context.Background(), full, filepath.Join(dir, "missing.so"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestAnalyzePairCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := (&Analyzer{}).AnalyzePair(ctx, "a.so", "b.so")
	assert.ErrorIs(t, err, context.Canceled)
}
