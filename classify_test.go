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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func funcSymbol(name string, value uint64) RawSymbol {
	return RawSymbol{Name: name, Value: value, Kind: KindFunction, Binding: BindGlobal, SectionIndex: 1}
}

var libSymbols = []RawSymbol{
	funcSymbol("_ZN11MyNamespace7MyClass11doSomethingEib", 0x1000),
	funcSymbol("_ZN11MyNamespace7MyClassD1Ev", 0x1100),
	funcSymbol("_ZN12AnotherClass13anotherMethodERKNSt7__cxx1112basic_stringIcSt11char_traitsIcESaIcEEE", 0x2000),
	funcSymbol("main", 0x3000),
	{Name: "_ZN3Ext4callEv", Kind: KindFunction, Binding: BindGlobal},
	{Name: "_ZN3Foo5countE", Value: 0x4000, Kind: KindObject, Binding: BindGlobal, SectionIndex: 2},
	funcSymbol("_ZTV3Foo", 0x5000),
	funcSymbol("_ZN3Foo3barEv.cold", 0x6000),
	funcSymbol("_Z4freev", 0x7000),
	funcSymbol("_ZN3Foo", 0x8000),
}

func TestClassifyLibrary(t *testing.T) {
	assert := assert.New(t)

	r := Classify("libtest.so", libSymbols)

	assert.Equal("libtest.so", r.LibraryName)
	assert.Equal(2, r.ClassCount)
	assert.Equal(3, r.MethodCount)
	require.Len(t, r.Classes, 2)

	assert.Equal("AnotherClass", r.Classes[0].Name)
	assert.Equal([]MethodEntry{
		{Name: "anotherMethod", Params: "(std::string const&)", Offset: 0x2000},
	}, r.Classes[0].Methods)

	assert.Equal("MyNamespace::MyClass", r.Classes[1].Name)
	assert.Equal([]MethodEntry{
		{Name: "doSomething", Params: "(int, bool)", Offset: 0x1000},
		{Name: "~MyClass", Params: "()", Offset: 0x1100},
	}, r.Classes[1].Methods)

	assert.Equal(Stats{
		Symbols:       10,
		Undefined:     1,
		Objects:       1,
		Functions:     8,
		NotMangled:    1,
		Malformed:     1,
		Special:       2,
		FreeFunctions: 1,
		Methods:       3,
	}, r.Stats)

	require.Len(t, r.Skipped, 2)
	assert.Equal("_ZN3Foo", r.Skipped[0].Name)
	assert.ErrorIs(r.Skipped[0].Err, ErrMalformedMangling)
	assert.Equal("main", r.Skipped[1].Name)
	assert.Equal(Offset(0x3000), r.Skipped[1].Offset)
	assert.ErrorIs(r.Skipped[1].Err, ErrNotMangled)
}

func TestClassifyMislengthedNames(t *testing.T) {
	assert := assert.New(t)

	// The MyClass source names claim 8 bytes, c++filt rejects both symbols.
	r := Classify("libtest.so", []RawSymbol{
		funcSymbol("_ZN11MyNamespace8MyClass11doSomethingEib", 0x12340),
		funcSymbol("_ZN11MyNamespace8MyClassD1Ev", 0xabcde),
		funcSymbol("_ZN12AnotherClass13anotherMethodERKNSt7__cxx1112basic_stringIcSt11char_traitsIcESaIcEEE", 0x56780),
	})

	assert.Equal(1, r.ClassCount)
	assert.Equal(1, r.MethodCount)
	assert.Equal([]string{"AnotherClass::anotherMethod(std::string const&)"}, r.Signatures())
	assert.Equal(2, r.Stats.Malformed)

	require.Len(t, r.Skipped, 2)
	assert.Equal("_ZN11MyNamespace8MyClass11doSomethingEib", r.Skipped[0].Name)
	assert.Equal("_ZN11MyNamespace8MyClassD1Ev", r.Skipped[1].Name)
	for _, s := range r.Skipped {
		var merr *MangleError
		require.ErrorAs(t, s.Err, &merr)
		assert.ErrorIs(s.Err, ErrMalformedMangling)
	}

	r = Classify("libtest.so", []RawSymbol{
		funcSymbol("_ZN11MyNamespace7MyClass11doSomethingEib", 0x12340),
		funcSymbol("_ZN11MyNamespace7MyClassD1Ev", 0xabcde),
		funcSymbol("_ZN12AnotherClass13anotherMethodERKNSt7__cxx1112basic_stringIcSt11char_traitsIcESaIcEEE", 0x56780),
	})
	assert.Equal(2, r.ClassCount)
	assert.Equal(3, r.MethodCount)
	assert.Empty(r.Skipped)
	c, ok := r.Class("MyNamespace::MyClass")
	require.True(t, ok)
	assert.Equal([]MethodEntry{
		{Name: "doSomething", Params: "(int, bool)", Offset: 0x12340},
		{Name: "~MyClass", Params: "()", Offset: 0xabcde},
	}, c.Methods)
}

func TestClassifyOrderIndependent(t *testing.T) {
	want := Classify("libtest.so", libSymbols)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		syms := append([]RawSymbol(nil), libSymbols...)
		rng.Shuffle(len(syms), func(a, b int) { syms[a], syms[b] = syms[b], syms[a] })
		got := Classify("libtest.so", syms)
		assert.Equal(t, want.Classes, got.Classes)
		assert.Equal(t, want.Skipped, got.Skipped)
		assert.Equal(t, want.Fingerprint(), got.Fingerprint())
	}
}

func TestClassifyDuplicates(t *testing.T) {
	assert := assert.New(t)

	r := Classify("libdup.so", []RawSymbol{
		funcSymbol("_ZN3Foo3barEv", 0x10),
		funcSymbol("_ZN3Foo3barEv", 0x10),
		// Same method at another address, an alias.
		funcSymbol("_ZN3Foo3barEv", 0x20),
		// Complete and base object destructors share their display name.
		funcSymbol("_ZN3FooD1Ev", 0x30),
		funcSymbol("_ZN3FooD2Ev", 0x30),
		// Const overloads are distinct methods.
		funcSymbol("_ZNK3Foo3bazEv", 0x40),
		funcSymbol("_ZN3Foo3bazEv", 0x50),
	})

	require.Len(t, r.Classes, 1)
	assert.Equal([]MethodEntry{
		{Name: "bar", Params: "()", Offset: 0x10},
		{Name: "bar", Params: "()", Offset: 0x20},
		{Name: "baz", Params: "()", Offset: 0x50},
		{Name: "baz", Params: "() const", Offset: 0x40},
		{Name: "~Foo", Params: "()", Offset: 0x30},
	}, r.Classes[0].Methods)
	assert.Equal(2, r.Stats.Duplicates)
	assert.Equal(5, r.MethodCount)
}

func TestClassifyGlobalOnly(t *testing.T) {
	syms := []RawSymbol{
		funcSymbol("_ZN3Foo6publicEv", 0x10),
		{Name: "_ZN3Foo4weakEv", Value: 0x20, Kind: KindFunction, Binding: BindWeak, SectionIndex: 1},
		{Name: "_ZN3Foo5localEv", Value: 0x30, Kind: KindFunction, Binding: BindLocal, SectionIndex: 1},
		{Name: "_ZN3Foo6hiddenEv", Value: 0x40, Kind: KindFunction, Binding: BindGlobal, Visibility: VisHidden, SectionIndex: 1},
	}

	t.Run("all", func(t *testing.T) {
		r := Classify("lib.so", syms)
		assert.Equal(t, 4, r.MethodCount)
		assert.Zero(t, r.Stats.Hidden)
	})

	t.Run("global_only", func(t *testing.T) {
		r := Classify("lib.so", syms, WithGlobalOnly(true))
		require.Len(t, r.Classes, 1)
		assert.Equal(t, []MethodEntry{{Name: "public", Params: "()", Offset: 0x10}}, r.Classes[0].Methods)
		assert.Equal(t, 3, r.Stats.Hidden)
	})
}

func TestClassifyEmpty(t *testing.T) {
	assert := assert.New(t)

	r := Classify("empty.so", nil)
	assert.NotNil(r.Classes)
	assert.Empty(r.Classes)
	assert.Zero(r.ClassCount)
	assert.Zero(r.MethodCount)
	assert.Empty(r.Skipped)
}

func TestClassifierSharedDemangler(t *testing.T) {
	d, err := NewDemangler(16)
	require.NoError(t, err)

	a := NewClassifier("a.so", WithDemangler(d))
	b := NewClassifier("b.so", WithDemangler(d))
	a.Add(funcSymbol("_ZN3Foo3barEv", 0x10))
	b.Add(funcSymbol("_ZN3Foo3barEv", 0x99))

	assert.Equal(t, 1, d.Len())
	assert.Equal(t, a.Report().Signatures(), b.Report().Signatures())
}
