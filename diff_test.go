// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func reportOf(lib string, sigs map[string][]MethodEntry) *Report {
	var classes []ClassGroup
	for name, methods := range sigs {
		classes = append(classes, ClassGroup{Name: name, Methods: methods})
	}
	return newReport(lib, classes)
}

func TestDiff(t *testing.T) {
	assert := assert.New(t)

	oldReport := reportOf("libfoo.so.1", map[string][]MethodEntry{
		"Foo": {
			{Name: "bar", Params: "()", Offset: 0x10},
			{Name: "baz", Params: "(int)", Offset: 0x20},
		},
		"Gone": {{Name: "f", Params: "()", Offset: 0x30}},
	})
	newReport := reportOf("libfoo.so.2", map[string][]MethodEntry{
		"Foo": {
			{Name: "bar", Params: "()", Offset: 0x110},
			{Name: "baz", Params: "(long)", Offset: 0x120},
			{Name: "qux", Params: "() const", Offset: 0x130},
		},
	})

	d := Diff(oldReport, newReport)
	assert.Equal("libfoo.so.1", d.Old)
	assert.Equal("libfoo.so.2", d.New)
	assert.Equal([]string{"Foo::baz(long)", "Foo::qux() const"}, d.Added)
	assert.Equal([]string{"Foo::baz(int)", "Gone::f()"}, d.Removed)
	assert.False(d.Empty())
	assert.Len(d.OldFingerprint, 16)
	assert.Len(d.NewFingerprint, 16)
	assert.NotEqual(d.OldFingerprint, d.NewFingerprint)
}

func TestDiffIdentical(t *testing.T) {
	assert := assert.New(t)

	r := testReport()
	d := Diff(r, r)
	assert.True(d.Empty())
	assert.NotNil(d.Added)
	assert.NotNil(d.Removed)
	assert.Equal(d.OldFingerprint, d.NewFingerprint)
}

func TestDiffSameFingerprintDifferentSets(t *testing.T) {
	assert := assert.New(t)

	// Both signature lists hash the same byte stream.
	oldReport := reportOf("old.so", map[string][]MethodEntry{
		"X": {{Name: "f\nX::g", Params: "()", Offset: 0x10}},
		"Y": {{Name: "h", Params: "()", Offset: 0x20}},
	})
	newReport := reportOf("new.so", map[string][]MethodEntry{
		"X": {
			{Name: "f", Params: "", Offset: 0x10},
			{Name: "g", Params: "()\nY::h()", Offset: 0x20},
		},
	})
	assert.Equal(oldReport.Fingerprint(), newReport.Fingerprint())

	d := Diff(oldReport, newReport)
	assert.Equal(d.OldFingerprint, d.NewFingerprint)
	assert.False(d.Empty())
	assert.Equal([]string{"X::f", "X::g()\nY::h()"}, d.Added)
	assert.Equal([]string{"X::f\nX::g()", "Y::h()"}, d.Removed)
}

func TestDiffIgnoresOffsets(t *testing.T) {
	a := testReport()
	b := testReport()
	b.Classes[1].Methods[0].Offset = 0xffff
	assert.True(t, Diff(a, b).Empty())
}

func TestDiffIsSymmetric(t *testing.T) {
	a := reportOf("a", map[string][]MethodEntry{"A": {{Name: "f", Params: "()"}, {Name: "g", Params: "()"}}})
	b := reportOf("b", map[string][]MethodEntry{"A": {{Name: "g", Params: "()"}, {Name: "h", Params: "()"}}})

	ab, ba := Diff(a, b), Diff(b, a)
	assert.Equal(t, ab.Added, ba.Removed)
	assert.Equal(t, ab.Removed, ba.Added)
}

func TestDiffEmptyReports(t *testing.T) {
	assert := assert.New(t)

	empty := newReport("empty.so", nil)
	full := testReport()

	d := Diff(empty, full)
	assert.Equal(full.Signatures(), d.Added)
	assert.Empty(d.Removed)

	d = Diff(full, empty)
	assert.Empty(d.Added)
	assert.Equal(full.Signatures(), d.Removed)

	assert.True(Diff(empty, empty).Empty())
}

func TestFormatFingerprint(t *testing.T) {
	assert.Equal(t, "00000000000000ff", formatFingerprint(0xff))
	assert.Equal(t, "ffffffffffffffff", formatFingerprint(^uint64(0)))
}
