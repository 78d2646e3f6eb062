// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemanglerCache(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDemangler(2)
	require.NoError(t, err)

	first, err := d.Demangle("_ZN3Foo3barEv")
	require.NoError(t, err)
	second, err := d.Demangle("_ZN3Foo3barEv")
	require.NoError(t, err)
	assert.Same(first, second, "cached result should be returned")
	assert.Equal(1, d.Len())

	_, err = d.Demangle("main")
	assert.ErrorIs(err, ErrNotMangled)
	_, err = d.Demangle("main")
	assert.ErrorIs(err, ErrNotMangled, "errors are cached as well")
	assert.Equal(2, d.Len())

	_, err = d.Demangle("_ZN3Foo3bazEv")
	require.NoError(t, err)
	assert.Equal(2, d.Len(), "cache should be bounded")
}

func TestDemanglerWithoutCache(t *testing.T) {
	for _, size := range []int{0, -1} {
		d, err := NewDemangler(size)
		require.NoError(t, err)
		dn, err := d.Demangle("_ZN3FooC1Ev")
		require.NoError(t, err)
		assert.Equal(t, "Foo::Foo()", dn.String())
		assert.Equal(t, 0, d.Len())
	}

	var d *Demangler
	dn, err := d.Demangle("_ZN3FooD1Ev")
	require.NoError(t, err)
	assert.Equal(t, "Foo::~Foo()", dn.String())
	assert.Equal(t, 0, d.Len())
}

func TestDemanglerConcurrentUse(t *testing.T) {
	d, err := NewDemangler(DefaultDemangleCacheSize)
	require.NoError(t, err)

	names := []string{"_ZN3Foo3barEv", "_ZN3Foo3bazEi", "_ZNK3Foo3quxEv", "_Z3foov"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range names {
				_, err := d.Demangle(name)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, len(names), d.Len())
}
