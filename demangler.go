// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cxxsym

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDemangleCacheSize is the number of names a Demangler remembers
// unless told otherwise.
const DefaultDemangleCacheSize = 4096

type demangleResult struct {
	name *DemangledName
	err  error
}

// Demangler decodes mangled names and caches the results. Libraries that
// are analyzed together, like the two sides of a diff, share most of their
// names, so one Demangler can serve both. It is safe for concurrent use.
type Demangler struct {
	cache *lru.Cache[string, demangleResult]
}

// NewDemangler returns a Demangler that caches up to size names. A size of
// zero or less disables caching.
func NewDemangler(size int) (*Demangler, error) {
	if size <= 0 {
		return &Demangler{}, nil
	}
	cache, err := lru.New[string, demangleResult](size)
	if err != nil {
		return nil, err
	}
	return &Demangler{cache: cache}, nil
}

// Demangle is like the package level Demangle. The returned name is shared
// with other callers and must not be modified.
func (d *Demangler) Demangle(name string) (*DemangledName, error) {
	if d == nil || d.cache == nil {
		return Demangle(name)
	}
	if r, ok := d.cache.Get(name); ok {
		return r.name, r.err
	}
	dn, err := Demangle(name)
	d.cache.Add(name, demangleResult{name: dn, err: err})
	return dn, err
}

// Len returns the number of cached names.
func (d *Demangler) Len() int {
	if d == nil || d.cache == nil {
		return 0
	}
	return d.cache.Len()
}
