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
	"cmp"
	"errors"
	"slices"

	"github.com/samber/lo"
)

// ClassifyOption configures a Classifier.
type ClassifyOption func(*Classifier)

// WithGlobalOnly keeps only functions with global binding and default
// visibility, the symbols a library exports.
func WithGlobalOnly(enabled bool) ClassifyOption {
	return func(c *Classifier) {
		c.globalOnly = enabled
	}
}

// WithDemangler sets the Demangler used to decode names. It is useful to
// share one cache between several classifiers.
func WithDemangler(d *Demangler) ClassifyOption {
	return func(c *Classifier) {
		c.demangler = d
	}
}

type methodKey struct {
	class, name, params string
	offset              Offset
}

// Classifier groups function symbols into classes. Symbols are fed one at
// a time with Add so that a symbol table never has to be held in memory.
type Classifier struct {
	libraryName string
	globalOnly  bool
	demangler   *Demangler

	classes map[string][]MethodEntry
	seen    map[methodKey]struct{}
	stats   Stats
	skipped []SkippedSymbol
}

// NewClassifier returns a Classifier for the named library.
func NewClassifier(libraryName string, opts ...ClassifyOption) *Classifier {
	c := &Classifier{
		libraryName: libraryName,
		classes:     make(map[string][]MethodEntry),
		seen:        make(map[methodKey]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add classifies a symbol. Only defined functions whose demangled name is
// a member of a class or namespace become methods. Names that can't be
// demangled are recorded as skipped, they never fail the classification.
func (c *Classifier) Add(s RawSymbol) {
	c.stats.Symbols++
	if s.Undefined() {
		c.stats.Undefined++
		return
	}
	switch s.Kind {
	case KindFunction:
	case KindObject:
		c.stats.Objects++
		return
	default:
		return
	}
	if c.globalOnly && (s.Binding != BindGlobal || s.Visibility != VisDefault) {
		c.stats.Hidden++
		return
	}
	c.stats.Functions++

	dn, err := c.demangler.Demangle(s.Name)
	if err != nil {
		if errors.Is(err, ErrNotMangled) {
			c.stats.NotMangled++
		} else {
			c.stats.Malformed++
		}
		c.skipped = append(c.skipped, SkippedSymbol{Name: s.Name, Offset: Offset(s.Value), Err: err})
		return
	}
	switch {
	case dn.Special != "" || dn.Clone != "" || !dn.IsFunction:
		c.stats.Special++
		return
	case len(dn.ScopePath) == 0:
		c.stats.FreeFunctions++
		return
	}

	class := dn.QualifiedName()
	m := MethodEntry{Name: dn.DisplayName(), Params: dn.ParamsString(), Offset: Offset(s.Value)}
	key := methodKey{class: class, name: m.Name, params: m.Params, offset: m.Offset}
	if _, ok := c.seen[key]; ok {
		c.stats.Duplicates++
		return
	}
	c.seen[key] = struct{}{}
	c.classes[class] = append(c.classes[class], m)
	c.stats.Methods++
}

// Report builds the report of the symbols added so far.
func (c *Classifier) Report() *Report {
	classes := lo.MapToSlice(c.classes, func(name string, methods []MethodEntry) ClassGroup {
		return ClassGroup{Name: name, Methods: append([]MethodEntry(nil), methods...)}
	})
	r := newReport(c.libraryName, classes)
	r.Stats = c.stats
	r.Skipped = append([]SkippedSymbol(nil), c.skipped...)
	slices.SortFunc(r.Skipped, func(a, b SkippedSymbol) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Offset, b.Offset)
	})
	return r
}

// Classify builds the report of a library from its symbols. The result
// does not depend on the order of syms.
func Classify(libraryName string, syms []RawSymbol, opts ...ClassifyOption) *Report {
	c := NewClassifier(libraryName, opts...)
	for _, s := range syms {
		c.Add(s)
	}
	return c.Report()
}
