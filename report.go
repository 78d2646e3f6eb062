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
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
)

// Report is the result of analyzing one library: its classes and their
// methods. A Report is read-only once built.
type Report struct {
	LibraryName string `json:"library_name"`
	// ClassCount and MethodCount are always len(Classes) and the sum of
	// the method counts.
	ClassCount  int          `json:"classes_found"`
	MethodCount int          `json:"methods_found"`
	Classes     []ClassGroup `json:"classes"`

	// Stats counts what happened to every symbol read.
	Stats Stats `json:"-"`
	// Skipped lists the symbols excluded because they could not be demangled.
	Skipped []SkippedSymbol `json:"-"`
	// FileInfo describes the binary the report was built from. It is nil
	// for reports read from JSON.
	FileInfo *FileInfo `json:"-"`
}

// Stats counts symbols by the way the classifier handled them.
type Stats struct {
	// Symbols is the number of symbols read.
	Symbols   int
	Undefined int
	Objects   int
	// Functions is the number of defined function symbols considered.
	Functions int
	// Hidden is the number of functions dropped for their binding or
	// visibility.
	Hidden        int
	NotMangled    int
	Malformed     int
	Special       int
	FreeFunctions int
	Duplicates    int
	Methods       int
}

// SkippedSymbol is a symbol excluded because its name could not be demangled.
type SkippedSymbol struct {
	Name   string
	Offset Offset
	// Err wraps ErrNotMangled or ErrMalformedMangling.
	Err error
}

// Signatures returns the sorted, unique method signatures of the report.
func (r *Report) Signatures() []string {
	var sigs []string
	for i := range r.Classes {
		c := &r.Classes[i]
		for _, m := range c.Methods {
			sigs = append(sigs, c.Signature(m))
		}
	}
	sigs = lo.Uniq(sigs)
	slices.Sort(sigs)
	return sigs
}

// Fingerprint is a hash of the signature set. Reports with the same
// methods have the same fingerprint, whatever their offsets.
func (r *Report) Fingerprint() uint64 {
	return fingerprint(r.Signatures())
}

func fingerprint(sigs []string) uint64 {
	h := xxhash.New()
	for _, s := range sigs {
		_, _ = h.WriteString(s)
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}

// Class returns the class with the given qualified name.
func (r *Report) Class(name string) (*ClassGroup, bool) {
	i, ok := slices.BinarySearchFunc(r.Classes, name, func(c ClassGroup, name string) int {
		return strings.Compare(c.Name, name)
	})
	if !ok {
		return nil, false
	}
	return &r.Classes[i], true
}

// newReport builds a report from classes, sorting them and computing the
// counts.
func newReport(libraryName string, classes []ClassGroup) *Report {
	r := &Report{LibraryName: libraryName, Classes: classes}
	if r.Classes == nil {
		r.Classes = []ClassGroup{}
	}
	slices.SortFunc(r.Classes, func(a, b ClassGroup) int {
		return strings.Compare(a.Name, b.Name)
	})
	for i := range r.Classes {
		slices.SortFunc(r.Classes[i].Methods, compareMethods)
		r.MethodCount += len(r.Classes[i].Methods)
	}
	r.ClassCount = len(r.Classes)
	return r
}

// ReadReport decodes a report written by WriteJSON. The counts in the
// document must match its contents.
func ReadReport(rd io.Reader) (*Report, error) {
	var doc Report
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	r := newReport(doc.LibraryName, doc.Classes)
	for _, c := range r.Classes {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: class without a name", ErrInvalidReport)
		}
		if len(c.Methods) == 0 {
			return nil, fmt.Errorf("%w: class %s has no methods", ErrInvalidReport, c.Name)
		}
	}
	if r.ClassCount != doc.ClassCount || r.MethodCount != doc.MethodCount {
		return nil, fmt.Errorf("%w: counts %d/%d do not match %d classes and %d methods",
			ErrInvalidReport, doc.ClassCount, doc.MethodCount, r.ClassCount, r.MethodCount)
	}
	return r, nil
}
