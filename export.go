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
	"strings"

	"github.com/samber/lo"
)

// Filter returns the part of r matching keyword, ignoring case. A class
// whose qualified name matches is kept whole, otherwise only its methods
// whose name matches are kept. An empty keyword returns r.
func Filter(r *Report, keyword string) *Report {
	if keyword == "" {
		return r
	}
	kw := strings.ToLower(keyword)
	var classes []ClassGroup
	for _, c := range r.Classes {
		if strings.Contains(strings.ToLower(c.Name), kw) {
			classes = append(classes, ClassGroup{Name: c.Name, Methods: append([]MethodEntry(nil), c.Methods...)})
			continue
		}
		methods := lo.Filter(c.Methods, func(m MethodEntry, _ int) bool {
			return strings.Contains(strings.ToLower(m.Name), kw)
		})
		if len(methods) > 0 {
			classes = append(classes, ClassGroup{Name: c.Name, Methods: methods})
		}
	}
	out := newReport(r.LibraryName, classes)
	out.Stats, out.Skipped, out.FileInfo = r.Stats, r.Skipped, r.FileInfo
	return out
}

// WriteJSON writes the report as an indented JSON document.
func WriteJSON(w io.Writer, r *Report) error {
	return writeJSON(w, r)
}

// WriteDiffJSON writes a diff result as an indented JSON document.
func WriteDiffJSON(w io.Writer, d *DiffResult) error {
	return writeJSON(w, d)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

// WriteText writes the report as a pseudo C++ header, one class block per
// class.
func WriteText(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}
	ew.printf("// Library: %s\n", r.LibraryName)
	if r.FileInfo != nil {
		ew.printf("// Arch: %s, %d-bit, %s\n", r.FileInfo.Arch, r.FileInfo.WordSize*8, r.FileInfo.ByteOrder)
		if r.FileInfo.BuildID != "" {
			ew.printf("// Build ID: %s\n", r.FileInfo.BuildID)
		}
	}
	ew.printf("// Classes: %d\n// Methods: %d\n", r.ClassCount, r.MethodCount)
	for i := range r.Classes {
		ew.printf("\n%s\n", &r.Classes[i])
	}
	return ew.err
}

// WriteDiffText writes a diff result with one line per signature, prefixed
// by + for added and - for removed methods.
func WriteDiffText(w io.Writer, d *DiffResult) error {
	ew := &errWriter{w: w}
	ew.printf("--- %s (%s)\n+++ %s (%s)\n", d.Old, d.OldFingerprint, d.New, d.NewFingerprint)
	if d.Empty() {
		ew.printf("no differences\n")
		return ew.err
	}
	for _, s := range d.Removed {
		ew.printf("- %s\n", s)
	}
	for _, s := range d.Added {
		ew.printf("+ %s\n", s)
	}
	ew.printf("%d added, %d removed\n", len(d.Added), len(d.Removed))
	return ew.err
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
