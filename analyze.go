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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Analyzer builds reports from ELF files. The zero value analyzes every
// defined function without caching demangled names.
type Analyzer struct {
	// GlobalOnly keeps only exported functions, see WithGlobalOnly.
	GlobalOnly bool
	// MiniDebugInfo also reads the symbols embedded in .gnu_debugdata.
	MiniDebugInfo bool
	// Demangler decodes the names. It may be shared between analyzers.
	Demangler *Demangler
}

// Analyze reads the symbols of the ELF file at path and classifies them.
// The library is named after the base name of path. If no method is found
// the report is returned along with ErrNoSymbols.
func (a *Analyzer) Analyze(path string) (*Report, error) {
	f, err := Open(path, WithMiniDebugInfo(a.MiniDebugInfo))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.AnalyzeFile(f, filepath.Base(path))
}

// AnalyzeFile is like Analyze for an opened file.
func (a *Analyzer) AnalyzeFile(f *File, libraryName string) (*Report, error) {
	c := NewClassifier(libraryName, WithGlobalOnly(a.GlobalOnly), WithDemangler(a.Demangler))
	err := f.ForEachSymbol(func(s RawSymbol) error {
		c.Add(s)
		return nil
	})
	if err != nil && !errors.Is(err, ErrNoSymbols) {
		return nil, err
	}
	r := c.Report()
	r.FileInfo = f.FileInfo
	if r.MethodCount == 0 {
		return r, ErrNoSymbols
	}
	return r, nil
}

// Load returns the report for path. Files with a .json extension are
// reports saved by WriteJSON, anything else is analyzed as an ELF file.
func (a *Analyzer) Load(path string) (*Report, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return a.Analyze(path)
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, ioError(path, err)
	}
	defer fd.Close()
	return ReadReport(fd)
}

// AnalyzePair loads the two operands of a diff concurrently. An operand
// without any method is not an error, its report is simply empty.
func (a *Analyzer) AnalyzePair(ctx context.Context, oldPath, newPath string) (*Report, *Report, error) {
	var reports [2]*Report
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range []string{oldPath, newPath} {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := a.Load(path)
			if err != nil && !(errors.Is(err, ErrNoSymbols) && r != nil) {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return reports[0], reports[1], nil
}
