// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"github.com/goretk/cxxsym"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	}
	return fmt.Errorf("unsupported format %q, use %s or %s", format, formatText, formatJSON)
}

// writeOutput calls write with the file at path, or with the command output
// when path is empty.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write output file: %w", cerr)
		}
	}()
	return write(f)
}

// logReport logs a summary of r and, at debug level, every skipped symbol
// with the reference demangling of its name.
func (a *app) logReport(path string, r *cxxsym.Report) {
	for _, s := range r.Skipped {
		ev := a.logger.Debug()
		if errors.Is(s.Err, cxxsym.ErrNotMangled) {
			ev = a.logger.Trace()
		}
		if !ev.Enabled() {
			continue
		}
		ev.Str("symbol", s.Name).
			Stringer("offset", s.Offset).
			Str("reference", demangle.Filter(s.Name)).
			Err(s.Err).
			Msg("symbol skipped")
	}

	ev := a.logger.Info().
		Str("file", path).
		Str("library", r.LibraryName).
		Int("classes", r.ClassCount).
		Int("methods", r.MethodCount)
	if r.FileInfo != nil {
		ev = ev.Str("arch", r.FileInfo.Arch).Str("build_id", r.FileInfo.BuildID)
	}
	ev.Int("symbols", r.Stats.Symbols).
		Int("skipped", len(r.Skipped)).
		Int("duplicates", r.Stats.Duplicates).
		Msg("report loaded")
}
