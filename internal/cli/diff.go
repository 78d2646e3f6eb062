// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/goretk/cxxsym"
)

func newDiffCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare the method signatures of two binaries",
		Long: `Compare the method signatures of two versions of a library and list
the added and removed methods. Either side may be a JSON report saved by
dump, to compare a binary against a baseline.`,
		Example: `  cxxsym diff libfoo.so.1 libfoo.so.2
  cxxsym diff --format json baseline.json libfoo.so`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			oldReport, newReport, err := a.analyzer.AnalyzePair(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			for i, r := range []*cxxsym.Report{oldReport, newReport} {
				a.logReport(args[i], r)
				if r.MethodCount == 0 {
					a.logger.Warn().Str("file", args[i]).Msg("no C++ methods found")
				}
			}

			d := cxxsym.Diff(oldReport, newReport)
			a.logger.Info().
				Int("added", len(d.Added)).
				Int("removed", len(d.Removed)).
				Msg("diff done")
			return writeOutput(cmd, output, func(w io.Writer) error {
				if format == formatJSON {
					return cxxsym.WriteDiffJSON(w, d)
				}
				return cxxsym.WriteDiffText(w, d)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
