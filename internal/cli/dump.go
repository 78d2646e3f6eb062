// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goretk/cxxsym"
)

func newDumpCmd(a *app) *cobra.Command {
	var format, filter, output string
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "List the classes and methods of a binary",
		Long: `List the C++ classes and methods found in the symbol table of an ELF
binary. The file may also be a JSON report saved by an earlier dump.

The filter keeps the classes whose name contains the keyword, and the
methods whose name contains it in the other classes. Case is ignored.`,
		Example: `  cxxsym dump libfoo.so
  cxxsym dump --format json --output libfoo.json libfoo.so
  cxxsym dump --filter widget libfoo.so`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			report, err := a.load(args[0])
			if err != nil {
				return err
			}

			report = cxxsym.Filter(report, filter)
			if report.MethodCount == 0 {
				a.logger.Warn().Str("filter", filter).Msg("no method matches the filter")
				return fmt.Errorf("%w matching %q", cxxsym.ErrNoSymbols, filter)
			}

			return writeOutput(cmd, output, func(w io.Writer) error {
				if format == formatJSON {
					return cxxsym.WriteJSON(w, report)
				}
				return cxxsym.WriteText(w, report)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	cmd.Flags().StringVar(&filter, "filter", "", "keep classes and methods matching this keyword")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
