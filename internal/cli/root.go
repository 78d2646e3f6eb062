// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

// Package cli implements the cxxsym command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/goretk/cxxsym"
	"github.com/goretk/cxxsym/internal/config"
	"github.com/goretk/cxxsym/internal/logging"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
	analyzer   *cxxsym.Analyzer
}

// NewRootCmd returns the cxxsym command with its subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}
	cmd := &cobra.Command{
		Use:   "cxxsym",
		Short: "List the C++ classes and methods of ELF binaries",
		Long: `cxxsym reads the symbol table of ELF shared objects and executables,
demangles the C++ names and groups the methods by class.

It can dump the classes of a binary as JSON or as a pseudo header, and
compare the method signatures of two versions of a library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	addGlobalFlags(cmd.PersistentFlags(), &a.configPath)

	cmd.AddCommand(newDumpCmd(a))
	cmd.AddCommand(newDiffCmd(a))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func addGlobalFlags(fs *pflag.FlagSet, configPath *string) {
	fs.StringVar(configPath, "config", "", "config file (default $"+config.EnvConfigPath+")")
	fs.String("log-level", "", "log level: trace, debug, info, warn or error")
	fs.Bool("log-pretty", true, "human readable log output")
	fs.Bool("global-only", false, "only keep functions with global binding and default visibility")
	fs.Bool("minidebuginfo", false, "also read the symbols embedded in .gnu_debugdata")
}

// setup loads the configuration, applies the flags set on the command line
// and builds the logger and the analyzer.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		cfg.Log.Level, _ = fs.GetString("log-level")
	}
	if fs.Changed("log-pretty") {
		cfg.Log.Pretty, _ = fs.GetBool("log-pretty")
	}
	if fs.Changed("global-only") {
		cfg.Analysis.GlobalOnly, _ = fs.GetBool("global-only")
	}
	if fs.Changed("minidebuginfo") {
		cfg.Analysis.MiniDebugInfo, _ = fs.GetBool("minidebuginfo")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.NewWithComponent(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	}, cmd.Name())

	demangler, err := cxxsym.NewDemangler(cfg.Analysis.DemangleCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create the demangler: %w", err)
	}
	a.analyzer = &cxxsym.Analyzer{
		GlobalOnly:    cfg.Analysis.GlobalOnly,
		MiniDebugInfo: cfg.Analysis.MiniDebugInfo,
		Demangler:     demangler,
	}
	return nil
}

// load returns the report for path and logs what was skipped. A report
// without methods is returned with cxxsym.ErrNoSymbols.
func (a *app) load(path string) (*cxxsym.Report, error) {
	r, err := a.analyzer.Load(path)
	if r != nil {
		a.logReport(path, r)
	}
	if errors.Is(err, cxxsym.ErrNoSymbols) {
		a.logger.Warn().Str("file", path).Msg("no C++ methods found")
	}
	return r, err
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
