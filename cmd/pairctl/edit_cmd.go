// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	pairerrors "github.com/brassloom/pairctl/internal/errors"
	"github.com/brassloom/pairctl/internal/ui"
	"github.com/brassloom/pairctl/pkg/editspec"
)

func runEdit(args []string, configPath string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pairctl edit <apply|diff> <spec-file> [options]")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "apply":
		runEditApply(rest, globals)
	case "diff":
		runEditDiff(rest, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown edit subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runEditApply(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("edit apply", flag.ExitOnError)
	engineName := fs.String("engine", "hybrid", "Apply engine: internal, external3way, hybrid")
	allowBinary := fs.Bool("allow-binary", false, "Permit writing content that looks binary")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pairctl edit apply <spec-file> [--engine internal|external3way|hybrid] [--allow-binary]\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(3)
	}

	repoRoot := repoRootOrCwd()
	spec, err := loadSpec(fs.Arg(0))
	if err != nil {
		pairerrors.FatalError("edit-v1", err, globals.JSON)
	}

	engine, err := buildEditEngine(*engineName, repoRoot, *allowBinary)
	if err != nil {
		pairerrors.FatalError("edit-v1", err, globals.JSON)
	}

	metricsRegistry.EditApplies.Inc()
	report, err := engine.Apply(spec, repoRoot)
	if err != nil {
		if report != nil && len(report.Conflicts) > 0 {
			metricsRegistry.EditConflicts.Inc()
		}
		pairerrors.FatalError("edit-v1", err, globals.JSON)
	}

	if globals.JSON {
		data, _ := jsonMarshal(report)
		fmt.Println(string(data))
		return
	}
	ui.Success("Applied %s file(s), backup session %s", ui.CountText(len(report.Applied)), report.BackupSession)
	if report.Warning != "" {
		ui.Warningf("%s", report.Warning)
	}
}

func runEditDiff(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("edit diff", flag.ExitOnError)
	context := fs.Int("context", 3, "Number of unified-diff context lines")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pairctl edit diff <spec-file> [--context N]\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(3)
	}

	repoRoot := repoRootOrCwd()
	spec, err := loadSpec(fs.Arg(0))
	if err != nil {
		pairerrors.FatalError("edit-v1", err, globals.JSON)
	}

	for _, fb := range spec.Files {
		diff, dErr := editspec.RenderUnifiedDiff(fb, repoRoot, *context)
		if dErr != nil {
			pairerrors.FatalError("edit-v1", dErr, globals.JSON)
		}
		os.Stdout.Write(diff)
	}
}

func loadSpec(path string) (*editspec.Spec, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, pairerrors.NewInvalidInput("Cannot read edit spec file", path, "check the path", err)
	}
	return editspec.Parse(string(data))
}

func buildEditEngine(name, repoRoot string, allowBinary bool) (editspec.Engine, error) {
	switch name {
	case "internal":
		e := editspec.NewInternal(repoRoot)
		e.AllowBinary = allowBinary
		return e, nil
	case "external3way":
		return editspec.NewExternal3Way(repoRoot), nil
	case "hybrid":
		h := editspec.NewHybrid(repoRoot)
		h.Internal.AllowBinary = allowBinary
		return h, nil
	default:
		return nil, pairerrors.NewInvalidInput("Unknown edit engine", name, "use internal, external3way or hybrid", nil)
	}
}
